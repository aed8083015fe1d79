package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mecsa/internal/core/apperror"
	"mecsa/internal/domain/auth"
	"mecsa/internal/infrastructure/http/v1/dto"
	"mecsa/internal/infrastructure/http/v1/middleware"
)

// AuthHandler serves the two-step login and session endpoints.
type AuthHandler struct {
	*BaseHandler
	service       *auth.Service
	secureCookies bool
}

// NewAuthHandler creates an auth handler. secureCookies marks the cookies
// Secure, which production requires and local development cannot use.
func NewAuthHandler(base *BaseHandler, service *auth.Service, secureCookies bool) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service, secureCookies: secureCookies}
}

// SendToken checks the password and emails a one-time login code.
func (h *AuthHandler) SendToken(c *gin.Context) {
	var req dto.SendTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	err := h.service.SendToken(c.Request.Context(), auth.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "login code sent")
}

// Login consumes the emailed code and opens a session. Both tokens travel
// in the body and as cookies: the access cookie is readable by the
// frontend, the refresh cookie is httpOnly.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	pair, user, err := h.service.Login(c.Request.Context(), auth.LoginForm{
		Username: req.Username,
		Password: req.Password,
		Token:    req.Token,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.setCookie(c, middleware.AccessCookie, pair.AccessToken, pair.AccessExpiresAt, false)
	h.setCookie(c, middleware.RefreshCookie, pair.RefreshToken, pair.RefreshExpiresAt, true)

	h.OK(c, dto.LoginResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User:             dto.FromUser(user),
	})
}

// Refresh renews the access token against the server-side session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || refreshToken == "" {
		h.Error(c, apperror.NewUnauthorized("missing refresh token"))
		return
	}

	accessToken, expiresAt, err := h.service.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.setCookie(c, middleware.AccessCookie, accessToken, expiresAt, false)
	h.OK(c, dto.RefreshResponse{AccessToken: accessToken, AccessExpiresAt: expiresAt})
}

// Logout expires the session and clears both cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(middleware.RefreshCookie); err == nil && refreshToken != "" {
		if err := h.service.Logout(c.Request.Context(), refreshToken); err != nil {
			h.Error(c, err)
			return
		}
	}

	h.clearCookie(c, middleware.AccessCookie, false)
	h.clearCookie(c, middleware.RefreshCookie, true)
	h.Message(c, "logged out")
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, expiresAt time.Time, httpOnly bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(name, value, maxAge, "/", "", h.secureCookies, httpOnly)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string, httpOnly bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.secureCookies, httpOnly)
}
