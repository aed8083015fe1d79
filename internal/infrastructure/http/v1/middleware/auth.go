package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/internal/domain/auth"
)

// Cookie names shared with the auth handler.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Auth validates the access token and populates the user context. The token
// travels in the access cookie; a Bearer header is accepted as fallback for
// non-browser clients.
func Auth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		userID, err := strconv.Atoi(claims.Subject)
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token subject"))
			c.Abort()
			return
		}

		ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{
			UserID:   userID,
			Username: claims.Username,
			Accesses: claims.Accesses,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
