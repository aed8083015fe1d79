package middleware

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/internal/domain/auth"
)

// RequireAccess guards a route with one (access, operation) grant. The
// check goes to the grants table so revocations apply before the access
// token expires.
func RequireAccess(authService *auth.Service, accessID, operationID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := appctx.GetUserID(c.Request.Context())
		if userID == 0 {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		if err := authService.CheckPermission(c.Request.Context(), userID, accessID, operationID); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Next()
	}
}
