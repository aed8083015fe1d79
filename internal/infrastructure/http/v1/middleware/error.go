package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mecsa/internal/core/apperror"
	"mecsa/pkg/logger"
)

// ErrorHandler is the single place that turns errors registered on the gin
// context into JSON responses. Handlers call c.Error and abort; the body is
// always {"detail": ..., "code": ...}.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		// A handler already wrote the response.
		if c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := apperror.As(err)
		if !ok {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"detail": "internal server error",
				"code":   apperror.CodeInternal,
			})
			return
		}

		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request failed",
				"code", appErr.Code, "error", appErr.Error())
		} else if appErr.Err != nil {
			logger.Warn(c.Request.Context(), "request rejected",
				"code", appErr.Code, "cause", appErr.Err.Error())
		}

		body := gin.H{
			"detail": appErr.Message,
			"code":   appErr.Code,
		}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}
