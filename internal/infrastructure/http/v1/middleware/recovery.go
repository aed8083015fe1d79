// Package middleware provides the HTTP middleware chain.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/pkg/logger"
)

// Recovery converts panics into 500 responses. The stack trace is logged,
// never sent to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				_ = c.Error(
					apperror.NewInternal(fmt.Errorf("panic: %v", err)).
						WithDetail("request_id", requestID(c)),
				)
				c.Abort()
			}
		}()
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	if t := appctx.GetTrace(c.Request.Context()); t != nil {
		return t.RequestID
	}
	return ""
}
