package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "mecsa/internal/core/context"
	"mecsa/internal/domain/audit"
)

const HeaderRequestID = "X-Request-ID"

// Trace seeds every request with a correlation context. The generated
// action id ties the audit action log and all data log rows of the call
// together; a fresh audit recorder rides the same context so repositories
// can register entity snapshots.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.NewTraceContext()
		if requestID := c.GetHeader(HeaderRequestID); requestID != "" {
			trace.RequestID = requestID
		}

		ctx := appctx.WithTrace(c.Request.Context(), trace)
		ctx, _ = audit.WithRecorder(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderRequestID, trace.RequestID)

		c.Next()
	}
}
