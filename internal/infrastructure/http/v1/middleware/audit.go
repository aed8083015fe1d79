package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/audit"
)

// maxCapturedBody caps what the audit log keeps per direction.
const maxCapturedBody = 256 * 1024

// Audit records every guarded call: the action log row after the handler
// returns, plus whatever entity snapshots the services registered on the
// recorder. Both writes are best effort and never fail the request.
func Audit(auditService *audit.Service, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxCapturedBody))
			c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		writer := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		ctx := c.Request.Context()
		row := &audit.ActionLog{
			Endpoint:     endpoint,
			Method:       c.Request.Method,
			Path:         c.Request.URL.Path,
			Query:        c.Request.URL.RawQuery,
			RequestBody:  asJSON(requestBody),
			ResponseBody: asJSON(writer.body.Bytes()),
			StatusCode:   writer.Status(),
			IP:           c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			DurationMs:   time.Since(start).Milliseconds(),
		}
		auditService.WriteAction(ctx, row)

		if recorder := audit.FromContext(ctx); recorder != nil {
			auditService.Flush(ctx, recorder)
		}
	}
}

// asJSON keeps the captured bytes only when they hold valid JSON, so the
// log columns stay queryable.
func asJSON(body []byte) json.RawMessage {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return body
}

type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.body.Len() < maxCapturedBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	if w.body.Len() < maxCapturedBody {
		w.body.WriteString(s)
	}
	return w.ResponseWriter.WriteString(s)
}
