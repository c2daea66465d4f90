package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/shared/metrics"
	"transcript-advisor/internal/shared/server/respond"
	"transcript-advisor/internal/shared/telemetry"
	"transcript-advisor/internal/shared/util"
)

// Recovery turns a handler panic into a 500 error body. A panic after the
// response was started only aborts the chain.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			metrics.IncPanicRecovered()
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if sessionID := SessionIDFromContext(c); sessionID != "" {
				fields["session"] = util.HashScope(sessionID)
			}
			telemetry.Error("http.panic", fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
