package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/shared/telemetry"
	"transcript-advisor/internal/shared/util"
)

// Logging emits a structured log per request; server errors log at error level.
// Preflights and metrics scrapes are not logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		session := ""
		if id := SessionIDFromContext(c); id != "" {
			session = util.HashScope(id)
		}
		statusTransition := c.GetString("statusTransition")
		submissionID := c.GetString("submissionId")

		fields := map[string]any{
			"request_id":        reqID,
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            status,
			"status_transition": statusTransition,
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"session":           session,
			"submission_id":     submissionID,
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if status >= 500 {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
