package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/shared/telemetry"
	"transcript-advisor/internal/shared/util"
)

// ErrorBody is the error object every non-2xx JSON response carries.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with an error envelope. Client errors are logged
// at info level, server errors at error level.
func Error(c *gin.Context, status int, code, message string, details any) {
	log := telemetry.Info
	if status >= http.StatusInternalServerError {
		log = telemetry.Error
	}
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("requestId"),
	}
	if id := c.GetString("sessionId"); id != "" {
		fields["session"] = util.HashScope(id)
	}
	log("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}
