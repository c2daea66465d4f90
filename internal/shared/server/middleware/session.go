package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/shared/server/respond"
)

const (
	// SessionHeader identifies the browsing context a request belongs to.
	SessionHeader = "X-Session-Id"

	sessionIDKey     = "sessionId"
	maxSessionIDSize = 128
)

// BrowsingContext requires the session header and stores it in context.
func BrowsingContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sessionID == "" {
			respond.Error(c, http.StatusBadRequest, "missing_session", SessionHeader+" header is required", nil)
			return
		}
		if len(sessionID) > maxSessionIDSize {
			respond.Error(c, http.StatusBadRequest, "invalid_session", SessionHeader+" header is too long", nil)
			return
		}

		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}

// SessionIDFromContext fetches the session ID set by BrowsingContext.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
