package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/shared/telemetry"
)

func TestBrowsingContextAllowsOptionsWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BrowsingContext())
	router.OPTIONS("/api/v1/uploads", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/uploads", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestBrowsingContextRequiresHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BrowsingContext())
	router.GET("/api/v1/uploads", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for _, value := range []string{"", "   ", strings.Repeat("a", maxSessionIDSize+1)} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
		if value != "" {
			req.Header.Set(SessionHeader, value)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("header %q: expected 400, got %d", value, resp.Code)
		}
	}
}

func TestBrowsingContextStoresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), BrowsingContext())

	var gotSession, gotRequestID string
	router.GET("/api/v1/uploads", func(c *gin.Context) {
		gotSession = SessionIDFromContext(c)
		gotRequestID = telemetry.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
	req.Header.Set(SessionHeader, " tab-1 ")
	req.Header.Set("X-Request-Id", "req-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotSession != "tab-1" {
		t.Fatalf("unexpected session id %q", gotSession)
	}
	if gotRequestID != "req-42" {
		t.Fatalf("request id not propagated, got %q", gotRequestID)
	}
}
