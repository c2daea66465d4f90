package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func newLimitedRouter(limiter *RateLimiter, rules map[string]RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader(SessionHeader); id != "" {
			c.Set(sessionIDKey, id)
		}
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/uploads/submit" {
				return "SUBMIT"
			}
			return ""
		},
		Limiter: limiter,
		Rules:   rules,
	}))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/api/v1/uploads", ok)
	r.POST("/api/v1/uploads/submit", ok)
	return r
}

func hit(r *gin.Engine, method, path, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRateLimitSubmitStricterThanDefault(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
	r := newLimitedRouter(NewRateLimiter(clock.now), map[string]RateLimitRule{
		"DEFAULT": {Rate: 5, Burst: 10},
		"SUBMIT":  {Rate: 1, Burst: 2},
	})

	for i := 0; i < 3; i++ {
		if resp := hit(r, http.MethodGet, "/api/v1/uploads", "tab-1"); resp.Code != http.StatusOK {
			t.Fatalf("snapshot request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	for i := 0; i < 2; i++ {
		if resp := hit(r, http.MethodPost, "/api/v1/uploads/submit", "tab-1"); resp.Code != http.StatusOK {
			t.Fatalf("submit request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	if resp := hit(r, http.MethodPost, "/api/v1/uploads/submit", "tab-1"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("submit request 3 expected 429, got %d", resp.Code)
	}
	if resp := hit(r, http.MethodPost, "/api/v1/uploads/submit", "tab-2"); resp.Code != http.StatusOK {
		t.Fatalf("another context expected 200, got %d", resp.Code)
	}

	clock.advance(time.Second)
	if resp := hit(r, http.MethodPost, "/api/v1/uploads/submit", "tab-1"); resp.Code != http.StatusOK {
		t.Fatalf("expected a refilled token after 1s, got %d", resp.Code)
	}
}

func TestRateLimit429Body(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
	r := newLimitedRouter(NewRateLimiter(clock.now), map[string]RateLimitRule{
		"DEFAULT": {Rate: 0.5, Burst: 1},
	})

	if resp := hit(r, http.MethodGet, "/api/v1/uploads", "tab-1"); resp.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp.Code)
	}
	resp := hit(r, http.MethodGet, "/api/v1/uploads", "tab-1")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]int `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" || payload.Error.Details["retryAfterMs"] != 2000 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewRateLimiter(clock.now)
	rule := RateLimitRule{Rate: 1, Burst: 1}

	limiter.Allow("a|DEFAULT", rule)
	clock.advance(10 * time.Minute)
	limiter.Allow("b|DEFAULT", rule)

	if n := limiter.Sweep(5 * time.Minute); n != 1 {
		t.Fatalf("expected one stale bucket, got %d", n)
	}
	if ok, _ := limiter.Allow("b|DEFAULT", rule); ok {
		t.Fatal("recent bucket must survive the sweep")
	}
	if ok, _ := limiter.Allow("a|DEFAULT", rule); !ok {
		t.Fatal("swept bucket should start full")
	}
}

func TestRateLimitUnknownGroupPasses(t *testing.T) {
	r := newLimitedRouter(NewRateLimiter(nil), map[string]RateLimitRule{
		"SUBMIT": {Rate: 1, Burst: 1},
	})
	for i := 0; i < 20; i++ {
		if resp := hit(r, http.MethodGet, "/api/v1/uploads", "tab-1"); resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, resp.Code)
		}
	}
}
