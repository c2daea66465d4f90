package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/services/health"
	"transcript-advisor/internal/shared/config"
	"transcript-advisor/internal/shared/metrics"
	"transcript-advisor/internal/shared/server/middleware"
	"transcript-advisor/internal/shared/server/respond"
)

const submitRateGroup = "SUBMIT"

// RouteRegistrar attaches a feature's routes to the session-scoped group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps are the handlers and checks the router serves.
type RouterDeps struct {
	Handlers []RouteRegistrar
	Health   *health.Service
	Limiter  *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, deps RouterDeps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/ready", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		status, ready := deps.Health.Status(c.Request.Context())
		if !ready {
			respond.Error(c, http.StatusServiceUnavailable, "not_ready", "dependency unavailable", status)
			return
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true, "checks": status})
	})

	scoped := api.Group("",
		middleware.BrowsingContext(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				submitRateGroup: {Rate: 1, Burst: 2},
				"DEFAULT":       {Rate: 5, Burst: 10},
			},
			GroupFor: rateGroup,
			Limiter:  deps.Limiter,
		}),
	)
	for _, h := range deps.Handlers {
		h.RegisterRoutes(scoped)
	}

	return r
}

func rateGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && strings.HasSuffix(c.Request.URL.Path, "/uploads/submit") {
		return submitRateGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
