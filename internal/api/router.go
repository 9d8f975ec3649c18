// Package api serves the admin API of a mock server: session results,
// verification, statistics, traces, stored pacts and Prometheus metrics.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prasenjit/go-pact/internal/logging"
	"github.com/prasenjit/go-pact/internal/pactspec"
	"github.com/prasenjit/go-pact/internal/stats"
	"github.com/prasenjit/go-pact/internal/storage"
	"github.com/prasenjit/go-pact/internal/tracing"
)

// Dependencies are the services behind the admin API. Server may be nil when
// only stored pacts are administered. Metrics nil disables /metrics.
type Dependencies struct {
	Server      MockServer
	Store       storage.Storage
	Stats       *stats.Collector
	Tracing     *tracing.Service
	Metrics     prometheus.Gatherer
	SpecVersion pactspec.Version
	Logger      *slog.Logger
}

// Router handles HTTP routing
type Router struct {
	engine  *gin.Engine
	deps    Dependencies
	handler *Handler
	logger  *slog.Logger
}

// NewRouter creates a new router
func NewRouter(deps Dependencies) *Router {
	r := &Router{
		engine:  gin.New(),
		deps:    deps,
		handler: NewHandler(deps),
		logger:  logging.OrNop(deps.Logger),
	}

	r.engine.Use(gin.Recovery())
	r.engine.Use(corsMiddleware())
	r.engine.Use(logging.Middleware(r.logger, "admin"))

	r.setupRoutes()

	return r
}

func (r *Router) setupRoutes() {
	api := r.engine.Group("/_api")
	{
		api.GET("/health", r.handler.HealthCheck)

		// Session
		api.GET("/session", r.handler.GetSession)
		api.GET("/interactions", r.handler.ListInteractions)
		api.GET("/interactions/:key", r.handler.GetInteraction)
		api.GET("/results", r.handler.GetResults)
		api.GET("/verification", r.handler.GetVerification)
		api.POST("/verify-response", r.handler.VerifyResponse)

		// Statistics
		api.GET("/stats", r.handler.GetGlobalStats)
		api.GET("/stats/interactions/:key", r.handler.GetInteractionStats)
		api.POST("/stats/reset", r.handler.ResetStats)

		// Tracing
		api.GET("/traces", r.handler.ListTraces)
		api.GET("/traces/:id", r.handler.GetTrace)
		api.DELETE("/traces", r.handler.ClearTraces)

		// Pacts
		api.GET("/pacts", r.handler.ListPacts)
		api.POST("/pacts", r.handler.CreatePact)
		api.GET("/pacts/:id", r.handler.GetPact)
		api.DELETE("/pacts/:id", r.handler.DeletePact)
	}

	// Live traces
	wsHandler := tracing.NewWebSocketHandler(r.deps.Tracing, r.logger)
	r.engine.GET("/_api/traces/stream", gin.WrapH(wsHandler))

	if r.deps.Metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.deps.Metrics, promhttp.HandlerOpts{})))
	}
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
