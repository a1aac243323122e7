package handlers

import (
	"net/http"

	"discoverydraft-backend/taxonomy"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the discovery routes, health check and metrics endpoint
func NewRouter(discoveryHandler *DiscoveryHandler, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"taxonomy": taxonomy.Default().Version(),
		})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API routes
	api := r.Group("/api/discovery")
	{
		api.POST("/preview", discoveryHandler.Preview)
		api.POST("/runs", discoveryHandler.StartRun)
		api.GET("/runs", discoveryHandler.ListRuns)
		api.GET("/runs/:id", discoveryHandler.GetRun)
		api.GET("/runs/:id/manifest", discoveryHandler.GetManifest)
	}

	return r
}
