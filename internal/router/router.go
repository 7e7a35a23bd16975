package router

import (
	"github.com/gin-gonic/gin"

	"facturas/internal/config"
	"facturas/internal/handler"
	"facturas/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	batchH *handler.BatchHandler,
	progressH *handler.ProgressHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Batch ingestion routes
	batches := v1.Group("/batches")
	batches.POST("", batchH.Submit)
	batches.GET("", batchH.List)
	batches.GET("/:id", batchH.Get)
	batches.GET("/:id/errors", batchH.ListErrors)
	batches.GET("/:id/files/:name", batchH.GetFile)

	// Logical submission routes
	v1.GET("/submissions/:id/batches", batchH.ListBySubmission)

	// Progress event stream
	v1.GET("/progress/events", progressH.Events)

	return r
}
