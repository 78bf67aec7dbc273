package router

import (
	"github.com/gin-gonic/gin"

	"x2beta/internal/config"
	"x2beta/internal/handler"
	"x2beta/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authCfg config.AuthConfig,
	approvalH *handler.ApprovalHandler,
	runH *handler.RunHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(authCfg))

	approvals := v1.Group("/approvals")
	approvals.GET("", approvalH.List)
	approvals.POST("/:id/decide", approvalH.Decide)

	runs := v1.Group("/runs")
	runs.GET("/:id", runH.GetByID)
	runs.GET("/:id/exceptions", runH.ListExceptions)

	return r
}
