package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/postline-io/postline/internal/interfaces/http/handlers"
)

// SetupHealthRoutes configures the health endpoint.
func SetupHealthRoutes(engine *gin.Engine, handler *handlers.HealthHandler) {
	engine.GET("/healthz", handler.Check)
}
