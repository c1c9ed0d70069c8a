package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/postline-io/postline/internal/interfaces/http/handlers"
)

// WebhookRouteConfig holds dependencies for webhook routes.
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
}

// SetupWebhookRoutes configures the provider callback endpoint. No auth
// middleware: providers authenticate with signatures, not sessions.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	engine.POST("/payment/webhooks/:provider", cfg.WebhookHandler.HandleWebhook)
}
