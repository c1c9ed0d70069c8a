package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/postline-io/postline/internal/interfaces/http/handlers"
	"github.com/postline-io/postline/internal/interfaces/http/middleware"
)

// BillingRouteConfig holds dependencies for billing routes.
type BillingRouteConfig struct {
	PaymentHandler      *handlers.PaymentHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	CreditHandler       *handlers.CreditHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// SetupBillingRoutes configures the authenticated billing API.
func SetupBillingRoutes(engine *gin.Engine, cfg *BillingRouteConfig) {
	payment := engine.Group("/payment")
	{
		// Plans are public so the pricing page needs no session.
		payment.GET("/plans", cfg.SubscriptionHandler.ListPlans)

		protected := payment.Group("")
		protected.Use(cfg.AuthMiddleware.RequireAuth())
		{
			protected.POST("/methods", cfg.PaymentHandler.CreatePaymentMethod)
			protected.POST("/process", cfg.PaymentHandler.ProcessPayment)
			protected.GET("/history", cfg.PaymentHandler.ListPayments)
			protected.POST("/payments/:id/refund", cfg.PaymentHandler.RefundPayment)

			protected.POST("/subscriptions", cfg.SubscriptionHandler.CreateSubscription)
			protected.GET("/subscription", cfg.SubscriptionHandler.GetSubscription)
			protected.PUT("/subscription/cancel", cfg.SubscriptionHandler.CancelSubscription)

			protected.GET("/credits", cfg.CreditHandler.GetBalance)
			protected.POST("/credits/grant", cfg.CreditHandler.GrantCredits)
			protected.POST("/credits/consume", cfg.CreditHandler.ConsumeCredits)
		}
	}
}
