// Package http assembles the billing HTTP surface: repositories, provider
// gateways, use cases, handlers, and routes.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	creditUsecases "github.com/postline-io/postline/internal/application/credit/usecases"
	"github.com/postline-io/postline/internal/application/payment/gateway"
	paymentUsecases "github.com/postline-io/postline/internal/application/payment/usecases"
	subscriptionUsecases "github.com/postline-io/postline/internal/application/subscription/usecases"
	webhookUsecases "github.com/postline-io/postline/internal/application/webhook/usecases"
	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/domain/webhook"
	"github.com/postline-io/postline/internal/infrastructure/auth"
	"github.com/postline-io/postline/internal/infrastructure/cache"
	"github.com/postline-io/postline/internal/infrastructure/config"
	"github.com/postline-io/postline/internal/infrastructure/gateway/click"
	"github.com/postline-io/postline/internal/infrastructure/gateway/payme"
	"github.com/postline-io/postline/internal/infrastructure/gateway/stripe"
	"github.com/postline-io/postline/internal/infrastructure/notification"
	"github.com/postline-io/postline/internal/infrastructure/repository"
	"github.com/postline-io/postline/internal/interfaces/http/handlers"
	"github.com/postline-io/postline/internal/interfaces/http/middleware"
	"github.com/postline-io/postline/internal/interfaces/http/routes"
	sharedDB "github.com/postline-io/postline/internal/shared/db"
	"github.com/postline-io/postline/internal/shared/logger"
)

// Router wires the HTTP engine. The repositories and ingestion use case are
// exposed so the schedulers can share them instead of rebuilding the graph.
type Router struct {
	engine *gin.Engine

	PaymentRepo payment.PaymentRepository
	EventRepo   webhook.EventRepository
	IngestUC    *webhookUsecases.IngestWebhookUseCase
	Registry    *gateway.Registry
}

// NewRouter builds the full dependency graph and registers all routes.
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) *Router {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.ErrorHandler())

	// Repositories and transaction boundary.
	paymentRepo := repository.NewPaymentRepository(db)
	methodRepo := repository.NewPaymentMethodRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	creditRepo := repository.NewCreditEntryRepository(db)
	txManager := sharedDB.NewTransactionManager(db)

	// Provider gateways. The timeout bounds every outbound provider call at
	// the HTTP client, so no adapter operation can hang past it.
	tolerance := cfg.Billing.WebhookToleranceDuration()
	gatewayTimeout := cfg.Billing.GatewayTimeout()
	registry := gateway.NewRegistry(
		stripe.NewGateway(cfg.Billing.Stripe, tolerance, gatewayTimeout, log),
		payme.NewGateway(cfg.Billing.Payme, gatewayTimeout, log),
		click.NewGateway(cfg.Billing.Click, gatewayTimeout, log),
	)

	// Caches and notification.
	planCache := cache.NewPlanCache(redisClient, log)
	dedupCache := cache.NewWebhookDedupCache(redisClient, log)
	notifier := notification.NewEmailNotifier(cfg.Email, log)

	// Use cases.
	createMethodUC := paymentUsecases.NewCreatePaymentMethodUseCase(methodRepo, registry, txManager, log)
	processUC := paymentUsecases.NewProcessPaymentUseCase(paymentRepo, methodRepo, registry, gatewayTimeout, log)
	refundUC := paymentUsecases.NewRefundPaymentUseCase(paymentRepo, subRepo, registry, txManager, log)
	listPaymentsUC := paymentUsecases.NewListPaymentsUseCase(paymentRepo, log)

	createSubUC := subscriptionUsecases.NewCreateSubscriptionUseCase(subRepo, planRepo, methodRepo, registry, txManager, log)
	cancelSubUC := subscriptionUsecases.NewCancelSubscriptionUseCase(subRepo, registry, log)
	getSubUC := subscriptionUsecases.NewGetSubscriptionUseCase(subRepo, planRepo, log)
	listPlansUC := subscriptionUsecases.NewListPlansUseCase(planRepo, planCache, log)

	grantUC := creditUsecases.NewGrantCreditsUseCase(creditRepo, txManager, log)
	consumeUC := creditUsecases.NewConsumeCreditsUseCase(creditRepo, txManager, log)
	balanceUC := creditUsecases.NewGetBalanceUseCase(creditRepo, log)

	processEventUC := webhookUsecases.NewProcessEventUseCase(paymentRepo, subRepo, txManager, notifier, log)
	ingestUC := webhookUsecases.NewIngestWebhookUseCase(eventRepo, registry, processEventUC, dedupCache, log)

	// Handlers and middleware.
	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	authMiddleware := middleware.NewAuthMiddleware(jwtService, log)

	paymentHandler := handlers.NewPaymentHandler(createMethodUC, processUC, refundUC, listPaymentsUC, log)
	subscriptionHandler := handlers.NewSubscriptionHandler(createSubUC, cancelSubUC, getSubUC, listPlansUC, log)
	creditHandler := handlers.NewCreditHandler(grantUC, consumeUC, balanceUC, log)
	webhookHandler := handlers.NewWebhookHandler(ingestUC, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient, registry)

	routes.SetupBillingRoutes(engine, &routes.BillingRouteConfig{
		PaymentHandler:      paymentHandler,
		SubscriptionHandler: subscriptionHandler,
		CreditHandler:       creditHandler,
		AuthMiddleware:      authMiddleware,
	})
	routes.SetupWebhookRoutes(engine, &routes.WebhookRouteConfig{
		WebhookHandler: webhookHandler,
	})
	routes.SetupHealthRoutes(engine, healthHandler)

	return &Router{
		engine:      engine,
		PaymentRepo: paymentRepo,
		EventRepo:   eventRepo,
		IngestUC:    ingestUC,
		Registry:    registry,
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
