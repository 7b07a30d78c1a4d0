// internal/router/router.go
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/gateway"
	"github.com/javajoker/storefront-backend/internal/handlers"
	"github.com/javajoker/storefront-backend/internal/jobs"
	"github.com/javajoker/storefront-backend/internal/messaging/kafka"
	"github.com/javajoker/storefront-backend/internal/metrics"
	"github.com/javajoker/storefront-backend/internal/middleware"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const sweeperStopTimeout = 30 * time.Second

// Components are the outer systems the routes run on.
type Components struct {
	Repositories *repository.Repositories
	Gateways     []gateway.Gateway
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Notifier     services.OrderNotifier
	Publisher    services.OrderEventPublisher
	Storage      *services.StorageService
}

// App owns the engine plus the background workers started alongside it.
type App struct {
	Engine     *gin.Engine
	Sweeper    *jobs.ImportSweeper
	Dispatcher *services.Dispatcher
	closers    []func()
}

// Close stops background work, oldest dependency last.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Initialize builds the production wiring on top of a postgres connection.
func Initialize(db *gorm.DB, cfg *config.Config) (*App, error) {
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	if err != nil {
		return nil, err
	}

	app, err := New(cfg, Components{
		Repositories: repository.NewGormRepositories(db),
		Gateways:     NewGateways(cfg),
		Metrics:      metrics.New(),
		Gatherer:     prometheus.DefaultGatherer,
		Notifier:     services.NewNotificationService(cfg),
		Publisher:    producer,
		Storage:      storageService,
	})
	if err != nil {
		producer.Close()
		return nil, err
	}

	app.closers = append([]func(){func() {
		if err := producer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close kafka producer")
		}
	}}, app.closers...)
	return app, nil
}

// NewGateways registers every provider so webhooks for sessions opened before
// a provider switch still reconcile.
func NewGateways(cfg *config.Config) []gateway.Gateway {
	httpClient := &http.Client{Timeout: cfg.Payment.GatewayTimeout}

	return []gateway.Gateway{
		gateway.NewStripe(gateway.StripeConfig{
			SecretKey:        cfg.Payment.StripeSecretKey,
			WebhookSecret:    cfg.Payment.StripeWebhookSecret,
			APIURL:           cfg.Payment.StripeAPIURL,
			Locale:           cfg.I18n.DefaultLocale,
			AllowedCountries: cfg.Payment.AllowedCountries,
			HTTPClient:       httpClient,
		}),
		gateway.NewConekta(gateway.ConektaConfig{
			PrivateKey:    cfg.Payment.ConektaPrivateKey,
			WebhookSecret: cfg.Payment.ConektaWebhookSecret,
			APIURL:        cfg.Payment.ConektaAPIURL,
			HTTPClient:    httpClient,
		}),
	}
}

func New(cfg *config.Config, c Components) (*App, error) {
	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	repos := c.Repositories
	registry := gateway.NewRegistry(c.Gateways...)

	checkoutGateway, err := registry.Get(cfg.Payment.Provider)
	if err != nil {
		return nil, fmt.Errorf("checkout gateway: %w", err)
	}

	// Initialize services
	orderService := services.NewOrderService(repos.Orders)
	dispatcher, err := services.NewDispatcher(cfg.Payment.NotificationWorkers, c.Notifier, orderService, c.Publisher, c.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification pool: %w", err)
	}
	checkoutService := services.NewCheckoutService(repos.Products, orderService, checkoutGateway, c.Metrics, cfg)
	webhookService := services.NewWebhookService(registry, orderService, repos.Products, dispatcher, c.Metrics)
	importService := services.NewImportService(repos, c.Storage, c.Metrics, cfg.Importer)

	sweeper, err := jobs.NewImportSweeper(cfg.Importer.SweepSpec, cfg.Importer.SweepBatchSize, importService)
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	// Initialize handlers
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	webhookHandler := handlers.NewWebhookHandler(webhookService, cfg.Payment.WebhookMaxBodyBytes)
	orderHandler := handlers.NewOrderHandler(orderService)
	importerHandler := handlers.NewImporterHandler(importService, c.Storage)

	checkoutLimiter := middleware.NewCheckoutRateLimiter(cfg.Payment.CheckoutRatePerSecond)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"version":  "1.0.0",
			"provider": checkoutGateway.Name(),
		})
	})

	gatherer := c.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		v1.POST("/checkout", checkoutLimiter.Middleware(), middleware.OptionalAuth(), checkoutHandler.CreateCheckout)
		v1.POST("/webhooks/:provider", webhookHandler.HandleWebhook)
		v1.GET("/orders/session/:sessionId", orderHandler.GetOrderBySession)

		// Importer routes (admin only)
		importers := v1.Group("/importers")
		importers.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			importers.POST("/process", importerHandler.ProcessUpload)
			importers.POST("", importerHandler.CreateImport)
			importers.GET("", importerHandler.ListImports)
			importers.GET("/:id", importerHandler.GetImport)
		}
	}

	return &App{
		Engine:     r,
		Sweeper:    sweeper,
		Dispatcher: dispatcher,
		closers: []func(){
			dispatcher.Close,
			checkoutLimiter.Stop,
			func() { sweeper.Stop(sweeperStopTimeout) },
		},
	}, nil
}
