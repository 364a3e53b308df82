package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/rookgm/chowline/config"
	"github.com/rookgm/chowline/internal/auth"
	handler "github.com/rookgm/chowline/internal/handler/http"
	"github.com/rookgm/chowline/internal/middleware"
	"github.com/rookgm/chowline/internal/models"
	"github.com/rookgm/chowline/internal/notifier"
	"github.com/rookgm/chowline/internal/provider"
	"github.com/rookgm/chowline/internal/repository"
	"github.com/rookgm/chowline/internal/repository/postgres"
	"github.com/rookgm/chowline/internal/service"
	"github.com/rookgm/chowline/internal/worker"
	"go.uber.org/zap"
)

const authTokenKey = "f53ac685bbceebd75043e6be2e06ee07"

// newLogger creates logger with log level
func newLogger(level string) (*zap.Logger, error) {

	loggerLvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	loggerCfg := zap.NewProductionConfig()
	loggerCfg.Level = loggerLvl

	return loggerCfg.Build()
}

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	err = db.Migrate()
	if err != nil {
		logger.Fatal("Error migrating database", zap.Error(err))
	}

	tokenKey, err := hex.DecodeString(authTokenKey)
	if err != nil {
		logger.Fatal("Error extracting token key", zap.Error(err))
	}
	token := auth.NewAuthToken(tokenKey)

	// broadcast channel
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	broadcast := notifier.NewRedisNotifier(redisClient, logger)

	// payment rails
	cardClient := provider.NewCardClient(cfg.CardProviderAddr, cfg.CardAPIKey, cfg.CardWebhookSecret)
	paypalClient := provider.NewPayPalClient(cfg.PayPalProviderAddr, cfg.PayPalAPIKey, cfg.PayPalWebhookID)
	providersByMethod := map[models.PaymentMethod]provider.Provider{
		models.PaymentMethodCard:   cardClient,
		models.PaymentMethodPayPal: paypalClient,
	}
	providersByName := map[string]provider.Provider{
		cardClient.Name():   cardClient,
		paypalClient.Name(): paypalClient,
	}

	// dependency injection
	// menu
	menuRepo := repository.NewMenuRepository(db)
	menuService := service.NewMenuService(menuRepo)
	menuHandler := handler.NewMenuHandler(menuService)

	// order
	orderRepo := repository.NewOrderRepository(db)
	orderService := service.NewOrderService(orderRepo, menuRepo, broadcast, service.OrderConfig{
		Pricing: service.PricingConfig{
			TaxRateBP:   cfg.TaxRateBP,
			DeliveryFee: cfg.DeliveryFee,
		},
		Eta: service.EtaConfig{
			Buffer:       cfg.EtaBuffer,
			QueuePenalty: cfg.QueuePenalty,
		},
		MinimumOrder: cfg.MinimumOrder,
	}, logger)
	orderHandler := handler.NewOrderHandler(orderService)

	// payment
	paymentRepo := repository.NewPaymentRepository(db)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, providersByMethod, broadcast, cfg.Currency, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	webhookHandler := handler.NewWebhookHandler(paymentService, providersByName, logger)

	// staff
	staffHandler := handler.NewStaffHandler(cfg.StaffLogin, cfg.StaffPasswordHash, token)

	router := chi.NewRouter()

	router.Use(middleware.Logging(logger))

	router.Get("/api/menu", menuHandler.ListMenu())
	router.Post("/api/orders", orderHandler.CreateOrder())
	router.Get("/api/orders/{id}", orderHandler.GetOrder())
	router.Post("/api/orders/{id}/cancel", orderHandler.CancelOrder())
	router.Post("/api/payments/initialize", paymentHandler.InitializePayment())
	router.Get("/api/payments/verify/{reference}", paymentHandler.VerifyPayment())
	router.Post("/api/payments/webhooks/{provider}", webhookHandler.HandleWebhook())
	router.Post("/api/staff/login", staffHandler.Login())

	// routes that require staff authentication
	router.Group(func(group chi.Router) {
		group.Use(middleware.Auth(token))
		group.Get("/api/orders", orderHandler.ListOrders())
		group.Put("/api/orders/{id}/status", orderHandler.UpdateOrderStatus())
		group.Put("/api/orders/{id}/eta", orderHandler.UpdateOrderEta())
		group.Post("/api/payments/{id}/refund", paymentHandler.RefundPayment())
	})

	// re-verify payments that never received a terminal webhook
	verifier := worker.NewPaymentVerifier(paymentService, cfg.VerifyInterval, cfg.VerifyGrace, logger)
	go verifier.ProcessPayments(ctx)

	logger.Info("Running server", zap.String("addr", cfg.ServerAddr))

	if err := http.ListenAndServe(cfg.ServerAddr, router); err != nil {
		logger.Fatal("Error starting server", zap.Error(err))
	}

	return
}
