package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-fulfillment-service/internal/cache"
	"storefront-fulfillment-service/internal/config"
	"storefront-fulfillment-service/internal/controller"
	"storefront-fulfillment-service/internal/kafka"
	"storefront-fulfillment-service/internal/metrics"
	"storefront-fulfillment-service/internal/middleware"
	"storefront-fulfillment-service/internal/rabbit"
	"storefront-fulfillment-service/internal/repository"
	"storefront-fulfillment-service/internal/repository/memory"
	"storefront-fulfillment-service/internal/service"
)

const serviceName = "storefront-fulfillment"

func main() {
	cfg := config.Load()
	setupLogger(cfg)
	logger := log.WithField("service", serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	deps := service.Deps{Metrics: m, Logger: logger}

	// Storage
	storage, closeStorage := openStorage(ctx, cfg, logger, &deps)
	defer closeStorage()

	// Notificaciones: rabbit y kafka son opcionales
	fanout := service.NewFanout(m, logger)
	var conn *amqp091.Connection
	if cfg.RabbitURL != "" {
		var err error
		conn, err = amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			logger.WithError(err).Fatal("error connecting to RabbitMQ")
		}
		defer conn.Close()

		pubCh, err := conn.Channel()
		if err != nil {
			logger.WithError(err).Fatal("error opening RabbitMQ channel")
		}
		if err := rabbit.DeclareExchange(pubCh, cfg.OrderEventsExchange); err != nil {
			logger.WithError(err).Fatal("error declaring order events exchange")
		}
		fanout.Add("rabbit", rabbit.NewPublisher(pubCh, cfg.OrderEventsExchange))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
		if err != nil {
			logger.WithError(err).Fatal("error creating kafka producer")
		}
		defer producer.Close()
		fanout.Add("kafka", producer)
	}
	if fanout.Len() > 0 {
		deps.Notifier = fanout
	} else {
		logger.Warn("no notification sinks configured: order events are dropped")
	}

	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr)
		defer client.Close()
		deps.Cache = cache.NewTrackingCache(client, serviceName)
	}

	// Servicios
	cartService := service.NewCartService(deps)
	orderService := service.NewOrderService(deps, service.PricingPolicy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShipping:          cfg.FlatShippingPrice,
		TaxRatePercent:        cfg.TaxRatePercent,
	})
	paymentService := service.NewPaymentService(deps)
	deliveryService := service.NewDeliveryService(deps, service.DeliveryOptions{
		DefaultCarrier:   cfg.DefaultCarrier,
		DefaultSignature: cfg.DefaultSignature,
		TrackingCacheTTL: cfg.TrackingCacheTTL,
	})
	authService := service.NewAuthService(cfg.AuthURL, cfg.AuthTimeout)

	if conn != nil && cfg.CartCleanupOnOrder {
		subCh, err := conn.Channel()
		if err != nil {
			logger.WithError(err).Fatal("error opening RabbitMQ channel")
		}
		consumer := rabbit.NewOrderPlacedConsumer(cartService, logger)
		if err := rabbit.SetupCartCleanup(ctx, subCh, cfg.OrderEventsExchange, cfg.CartCleanupQueue, consumer, logger); err != nil {
			logger.WithError(err).Fatal("error setting up cart cleanup consumer")
		}
	}

	// Router
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.Metrics(m))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	controller.Handlers{
		Cart:     controller.NewCartController(cartService),
		Order:    controller.NewOrderController(orderService),
		Payment:  controller.NewPaymentController(paymentService),
		Delivery: controller.NewDeliveryController(deliveryService),
		Health:   controller.NewHealthController(storage),
	}.Register(r, middleware.AuthMiddleware(authService))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("storefront fulfillment service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// openStorage completa los repositorios de deps y devuelve el pinger del health check.
func openStorage(ctx context.Context, cfg *config.Config, logger *log.Entry, deps *service.Deps) (controller.Pinger, func()) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage: data is lost on restart")
		store := memory.NewStore()
		if cfg.SeedProductsFile != "" {
			seedProducts(store, cfg.SeedProductsFile, logger)
		}
		deps.Tx = store
		deps.Catalog = store.Products()
		deps.Carts = store.Carts()
		deps.Orders = store.Orders()
		deps.Payments = store.Payments()
		deps.Deliveries = store.Deliveries()
		return store, func() {}

	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.WithError(err).Fatal("error connecting to MongoDB")
		}
		db := client.Database(cfg.MongoDBName)
		if err := repository.EnsureIndexes(connectCtx, db); err != nil {
			logger.WithError(err).Fatal("error creating MongoDB indexes")
		}

		repos := repository.NewRepositories(client, db, cfg.MongoTransactions, logger)
		deps.Tx = repos.Tx
		deps.Catalog = repos.Products
		deps.Carts = repos.Carts
		deps.Orders = repos.Orders
		deps.Payments = repos.Payments
		deps.Deliveries = repos.Deliveries
		return repos.Tx, func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.WithError(err).Warn("error disconnecting from MongoDB")
			}
		}

	default:
		logger.WithField("driver", cfg.StorageDriver).Fatal("unknown storage driver")
		return nil, nil
	}
}

func seedProducts(store *memory.Store, path string, logger *log.Entry) {
	f, err := os.Open(path)
	if err != nil {
		logger.WithError(err).Fatal("error opening products seed file")
	}
	defer f.Close()

	n, err := store.SeedProducts(f)
	if err != nil {
		logger.WithError(err).Fatal("error loading products seed file")
	}
	logger.WithField("products", n).Info("catalog seeded")
}
