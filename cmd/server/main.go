package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repricer-service/config"
	"repricer-service/internal/api"
	"repricer-service/internal/broker"
	"repricer-service/internal/cache"
	"repricer-service/internal/gateway"
	"repricer-service/internal/marketplace"
	"repricer-service/internal/reconcile"
	"repricer-service/internal/redisclient"
	"repricer-service/internal/store"
	"repricer-service/internal/util"
	"repricer-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting repricer service")

	tp, err := util.InitTracer("repricer-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	var priceCache cache.PriceCache = cache.NewMemoryCache()
	var locker api.RunLocker
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		priceCache = cache.NewRedisCache(redisClient.GetClient())
		locker = redisClient
		log.Println("Redis connected")
	}

	var marketClient marketplace.Client
	if cfg.Marketplace.Endpoint != "" {
		marketClient = marketplace.NewHTTPClient(cfg.Marketplace.Endpoint, cfg.Marketplace.AuthToken)
		log.Printf("Using live marketplace endpoint: %s", cfg.Marketplace.Endpoint)
	} else {
		sim := marketplace.NewSimulatedClient(cfg.Marketplace.SimulatedFailRate)
		seedDemoListings(sim)
		marketClient = sim
		log.Println("No marketplace endpoint configured, using simulator with demo listings")
	}

	gw := gateway.New(marketClient, priceCache, gateway.Options{
		CallInterval:   time.Duration(cfg.Marketplace.CallIntervalMs) * time.Millisecond,
		QueueCapacity:  cfg.Marketplace.QueueCapacity,
		MaxRetries:     cfg.Marketplace.MaxRetries,
		RetryBaseDelay: time.Duration(cfg.Marketplace.RetryBaseDelayMs) * time.Millisecond,
		CacheTTL:       time.Duration(cfg.Marketplace.CacheTTLSeconds) * time.Second,
		SyntheticTTL:   time.Duration(cfg.Marketplace.SyntheticTTLSecs) * time.Second,
	})
	defer gw.Close()

	var publisher reconcile.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPricing)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	engine := reconcile.NewService(gw, db, db, reconcile.StaticCatalog{}, publisher, reconcile.Defaults{
		BatchSize:             cfg.Repricing.BatchSize,
		DelayBetweenBatchesMs: cfg.Repricing.DelayBetweenBatchesMs,
		DelayBetweenItemsMs:   cfg.Repricing.DelayBetweenItemsMs,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var reconcileWorker *worker.ReconcileWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPricing, cfg.Kafka.ConsumerGroup)
		reconcileWorker = worker.NewReconcileWorker(consumer, engine)
		go func() {
			if err := reconcileWorker.Start(workerCtx); err != nil {
				log.Printf("Reconcile worker error: %v", err)
			}
		}()
	}

	if cfg.Repricing.ScheduleSeconds > 0 {
		scheduler := worker.NewScheduler(engine,
			time.Duration(cfg.Repricing.ScheduleSeconds)*time.Second,
			reconcile.Options{SyncType: reconcile.SyncAll})
		go scheduler.Start(workerCtx)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	lockTTL := time.Duration(cfg.Repricing.RunLockTTLSeconds) * time.Second
	handler := api.NewHandler(engine, db, db, locker, lockTTL)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if reconcileWorker != nil {
		reconcileWorker.Stop()
	}

	log.Println("Server exited")
}

// seedDemoListings populates the simulated marketplace with a small account
// so the service is usable end to end without live credentials.
func seedDemoListings(client *marketplace.SimulatedClient) {
	client.Seed(
		marketplace.Item{
			ItemID:     "314851424639",
			Title:      "Wireless Noise Cancelling Headphones",
			CategoryID: "112529",
			Price:      decimal.NewFromFloat(84.50),
			Currency:   "USD",
			Quantity:   12,
		},
		marketplace.Item{
			ItemID:     "204557118209",
			Title:      "USB-C Docking Station 11-in-1",
			CategoryID: "80053",
			Price:      decimal.NewFromFloat(59.99),
			Currency:   "USD",
			Quantity:   30,
		},
		marketplace.Item{
			ItemID:     "175903342211",
			Title:      "Mechanical Keyboard Hot-Swap 75%",
			CategoryID: "33963",
			Price:      decimal.NewFromFloat(112.00),
			Currency:   "USD",
			Quantity:   8,
			Variations: []marketplace.Variation{
				{SKU: "KB75-RED", Price: decimal.NewFromFloat(112.00), Quantity: 5},
				{SKU: "KB75-BROWN", Price: decimal.NewFromFloat(118.00), Quantity: 3},
			},
		},
	)
}
