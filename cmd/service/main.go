package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/expiry"
	"storefront/internal/metrics"
	"storefront/internal/payment"
	"storefront/internal/producer"
	"storefront/internal/profile"
	"storefront/internal/repository"
	"storefront/internal/service"
	httptransport "storefront/internal/transport/http"
	"storefront/pkg/database"
	"storefront/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var appMetrics *metrics.AppMetrics
	if cfg.Metrics.Enabled {
		m, provider, err := metrics.Init(ctx, cfg.Metrics.ServiceName)
		if err != nil {
			log.Fatal("failed to init metrics", zap.Error(err))
		}
		appMetrics = m
		defer func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.Error("metrics provider shutdown failed", zap.Error(err))
			}
		}()
	}

	repos := repository.New(db)
	catalog := service.NewDBCatalog(repos.Variants)

	profiles := profile.NewClient(cfg.Profile.APIURL)
	payments := payment.NewClient(cfg.Payment)
	shipping := service.DistrictTable(cfg.Shipping.Table)

	// Emails are optional: without kafka the lifecycle just skips sends.
	var notifier service.Notifier
	if cfg.Kafka.Enabled {
		emailProducer := producer.NewEmailProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer emailProducer.Close()
		notifier = producer.NewOrderEmailNotifier(emailProducer, profiles)
		log.Info("kafka email notifier enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	orders := service.NewOrderService(repos, notifier, log)
	checkout := service.NewCheckoutService(repos, catalog, profiles, shipping, payments, log)
	inventory := service.NewInventoryService(repos, log)
	discounts := service.NewDiscountService(repos, log)
	carts := service.NewCartService(repos, catalog, log)
	webhooks := service.NewWebhookService(repos, orders, log)

	sweeper := expiry.NewSweeper(repos.Orders, orders,
		cfg.Expiry.SweepInterval, cfg.Expiry.HoldWindow, appMetrics, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handler := httptransport.NewHandler(checkout, orders, inventory, discounts, carts, webhooks, appMetrics, log)
	router := httptransport.NewRouter(handler, appMetrics, cfg.Payment.WebhookSecret, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("starting HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("HTTP server stopped gracefully")
}
