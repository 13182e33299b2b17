package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"restaurant-backend/order-service/internal/client"
	"restaurant-backend/order-service/internal/config"
	"restaurant-backend/order-service/internal/consumer"
	"restaurant-backend/order-service/internal/db"
	"restaurant-backend/order-service/internal/order"
	"restaurant-backend/order-service/internal/registry"
	"restaurant-backend/order-service/internal/transport"
	"restaurant-backend/pkg/messaging"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "order-service").Logger()

	log.Info().Msg("Order service starting...")

	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	mqConn, err := messaging.Connect(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer mqConn.Close()

	repo := order.NewRepository(dbConn.Pool)
	reg := registry.NewRepository(dbConn.Pool)
	menuClient := client.NewMenuClient(cfg.Services.MenuURL)
	kitchenClient := client.NewKitchenClient(cfg.Services.KitchenURL)
	billingClient := client.NewBillingClient(cfg.Services.BillingURL)
	publisher := messaging.NewPublisher(mqConn)

	svc := order.NewService(repo, reg, menuClient, kitchenClient, billingClient, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dishReady := consumer.NewDishReadyConsumer(mqConn, svc)
	go func() {
		if err := dishReady.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("Dish-ready consumer failed")
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      transport.NewRouter(svc),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
