package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"restaurant-backend/kitchen-service/internal/config"
	"restaurant-backend/kitchen-service/internal/consumer"
	"restaurant-backend/kitchen-service/internal/db"
	"restaurant-backend/kitchen-service/internal/kitchen"
	"restaurant-backend/kitchen-service/internal/transport"
	"restaurant-backend/pkg/messaging"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "kitchen-service").Logger()

	log.Info().Msg("Kitchen service starting...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "kitchen-service/config.yaml"
	}
	cfg := config.Load(configPath)

	dbConn, err := db.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	mqConn, err := messaging.Connect(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer mqConn.Close()

	repo := kitchen.NewRepository(dbConn.Pool)
	publisher := messaging.NewPublisher(mqConn)
	svc := kitchen.NewService(repo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderSent := consumer.NewOrderSentConsumer(mqConn, svc)
	go func() {
		if err := orderSent.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("Order consumer failed")
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      transport.NewRouter(svc),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.App.Port).Msg("Starting HTTP server")
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
