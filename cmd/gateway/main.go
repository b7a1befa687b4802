package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/AgenticDao/CryptoA2A/internal/api"
	"github.com/AgenticDao/CryptoA2A/internal/api/middleware"
	"github.com/AgenticDao/CryptoA2A/internal/auth"
	"github.com/AgenticDao/CryptoA2A/internal/config"
	"github.com/AgenticDao/CryptoA2A/internal/handlers"
	"github.com/AgenticDao/CryptoA2A/internal/ledger"
	"github.com/AgenticDao/CryptoA2A/internal/store"
	"github.com/AgenticDao/CryptoA2A/internal/tx"
	"github.com/AgenticDao/CryptoA2A/internal/wallet"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the primary store: Postgres in production, SQLite for
	// local development.
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		dataStore = sqliteStore
		logger.Info().Msg("using SQLite store")
	}

	// Initialize Redis store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	} else {
		logger.Fatal().Msg("REDIS_URL is required for challenge and envelope storage")
	}

	// Gateway wallet
	signer, err := wallet.NewProvider("local", wallet.Config{Chain: cfg.Chain, Seed: cfg.WalletSeed})
	if err != nil {
		logger.Fatal().Err(err).Msg("wallet init failed")
	}
	if err := signer.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Msg("wallet connect failed")
	}
	defer signer.Disconnect(context.Background())

	// Protocol services
	authSvc := auth.New(cfg.TokenTTL)
	manager := tx.NewManager(cfg.Chain)
	devLedger := ledger.NewDevLedger(5 * time.Second)

	h := handlers.NewHandler(handlers.Deps{
		DataStore:    dataStore,
		Redis:        redisStore,
		Auth:         authSvc,
		SigningKey:   []byte(cfg.TokenSecret),
		Manager:      manager,
		Signer:       signer,
		Broadcaster:  devLedger,
		StatusQuery:  devLedger,
		ChallengeTTL: cfg.ChallengeTTL,
	})
	authMW := middleware.NewAuthMiddleware(authSvc, []byte(cfg.TokenSecret), dataStore)

	router := api.NewRouter(logger, h, authMW, redisStore)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("chain", cfg.Chain).
			Msg("starting A2A gateway")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server stopped")
}
