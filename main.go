package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/blog-client/internal/api"
	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/config"
	"github.com/isdelr/blog-client/internal/database"
	"github.com/isdelr/blog-client/internal/logger"
	"github.com/isdelr/blog-client/internal/monitoring"
	"github.com/isdelr/blog-client/internal/session"
	"github.com/isdelr/blog-client/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up the token store
	var store tokenstore.Store
	switch cfg.TokenStore {
	case "memory":
		store = tokenstore.NewMemoryStore()
	case "sqlite":
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
		store = tokenstore.NewSQLiteStore(db)
	default:
		log.Fatal().Str("token_store", cfg.TokenStore).Msg("Unknown token store")
	}

	client := apiclient.New(cfg.APIBaseURL, store)

	// Restore a previous session, if any
	sess, err := session.New(context.Background(), client, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read stored session")
	}
	checkCtx, cancelCheck := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sess.Check(checkCtx); err != nil {
		log.Warn().Err(err).Msg("Starting signed out")
	}
	cancelCheck()

	// Periodically confirm the stored token is still accepted
	var monitor *monitoring.SessionMonitor
	if cfg.SessionCheck != "" {
		monitor, err = monitoring.NewSessionMonitor(sess, cfg.SessionCheck, 10*time.Second)
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.SessionCheck).Msg("Invalid session check schedule")
		}
		if err := monitor.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start session monitor")
		}
	}

	// Set up router
	router, err := api.NewRouter(cfg, client, sess)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up router")
	}

	// Set up server
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("api", client.BaseURL()).Msg("Blog client starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if monitor != nil {
		monitor.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
