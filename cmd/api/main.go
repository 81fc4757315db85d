package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autohub/media/internal/config"
	"github.com/autohub/media/internal/media"
	appMiddleware "github.com/autohub/media/internal/middleware"
	"github.com/autohub/media/internal/storage"
)

func main() {
	cfg := config.Load()

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	remote, err := storage.NewMinioStore(context.Background(), storage.MinioConfig{
		Endpoint:   cfg.StorageEndpoint,
		AccessKey:  cfg.StorageAccessKey,
		SecretKey:  cfg.StorageSecretKey,
		Bucket:     cfg.StorageBucket,
		UseSSL:     cfg.StorageUseSSL,
		PublicBase: cfg.StoragePublicBase,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("object storage init failed")
	}
	if !remote.Enabled() {
		log.Warn().Msg("remote storage not configured, uploads go to the local tier only")
	}

	local, err := storage.NewLocalStore(cfg.LocalRoots, cfg.LocalPublicBase)
	if err != nil {
		log.Fatal().Err(err).Msg("local storage init failed")
	}

	// Wire dependencies: storage tiers → gateway/resolver/coordinator → handler
	gateway := media.NewGateway(remote, local)
	resolver := media.NewResolver(remote, local, media.WithReadCache(cfg.CacheSize, cfg.CacheTTL))
	coordinator := media.NewCoordinator(remote, local)
	handler := media.NewHandler(gateway, resolver, coordinator, remote, local)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Media proxy — public, placeholder on miss, never 5xx for missing assets
	r.Get("/media/*", handler.Serve)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/media", func(r chi.Router) {
			r.Post("/{folder}", handler.Upload)
			r.Delete("/", handler.Delete)
			r.Get("/diagnostics", handler.Diagnostics)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
