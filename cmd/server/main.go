package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/stong1994/secret-book-server/internal/config"
	"github.com/stong1994/secret-book-server/internal/database"
	"github.com/stong1994/secret-book-server/internal/handlers"
	"github.com/stong1994/secret-book-server/internal/logging"
	"github.com/stong1994/secret-book-server/internal/repositories"
	"github.com/stong1994/secret-book-server/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	slog.SetDefault(log)

	// Initialize storage
	var store repositories.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		store = repositories.NewMemoryStore()
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.URL, database.PoolOptions{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		log.Info("postgres ready")
		store = repositories.NewPostgresStore(pool)
	}

	var cache repositories.LookupCache
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		cache = repositories.NewRedisLookupCache(redisClient, cfg.Redis.LookupTTL)
		log.Info("lookup cache enabled", slog.Duration("ttl", cfg.Redis.LookupTTL))
	}

	ingest := services.NewIngestService(store, log, services.IngestOptions{
		StrictCreate: cfg.Ingest.StrictCreate,
		Cache:        cache,
	})
	query := services.NewQueryService(store, cache, log)

	routerOpts := handlers.RouterOptions{AllowedOrigins: cfg.CORS.AllowedOrigins}
	if cfg.Auth.JWTSecret != "" {
		routerOpts.Verifier = services.NewAuthService(cfg.Auth.JWTSecret)
	} else {
		log.Warn("auth.jwt_secret not set; /push accepts unauthenticated writes")
	}

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handlers.NewRouter(handlers.NewHandler(ingest, query, log), log, routerOpts),
		ReadTimeout:  cfg.Application.ReadTimeout,
		WriteTimeout: cfg.Application.WriteTimeout,
	}

	// graceful shutdown
	shutdownErr := make(chan error, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Application.ShutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	log.Info("starting server", slog.String("addr", server.Addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
