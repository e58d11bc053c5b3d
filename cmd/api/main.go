package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/taskmanager/taskmanager-go/internal/config"
	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/memory"
	"github.com/taskmanager/taskmanager-go/internal/handler"
	"github.com/taskmanager/taskmanager-go/internal/metrics"
	"github.com/taskmanager/taskmanager-go/internal/repository"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openStore(ctx, cfg)

	users := repository.NewUserRepository(store)
	if err := users.EnsureIndexes(ctx); err != nil {
		slog.Warn("user indexes deferred until the store is reachable", "error", err)
	}

	tasks := repository.NewTaskRepository(store)
	m := metrics.New()

	creds := service.NewCredentialStore(users, crypto.DefaultHashParams())
	sessions := service.NewSessionManager(users, cfg.SessionTTL, m)
	tokens := service.NewTokenIssuer(users, cfg.JWTSecret, cfg.AccessTokenTTL)
	lists := service.NewListService(repository.NewListRepository(store), tasks)

	r := handler.NewRouter(ctx, handler.Deps{
		Credentials:   creds,
		Sessions:      sessions,
		Tokens:        tokens,
		Auth:          service.NewAuthService(creds, sessions, tokens),
		Lists:         lists,
		Tasks:         service.NewTaskService(lists, tasks),
		Metrics:       m,
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateRPS:   cfg.AuthRateRPS,
		AuthRateBurst: cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		slog.Error("closing store", "error", err)
	}

	slog.Info("server stopped")
}

// openStore connects the configured backend. Unreachable servers are only
// logged by the backends; an error here means the backend could not be set up
// at all, e.g. a malformed DSN or a failed migration. Outside production the
// process then keeps serving from an empty in-memory store.
func openStore(ctx context.Context, cfg config.Config) docstore.Store {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := repository.OpenStore(connectCtx, repository.StoreOptions{
		Driver:        cfg.StoreDriver,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		MySQLDSN:      cfg.DatabaseDSN,
		PostgresDSN:   cfg.PostgresDSN,
	})
	if err != nil {
		if cfg.IsProduction() {
			slog.Error("store setup failed", "driver", cfg.StoreDriver, "error", err)
			os.Exit(1)
		}
		slog.Error("store setup failed, falling back to in-memory store", "driver", cfg.StoreDriver, "error", err)
		return memory.New()
	}
	return store
}

func setupLogger(cfg config.Config) {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
