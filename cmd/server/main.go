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
	"time"

	"accounts/backend/internal/config"
	domain "accounts/backend/internal/domain/auth"
	"accounts/backend/internal/httpserver"
	"accounts/backend/internal/infrastructure/memory"
	"accounts/backend/internal/infrastructure/postgres"
	"accounts/backend/internal/infrastructure/sqlite"
	"accounts/backend/internal/infrastructure/token"
	"accounts/backend/internal/metrics"
	authusecase "accounts/backend/internal/usecase/auth"
	userusecase "accounts/backend/internal/usecase/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", slog.String("env", cfg.Env))

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	repo, closeStore, err := openStore(rootCtx, cfg.DB, log)
	if err != nil {
		log.Error("storage_init_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	defer closeStore()

	tokenManager := token.NewJWTManager([]byte(cfg.Auth.SecretKey), cfg.Auth.TokenTTL())
	authService := authusecase.NewService(
		authusecase.NewCredentialVerifier(repo, cfg.Auth.BcryptCost),
		repo,
		tokenManager,
	)
	userService := userusecase.NewService(repo, cfg.Auth.BcryptCost)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := httpserver.NewServer(cfg.HTTP, httpserver.Deps{
		Log:         log,
		AuthService: authService,
		UserService: userService,
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
	})

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", server.Addr()))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful_shutdown_failed", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

// openStore opens the backend selected by DATABASE_URL and returns it with its
// closer.
func openStore(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (domain.UserRepository, func(), error) {
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	switch cfg.Driver() {
	case config.DriverMemory:
		log.Warn("DATABASE_URL not set, using in-memory store")
		return memory.NewUserRepository(), func() {}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(dbCtx, cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite_opened", slog.String("path", cfg.SQLitePath()))
		return store, func() { _ = store.Close() }, nil

	default:
		db, err := postgres.New(dbCtx, cfg.DatabaseURL, postgres.WithMaxConns(cfg.MaxConns))
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(dbCtx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("postgres_connected")
		return postgres.NewUserRepository(db.Pool), db.Close, nil
	}
}

// setupLogger picks the handler by environment; anything but dev and prod
// gets human-readable debug output.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
