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

	"github.com/Aaron-1990/line-routing/pkg/api"
	"github.com/Aaron-1990/line-routing/pkg/auth"
	"github.com/Aaron-1990/line-routing/pkg/backup"
	"github.com/Aaron-1990/line-routing/pkg/config"
	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/metrics"
	"github.com/Aaron-1990/line-routing/pkg/notify"
	"github.com/Aaron-1990/line-routing/pkg/pubsub"
	"github.com/Aaron-1990/line-routing/pkg/store"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (or set ROUTING_CONFIG)")
	flag.Parse()

	if *configPath == "" {
		*configPath = os.Getenv("ROUTING_CONFIG")
	}
	if *configPath == "" {
		*configPath = "routing.yaml"
	}

	// Structured logging at the process boundary
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("routingd starting",
		"version", version,
		"backend", cfg.Store.Backend,
		"addr", cfg.ListenAddr(),
		"auth", cfg.Auth.Enabled,
		"notify", cfg.Notify.Enabled,
	)

	// Components log through the shared JSON logger at the configured level.
	appLogger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	reg := metrics.DefaultRegistry()

	repo, err := buildRepository(cfg)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}

	bus := pubsub.NewBus()
	svc := store.NewService(repo, bus, appLogger, reg)

	opts := api.Options{
		Logger:       appLogger,
		Registry:     reg,
		AuthEnabled:  cfg.Auth.Enabled,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Version:      version,
	}

	if cfg.Auth.Enabled {
		jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std())
		if err != nil {
			logger.Error("failed to initialize token manager", "error", err)
			os.Exit(1)
		}
		userStore := auth.NewUserStore()
		for _, u := range cfg.Auth.Users {
			if _, err := userStore.SeedUser(u.Username, u.PasswordHash, u.Role); err != nil {
				logger.Error("failed to seed user", "username", u.Username, "error", err)
				os.Exit(1)
			}
		}
		opts.JWTManager = jwtManager
		opts.UserStore = userStore
		opts.APIKeyStore = auth.NewAPIKeyStore(cfg.Auth.APIKeys)
		logger.Info("authentication enabled",
			"users", userStore.Len(),
			"api_keys", opts.APIKeyStore.Len(),
		)
	}

	var publisher *notify.Publisher
	if cfg.Notify.Enabled {
		publisher, err = notify.NewPublisher(bus, notify.PublisherConfig{Addr: cfg.Notify.PubAddr}, appLogger, reg)
		if err != nil {
			logger.Error("failed to create change publisher", "error", err)
			os.Exit(1)
		}
		if err := publisher.Start(); err != nil {
			logger.Error("failed to start change publisher", "addr", cfg.Notify.PubAddr, "error", err)
			os.Exit(1)
		}
		logger.Info("change notifications enabled", "addr", publisher.Addr())
	}

	backupMgr, err := buildBackupManager(cfg, svc, appLogger, reg)
	if err != nil {
		logger.Error("failed to configure snapshot sinks", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(svc, opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ListenAddr(), cfg.Server.ReadTimeout.Std(), cfg.Server.WriteTimeout.Std())
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown did not drain cleanly", "error", err)
	}

	// Snapshot the routings before the store goes away. With the memory
	// backend this is the only durable copy.
	if backupMgr != nil {
		if name, err := backupMgr.Snapshot(ctx); err != nil {
			logger.Error("shutdown snapshot failed", "error", err)
		} else {
			logger.Info("shutdown snapshot written", "snapshot", name)
		}
	}

	if publisher != nil {
		publisher.Stop()
	}
	bus.Shutdown()
	if err := svc.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
	}
	logger.Info("routingd exited")
}

// buildRepository opens the persistence backend named by the config.
func buildRepository(cfg *config.Config) (store.Repository, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return store.NewSQLiteRepository(cfg.Store.Path)
	case config.BackendPostgres:
		return store.NewPostgresRepository(context.Background(), cfg.Store.DSN)
	default:
		return store.NewMemoryRepository(), nil
	}
}

// buildBackupManager wires the snapshot sinks: the local directory
// always, S3 when a bucket is configured.
func buildBackupManager(cfg *config.Config, svc *store.Service, logger logging.Logger, reg *metrics.Registry) (*backup.Manager, error) {
	var sinks []backup.Sink

	if cfg.Backup.Dir != "" {
		local, err := backup.NewLocalSink(cfg.Backup.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, local)
	}

	if cfg.Backup.S3Bucket != "" {
		s3sink, err := backup.NewS3Sink(context.Background(), backup.S3Config{
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			Prefix:    cfg.Backup.S3Prefix,
			Endpoint:  cfg.Backup.S3Endpoint,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3sink)
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	return backup.NewManager(svc, logger, reg, sinks...), nil
}
