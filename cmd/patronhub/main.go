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

	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/alexmgee/patron-hub/internal/api"
	"github.com/alexmgee/patron-hub/internal/config"
	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/downloader"
	"github.com/alexmgee/patron-hub/internal/publisher"
	"github.com/alexmgee/patron-hub/internal/scheduler"
	"github.com/alexmgee/patron-hub/internal/service"
	"github.com/alexmgee/patron-hub/internal/settings"
	"github.com/alexmgee/patron-hub/internal/source/patreon"
	"github.com/alexmgee/patron-hub/internal/source/stub"
	"github.com/alexmgee/patron-hub/internal/storage/objectstore"
	"github.com/alexmgee/patron-hub/internal/storage/postgres"
)

const shutdownTimeout = 30 * time.Second

type options struct {
	Config      string `long:"config" env:"PATRON_HUB_CONFIG" default:"config.yaml" description:"Path to the YAML config file"`
	LogLevel    string `long:"log-level" env:"PATRON_HUB_LOG_LEVEL" description:"Override the configured log level (debug, info, warn, error)"`
	MigrateOnly bool   `long:"migrate-only" description:"Apply database migrations and exit"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	version, dirty, err := postgres.Migrate(db)
	if err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrated", "version", version, "dirty", dirty)
	if opts.MigrateOnly {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, db, logger); err != nil {
		logger.Error("patron hub stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, db *sqlx.DB, logger *slog.Logger) error {
	// Stores
	creatorStore := postgres.NewCreatorStore(db)
	subscriptionStore := postgres.NewSubscriptionStore(db)
	contentStore := postgres.NewContentStore(db)
	assetStore := postgres.NewAssetStore(db)
	downloadStore := postgres.NewDownloadStore(db)
	harvestStore := postgres.NewHarvestStore(db)
	syncLogStore := postgres.NewSyncLogStore(db)
	txManager := postgres.NewTransactionManager(db)

	runtimeSettings := settings.NewResolver(postgres.NewSettingsStore(db), domain.Settings{
		ArchiveDir:   cfg.Archive.Dir,
		AutoDownload: true,
		AutoSync:     cfg.Sync.AutoSync,
	})

	patreonSource, err := patreon.New(patreon.Config{
		BaseURL:        cfg.Patreon.BaseURL,
		UserAgent:      cfg.Patreon.UserAgent,
		Timeout:        cfg.Patreon.Timeout,
		PageCount:      cfg.Patreon.PageCount,
		MaxPages:       cfg.Patreon.MaxPages,
		MaxAttempts:    cfg.Patreon.Retry.MaxAttempts,
		InitialBackoff: cfg.Patreon.Retry.InitialBackoff,
		MaxBackoff:     cfg.Patreon.Retry.MaxBackoff,
	}, logger)
	if err != nil {
		return err
	}
	sources := []service.Source{patreonSource}
	for _, src := range stub.All() {
		sources = append(sources, src)
	}

	executor := downloader.New(downloader.Config{
		Timeout:        cfg.Downloader.Timeout,
		MaxRedirects:   cfg.Downloader.MaxRedirects,
		TrustedDomains: cfg.Downloader.TrustedDomains,
		UserAgent:      cfg.Patreon.UserAgent,
	}, downloader.NewFFmpegMuxer(cfg.Downloader.FFmpegPath), logger)

	// Optional outputs stay untyped nil when disabled.
	var mirror service.Mirror
	if cfg.Archive.Mirror.Enabled {
		m, err := objectstore.NewMinioMirror(ctx, cfg.Archive.Mirror)
		if err != nil {
			return err
		}
		mirror = m
		logger.Info("archive mirror enabled", "endpoint", cfg.Archive.Mirror.Endpoint, "bucket", cfg.Archive.Mirror.Bucket)
	}

	var events service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(cfg.RabbitMQ, logger)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	// Services
	archiveService := service.NewArchiveService(
		contentStore,
		assetStore,
		downloadStore,
		patreonSource,
		executor,
		runtimeSettings,
		mirror,
		events,
		logger,
	)
	harvestQueue := service.NewHarvestQueue(
		harvestStore,
		contentStore,
		patreonSource,
		archiveService,
		runtimeSettings,
		logger,
		cfg.Harvest,
	)
	syncService := service.NewSyncService(
		sources,
		creatorStore,
		subscriptionStore,
		contentStore,
		harvestStore,
		syncLogStore,
		runtimeSettings,
		archiveService,
		harvestQueue,
		txManager,
		events,
		logger,
	)
	intake := service.NewAssetIntake(assetStore, logger)
	importService := service.NewImportService(creatorStore, subscriptionStore, contentStore, txManager, logger)

	supervisor := scheduler.NewSupervisor(
		syncService,
		postgres.NewRunLock(db),
		postgres.NewProgressStore(db),
		cfg.Sync.RunTimeout,
		cfg.Sync.LockTTL,
		logger,
	)
	sched := scheduler.NewScheduler(supervisor, runtimeSettings, cfg.Sync.Interval, logger)

	handler := api.NewHandler(
		supervisor,
		archiveService,
		contentStore,
		downloadStore,
		subscriptionStore,
		syncLogStore,
		runtimeSettings,
		harvestQueue,
		intake,
		importService,
		logger,
	)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewServer(handler, cfg.Server),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			"addr", cfg.Server.Addr,
			"api_key", cfg.Server.APIKey != "",
			"internal_api", cfg.Server.InternalToken != "",
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		logger.Error("sync shutdown", "error", err)
	}
	logger.Info("patron hub stopped")
	return runErr
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
