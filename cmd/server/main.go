package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/casesync/internal/config"
	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/logging"
	"github.com/JonMunkholm/casesync/internal/metrics"
	"github.com/JonMunkholm/casesync/internal/shiphero"
	"github.com/JonMunkholm/casesync/internal/store"
	"github.com/JonMunkholm/casesync/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"batch_size", cfg.Processing.BatchSize,
		"row_delay", cfg.Processing.RowDelay,
		"throttle", cfg.Processing.Throttle,
		"max_concurrent", cfg.Processing.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_enabled", cfg.Database.Enabled(),
	)

	client := shiphero.NewClient(
		shiphero.WithAPIURL(cfg.ShipHero.APIURL),
		shiphero.WithAuthURL(cfg.ShipHero.AuthURL),
		shiphero.WithTimeout(cfg.ShipHero.Timeout),
	)

	pacer, err := core.NewPacer(cfg.Processing.Throttle, cfg.Processing.RowDelay)
	if err != nil {
		slog.Error("invalid throttle", "error", err)
		os.Exit(1)
	}

	limiter := core.NewProcessLimiter(cfg.Processing.MaxConcurrent, cfg.Processing.MaxWaitTime)
	m := metrics.New()
	m.TrackLimiter(limiter)

	opts := []core.Option{
		core.WithPacer(pacer),
		core.WithBatchSize(cfg.Processing.BatchSize),
		core.WithMaxErrors(cfg.Processing.MaxErrors),
		core.WithLimiter(limiter),
		core.WithObserver(m),
		core.WithRunTimeout(cfg.Processing.Timeout),
	}
	serverOpts := []web.Option{web.WithMetrics(m)}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.Database.Enabled() {
		st, err := store.Open(jobCtx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.Migrate(jobCtx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		slog.Info("history database ready")

		opts = append(opts, core.WithRecorder(st))
		serverOpts = append(serverOpts,
			web.WithHistory(st),
			web.WithPresets(core.NewPresets(st)),
			web.WithPinger(st),
		)

		go st.StartPruneScheduler(jobCtx, cfg.Database.HistoryRetention, cfg.Database.PruneInterval)
	}

	service := core.NewService(client, opts...)
	stash := core.NewFileStash(cfg.Upload.FileTTL,
		core.WithStashLimits(cfg.Upload.StashMaxFiles, cfg.Upload.StashMaxBytes),
	)
	server := web.NewServer(cfg, service, client, stash, serverOpts...)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests first, then wait for runs already in flight.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for processing runs to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("processing runs did not complete in time", "error", err)
			} else {
				slog.Info("all processing runs completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}
