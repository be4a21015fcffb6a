package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/hpcq/internal/config"
	"github.com/me/hpcq/internal/engine"
	"github.com/me/hpcq/internal/logging"
	"github.com/me/hpcq/internal/runner"
	"github.com/me/hpcq/internal/server"
	"github.com/me/hpcq/internal/store"
	"github.com/me/hpcq/pkg/model"
	"github.com/robfig/cron/v3"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")

	// Flags override config file values, which override the defaults.
	addr := flag.String("addr", "", "Listen address")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	dbDriver := flag.String("db-driver", "", "Database driver: sqlite, postgres")
	dbPath := flag.String("db", "", "SQLite database path (default ~/.hpcq/hpcq.db)")
	dbConn := flag.String("db-conn", "", "Postgres connection string")
	quantum := flag.Int("quantum", 0, "Round Robin time slice in seconds")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	applyFlag(&cfg.Addr, *addr)
	applyFlag(&cfg.LogLevel, *logLevel)
	applyFlag(&cfg.LogFormat, *logFormat)
	applyFlag(&cfg.DBDriver, *dbDriver)
	applyFlag(&cfg.DBPath, *dbPath)
	applyFlag(&cfg.DBConn, *dbConn)
	if *quantum > 0 {
		cfg.Quantum = *quantum
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	st, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "driver", cfg.DBDriver)

	eng := engine.New(engine.Config{Quantum: cfg.Quantum}, logger)
	run := runner.New(st, eng, logger)
	srv := server.New(cfg, st, run, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional automatic drain on a cron schedule (the facility's batch window).
	var autoDrain *cron.Cron
	if cfg.DrainSchedule != "" {
		alg, err := model.ParseAlgorithm(cfg.DrainAlgorithm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "drain_algorithm: %v\n", err)
			os.Exit(1)
		}

		autoDrain = cron.New()
		_, err = autoDrain.AddFunc(cfg.DrainSchedule, func() {
			report, err := run.Drain(ctx, alg)
			if err != nil {
				logger.Error("scheduled drain failed", "error", err)
				return
			}
			logger.Info("scheduled drain complete",
				"run_id", report.RunID,
				"jobs", report.JobsScheduled,
			)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "drain_schedule %q: %v\n", cfg.DrainSchedule, err)
			os.Exit(1)
		}
		autoDrain.Start()
		logger.Info("automatic drain enabled", "schedule", cfg.DrainSchedule, "algorithm", alg)
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if autoDrain != nil {
		<-autoDrain.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func openStore(cfg config.ServerConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("db-conn is required for the postgres driver")
		}
		return store.NewPostgresStore(context.Background(), cfg.DBConn, logger)
	case "", "sqlite":
		path := cfg.DBPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home directory: %w", err)
			}
			dir := filepath.Join(home, ".hpcq")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
			path = filepath.Join(dir, "hpcq.db")
		}
		return store.NewSQLiteStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}
