package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alejandrodnm/edgebot/config"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/application/engine"
	"github.com/alejandrodnm/edgebot/internal/metrics"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one evaluation cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full decision table per cycle (default: compact 1-line)")
	report := flag.Bool("report", false, "print trade report from storage and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		if err := runReport(ctx, store, notify.NewConsole(true)); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("edgebot starting",
		"config", *configPath,
		"mode", cfg.Mode,
		"interval", cfg.PollInterval(),
		"once", *once,
	)

	app, err := build(cfg, store, notify.NewConsole(*table || *once))
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	metrics.Serve(ctx, cfg.Metrics.Addr, nil)

	if *once {
		if _, err := app.engine.RunCycle(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
		}
		app.engine.Wait()
		return
	}

	runner := engine.NewRunner(ctx, app.engine)
	if err := runner.Every(cfg.PollInterval()); err != nil {
		slog.Error("failed to schedule cycle", "err", err)
		os.Exit(1)
	}
	if err := runner.Daily(dailyJob(store)); err != nil {
		slog.Error("failed to schedule daily summary", "err", err)
		os.Exit(1)
	}
	runner.Start()

	<-ctx.Done()
	slog.Info("shutdown requested, draining in-flight executions")
	runner.Stop()

	grace := time.Duration(cfg.Engine.ShutdownGraceSeconds) * time.Second
	shutdownCtx, stop := context.WithTimeout(context.Background(), grace)
	defer stop()
	app.engine.Shutdown(shutdownCtx)

	slog.Info("edgebot stopped cleanly")
}

// dailyJob construye y persiste el resumen del día terminado.
func dailyJob(store *storage.SQLiteStorage) engine.DailyJob {
	return func(ctx context.Context, day time.Time) error {
		d, err := store.BuildDaily(ctx, day)
		if err != nil {
			return err
		}
		if err := store.SaveDaily(ctx, d); err != nil {
			return err
		}
		slog.Info("daily summary saved", "date", d.Date.Format(time.DateOnly), "admitted", d.Admitted, "filled", d.FilledTotal)
		return nil
	}
}

func runReport(ctx context.Context, store *storage.SQLiteStorage, console *notify.Console) error {
	stats, err := store.GetTradeStats(ctx, time.Time{}, time.Now())
	if err != nil {
		return err
	}
	dailies, err := store.GetDailies(ctx)
	if err != nil {
		return err
	}
	console.PrintReport(notify.ReportInput{Stats: stats, Dailies: dailies})
	return nil
}

// setupLogger configura slog. Si cfg.File está definido, el log va también
// a un fichero rotado por lumberjack.
func setupLogger(cfg config.LogConfig) func() {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // días
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
		closeFn = func() { _ = rotating.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn
}
