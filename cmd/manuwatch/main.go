// Command manuwatch tracks manuscript submissions on editorial-management
// portals and notifies listeners when a tracked status changes.
//
// Usage:
//
//	manuwatch -config manuwatch.yaml          # scheduler + admin API
//	manuwatch -crawl <store-id>               # one-shot crawl, print state
//	manuwatch -notify <store-id>              # re-send current state
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scriptnet/manuwatch/api"
	"github.com/scriptnet/manuwatch/browser"
	"github.com/scriptnet/manuwatch/config"
	"github.com/scriptnet/manuwatch/crawl"
	"github.com/scriptnet/manuwatch/notify"
	"github.com/scriptnet/manuwatch/scheduler"
	"github.com/scriptnet/manuwatch/storage"
)

func main() {
	configPath := flag.String("config", env("MANUWATCH_CONFIG", ""), "path to manuwatch.yaml config file")
	crawlID := flag.String("crawl", "", "crawl one store and print its state")
	notifyID := flag.String("notify", "", "re-send one store's current state to its listeners")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *crawlID, *notifyID); err != nil {
		logger.Error("manuwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, crawlID, notifyID string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// Secrets can stay out of the config file.
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	notifier := notify.New(logger,
		notify.NewTelegramSender(),
		notify.NewMailSender(cfg.SMTP),
	)

	factory := func(ctx context.Context) (crawl.Capability, error) {
		return browser.Capability(ctx, browser.Config{
			ControlURL: cfg.Browser.ControlURL,
			Headful:    cfg.Browser.Headful,
			Logger:     logger,
		})
	}
	crawler := crawl.New(factory, crawl.Config{
		DefaultTimeout: cfg.Crawl.DefaultTimeout,
		ProbeTimeout:   cfg.Crawl.ProbeTimeout,
		KeyDelay:       cfg.Crawl.KeyDelay,
		LoginNotifier:  notifier.NotifyTelegram,
		Logger:         logger,
	})

	switch {
	case crawlID != "":
		return runCrawl(ctx, db, crawler, crawlID)
	case notifyID != "":
		return runNotify(ctx, db, notifier, notifyID)
	default:
		return serve(ctx, logger, cfg, db, crawler, notifier)
	}
}

func runCrawl(ctx context.Context, db *storage.DB, crawler *crawl.Crawler, id string) error {
	store, err := db.Get(ctx, id)
	if err != nil {
		return err
	}

	state, crawlErr := crawler.Crawl(ctx, store)
	if err := db.SaveCookies(ctx, id, store.Cookies); err != nil {
		return err
	}
	if crawlErr != nil {
		return crawlErr
	}
	if err := db.SaveState(ctx, id, &state); err != nil {
		return err
	}

	out, _ := json.MarshalIndent(state, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runNotify(ctx context.Context, db *storage.DB, notifier *notify.Notifier, id string) error {
	store, err := db.Get(ctx, id)
	if err != nil {
		return err
	}
	return notifier.Notify(ctx, store)
}

func serve(ctx context.Context, logger *slog.Logger, cfg *config.Config, db *storage.DB, crawler *crawl.Crawler, notifier *notify.Notifier) error {
	sched := scheduler.New(db, crawler, notifier, scheduler.Config{
		Interval: cfg.Poll.Interval,
	}, logger)
	go sched.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.New(db, crawler, notifier, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("manuwatch: admin api listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin api: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("manuwatch: stopped")
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
