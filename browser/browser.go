// Package browser implements the crawl capability on go-rod: Chrome
// launch/connect, stealth pages, cookie transfer, and navigation with
// bounded timeouts. One Capability wraps one Chrome instance and is
// exclusive to one crawl.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/scriptnet/manuwatch/crawl"
)

// Config configures browser acquisition.
type Config struct {
	// ControlURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	ControlURL string

	// Headful disables headless mode, for debugging against a display.
	Headful bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Capability launches (or connects to) Chrome and opens a single stealth
// page. The returned value implements crawl.Capability; Close tears down
// the page, the browser connection, and the launched Chrome process.
func Capability(ctx context.Context, cfg Config) (crawl.Capability, error) {
	cfg.defaults()

	var (
		wsURL string
		lnch  *launcher.Launcher
	)

	if cfg.ControlURL != "" {
		wsURL = cfg.ControlURL
		cfg.Logger.Debug("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(!cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		lnch = l
		cfg.Logger.Debug("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.Close()
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	return &capability{browser: b, lnch: lnch, page: &pageAdapter{page: page}}, nil
}

type capability struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *pageAdapter
}

func (c *capability) Pages() ([]crawl.Page, error) {
	return []crawl.Page{c.page}, nil
}

func (c *capability) Close() error {
	err := c.browser.Close()
	if c.lnch != nil {
		c.lnch.Cleanup()
	}
	return err
}

// sleep waits d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
