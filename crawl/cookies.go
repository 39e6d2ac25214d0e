package crawl

import (
	"fmt"
	"log/slog"

	"github.com/scriptnet/manuwatch/tracker"
)

// RestoreCookies installs the store's persisted session into every open
// page of the capability. It must run before any navigation. An empty
// cookie set is the first-run case and a no-op.
func RestoreCookies(store *tracker.Store, capability Capability, logger *slog.Logger) error {
	if len(store.Cookies) == 0 {
		return nil
	}

	logger.Debug("crawl: loading cookies", "store", store.ID, "count", len(store.Cookies))

	pages, err := capability.Pages()
	if err != nil {
		return fmt.Errorf("crawl: list pages: %w", err)
	}
	for _, p := range pages {
		if err := p.SetCookies(store.Cookies); err != nil {
			return fmt.Errorf("crawl: set cookies: %w", err)
		}
	}

	logger.Info("crawl: loaded cookies", "store", store.ID, "count", len(store.Cookies))
	return nil
}

// PersistCookies overwrites the store's cookie set with the concatenation
// of every open page's current cookies. The old set is discarded whole;
// stale and fresh cookies are never merged.
func PersistCookies(store *tracker.Store, capability Capability, logger *slog.Logger) error {
	pages, err := capability.Pages()
	if err != nil {
		return fmt.Errorf("crawl: list pages: %w", err)
	}

	cookies := []tracker.Cookie{}
	for _, p := range pages {
		got, err := p.Cookies()
		if err != nil {
			return fmt.Errorf("crawl: read cookies: %w", err)
		}
		cookies = append(cookies, got...)
	}

	store.Cookies = cookies
	logger.Info("crawl: persisted cookies", "store", store.ID, "count", len(cookies))
	return nil
}
