// Package crawl maintains an authenticated browser session against an
// editorial-management portal and turns the tracked submission's listing
// into a normalized state snapshot.
//
// A crawl is one sequential flow: acquire an exclusive browser capability,
// restore the persisted session cookies, probe the tracker page
// optimistically, fall back to the vendor login flow at most once, persist
// whatever cookies the browser then holds, and extract the submission
// fields. The capability is released on every exit path.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scriptnet/manuwatch/tracker"
)

// LoginNotifier announces a suspected re-authentication mid-crawl to the
// store's listeners. Delivery is best effort: a failure never aborts the
// login flow.
type LoginNotifier func(ctx context.Context, listeners []tracker.Listener, message string) error

// Config tunes crawl timeouts and logging.
type Config struct {
	// DefaultTimeout bounds every page operation. Default: 20s.
	DefaultTimeout time.Duration
	// ProbeTimeout bounds the optimistic entry probe under the restored
	// session. Deliberately short: an expired session should fail fast into
	// the login path. Default: 5s.
	ProbeTimeout time.Duration
	// KeyDelay is the per-keystroke delay while typing credentials,
	// simulating human input to reduce anti-bot friction. Default: 100ms.
	KeyDelay time.Duration

	// LoginNotifier, when set, is invoked before the login fallback runs.
	LoginNotifier LoginNotifier

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 20 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.KeyDelay <= 0 {
		c.KeyDelay = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Crawler produces State snapshots for tracked submissions.
type Crawler struct {
	factory Factory
	cfg     Config
}

// New creates a Crawler that acquires one capability per crawl from factory.
func New(factory Factory, cfg Config) *Crawler {
	cfg.defaults()
	return &Crawler{factory: factory, cfg: cfg}
}

// Crawl fetches the current state of the store's submission. It mutates
// store.Cookies exactly once, on every outcome, with the cookie set the
// browser holds after the final navigation.
func (c *Crawler) Crawl(ctx context.Context, store *tracker.Store) (tracker.State, error) {
	log := c.cfg.Logger

	if !store.Enabled {
		return tracker.State{}, fmt.Errorf("%w: %s", ErrStoreDisabled, store.ID)
	}

	portal, err := ForPortal(store.Portal)
	if err != nil {
		return tracker.State{}, err
	}

	capability, err := c.factory(ctx)
	if err != nil {
		return tracker.State{}, fmt.Errorf("crawl: acquire browser: %w", err)
	}
	defer capability.Close()

	pages, err := capability.Pages()
	if err != nil {
		return tracker.State{}, fmt.Errorf("crawl: list pages: %w", err)
	}
	if len(pages) == 0 {
		return tracker.State{}, fmt.Errorf("crawl: capability has no pages")
	}
	for _, p := range pages {
		p.SetTimeout(c.cfg.DefaultTimeout)
	}
	page := pages[0]

	if err := RestoreCookies(store, capability, log); err != nil {
		return tracker.State{}, err
	}

	// Cookies reflect the final session, whichever path produced it.
	defer func() {
		if err := PersistCookies(store, capability, log); err != nil {
			log.Warn("crawl: persist cookies failed", "store", store.ID, "error", err)
		}
	}()

	// Optimistic entry: the restored session may still be valid.
	f, err := c.enter(ctx, page, portal, store.Tracker, c.cfg.ProbeTimeout, true)
	if err != nil {
		log.Info("crawl: login required", "store", store.ID, "reason", err)
		c.announceLogin(ctx, store)

		if err := c.login(ctx, page, portal, store); err != nil {
			return tracker.State{}, err
		}

		// One attempt only. Failing to reach the tracker content after a
		// completed login flow is fatal.
		f, err = c.enter(ctx, page, portal, store.Tracker, c.cfg.DefaultTimeout, false)
		if err != nil {
			return tracker.State{}, err
		}
	}

	st := portal.Extract(ctx, f, store.SubmissionID)
	log.Info("crawl: extracted state", "store", store.ID,
		"ref", st.Ref, "status", st.Status, "modified", st.Modified)
	return st, nil
}

// enter navigates to the tracker page and waits for the authenticated
// content marker inside the vendor's content frame. While probing, every
// failure maps to ErrSessionProbe so the caller falls through to login;
// afterwards a missing frame is ErrContentFrame and a missing marker is
// ErrLoginFlow.
func (c *Crawler) enter(ctx context.Context, page Page, portal Portal, url string, timeout time.Duration, probing bool) (Frame, error) {
	if err := page.Navigate(ctx, url); err != nil {
		if probing {
			return nil, fmt.Errorf("%w: navigate: %v", ErrSessionProbe, err)
		}
		return nil, fmt.Errorf("%w: navigate: %v", ErrContentFrame, err)
	}

	f, err := portal.Content(ctx, page)
	if err != nil {
		if probing {
			return nil, fmt.Errorf("%w: %v", ErrSessionProbe, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrContentFrame, err)
	}

	if err := portal.WaitReady(ctx, f, timeout); err != nil {
		if probing {
			return nil, fmt.Errorf("%w: %v", ErrSessionProbe, err)
		}
		return nil, fmt.Errorf("%w: tracker content after login: %v", ErrLoginFlow, err)
	}
	return f, nil
}

func (c *Crawler) login(ctx context.Context, page Page, portal Portal, store *tracker.Store) error {
	if err := page.Navigate(ctx, store.Login); err != nil {
		return fmt.Errorf("%w: navigate login page: %v", ErrLoginFlow, err)
	}
	if err := portal.Login(ctx, page, store.Credentials, c.cfg.KeyDelay); err != nil {
		if !errors.Is(err, ErrLoginFlow) {
			err = fmt.Errorf("%w: %v", ErrLoginFlow, err)
		}
		return err
	}
	return nil
}

func (c *Crawler) announceLogin(ctx context.Context, store *tracker.Store) {
	if c.cfg.LoginNotifier == nil {
		return
	}
	msg := fmt.Sprintf("Re-authentication in progress for submission %s", store.SubmissionID)
	if err := c.cfg.LoginNotifier(ctx, store.Listeners, msg); err != nil {
		c.cfg.Logger.Warn("crawl: login notification failed", "store", store.ID, "error", err)
	}
}
