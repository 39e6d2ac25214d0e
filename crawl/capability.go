package crawl

import (
	"context"
	"time"

	"github.com/scriptnet/manuwatch/tracker"
)

// Capability is the headless-browser surface the orchestrator drives. One
// capability instance is exclusive to one crawl and must be released with
// Close on every exit path.
type Capability interface {
	// Pages returns every open page. A freshly acquired capability has
	// exactly one.
	Pages() ([]Page, error)
	Close() error
}

// Factory acquires a fresh, exclusive Capability for one crawl.
type Factory func(ctx context.Context) (Capability, error)

// Page is one top-level browsing context.
type Page interface {
	// Navigate loads url and waits until network activity settles.
	Navigate(ctx context.Context, url string) error
	// Frame resolves the nested browsing context behind an iframe selector.
	Frame(ctx context.Context, selector string) (Frame, error)
	// Root returns the page's own frame, for vendors without an iframe shell.
	Root() Frame
	// WaitNavigation blocks until the next navigation settles, e.g. after a
	// form submit.
	WaitNavigation(ctx context.Context) error
	// SetTimeout bounds every subsequent operation on this page.
	SetTimeout(d time.Duration)
	Cookies() ([]tracker.Cookie, error)
	SetCookies(cookies []tracker.Cookie) error
}

// Frame is a browsing context supporting DOM queries and form input.
type Frame interface {
	// WaitVisible waits for selector to appear. A timeout of 0 uses the
	// page default.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Elements returns all current matches without waiting.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// Type focuses selector and types text one keystroke at a time.
	Type(ctx context.Context, selector, text string, perKey time.Duration) error
	Click(ctx context.Context, selector string) error
}

// Element is one DOM node scope.
type Element interface {
	// Text returns the text of the first descendant matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// Texts returns the text of every descendant matching selector.
	Texts(ctx context.Context, selector string) ([]string, error)
	Has(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
	// WaitVisible waits for a descendant matching selector to appear.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
}
