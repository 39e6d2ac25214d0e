package crawl

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/scriptnet/manuwatch/tracker"
)

// Portal is one vendor-specific crawl strategy: how to reach the content
// frame, how to recognise authenticated content, how to log in, and how to
// read the tracked submission's fields. Selection is driven by the store's
// Portal field, never by probing the page structure.
type Portal interface {
	Name() string
	// Content resolves the browsing context holding the submission list.
	// On some vendors this is a nested iframe, on others the page itself.
	Content(ctx context.Context, page Page) (Frame, error)
	// WaitReady waits for the vendor's authenticated-content marker. This
	// probe, not an HTTP status, is the sole signal of session validity:
	// the portals serve expired-session pages with status 200 too.
	WaitReady(ctx context.Context, f Frame, timeout time.Duration) error
	// Login runs the vendor login flow on an already-loaded login page,
	// typing credentials with a fixed per-keystroke delay.
	Login(ctx context.Context, page Page, creds tracker.Credentials, perKey time.Duration) error
	// Extract reads the tracked submission's fields. A missing row, card,
	// or field yields an empty optional value, never an error: a fully
	// unmatched submission produces a State with only Ref set.
	Extract(ctx context.Context, f Frame, ref string) tracker.State
}

// ForPortal returns the strategy registered under name.
func ForPortal(name string) (Portal, error) {
	switch name {
	case tracker.PortalEM:
		return emPortal{}, nil
	case tracker.PortalSnapp:
		return snappPortal{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPortal, name)
	}
}

// Field text sanitizer. Portal cells occasionally carry markup fragments;
// strip them before the value enters a State.
var fieldPolicy = bluemonday.StrictPolicy()

// clean normalizes one extracted field value: markup stripped, entities
// decoded, surrounding whitespace removed.
func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(fieldPolicy.Sanitize(s)))
}
