package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/scriptnet/manuwatch/tracker"
)

// snappPortal is the card-list vendor. Submissions render as cards on the
// page itself (no iframe shell). A collapsed card only holds its header in
// the DOM; it must be expanded before the detail fields exist.
type snappPortal struct{}

const (
	snappMarker = ".submission-list"
	snappCards  = ".submission-list .submission-card"
	snappCardID = ".manuscript-id"

	snappToggle    = ".notch-toggle"
	snappCollapsed = ".notch-down"
	snappExpanded  = ".notch-up"

	snappTitle      = ".detail.title div"
	snappStatus     = ".detail.status .current .label"
	snappStatusDate = ".detail.status .current .date"

	snappLoginForm     = "#loginForm"
	snappLoginUsername = `#loginForm input[name="username"]`
	snappLoginPassword = `#loginForm input[name="password"]`
	snappLoginSubmit   = `#loginForm button[type="submit"]`

	// expandWait bounds the collapse-to-expand transition.
	snappExpandWait = 5 * time.Second
)

func (snappPortal) Name() string { return tracker.PortalSnapp }

func (snappPortal) Content(ctx context.Context, page Page) (Frame, error) {
	return page.Root(), nil
}

func (snappPortal) WaitReady(ctx context.Context, f Frame, timeout time.Duration) error {
	return f.WaitVisible(ctx, snappMarker, timeout)
}

func (snappPortal) Login(ctx context.Context, page Page, creds tracker.Credentials, perKey time.Duration) error {
	f := page.Root()
	if err := f.WaitVisible(ctx, snappLoginForm, 0); err != nil {
		return fmt.Errorf("snapp: login form: %w", err)
	}

	if err := f.Type(ctx, snappLoginUsername, creds.Username, perKey); err != nil {
		return fmt.Errorf("snapp: type username: %w", err)
	}
	if err := f.Type(ctx, snappLoginPassword, creds.Password, perKey); err != nil {
		return fmt.Errorf("snapp: type password: %w", err)
	}

	if err := f.Click(ctx, snappLoginSubmit); err != nil {
		return fmt.Errorf("snapp: submit: %w", err)
	}
	if err := page.WaitNavigation(ctx); err != nil {
		return fmt.Errorf("snapp: post-submit navigation: %w", err)
	}
	return nil
}

func (snappPortal) Extract(ctx context.Context, f Frame, ref string) tracker.State {
	st := tracker.State{Ref: ref}

	cards, err := f.Elements(ctx, snappCards)
	if err != nil {
		return st
	}

	for _, card := range cards {
		id, err := card.Text(ctx, snappCardID)
		if err != nil || clean(id) != ref {
			continue
		}

		// Expand a collapsed card and wait for the expanded affordance
		// before reading: the detail fields are absent from the DOM until
		// the transition completes.
		if down, _ := card.Has(ctx, snappCollapsed); down {
			if err := card.Click(ctx, snappToggle); err != nil {
				return st
			}
			if err := card.WaitVisible(ctx, snappExpanded, snappExpandWait); err != nil {
				return st
			}
		}

		if title, err := card.Text(ctx, snappTitle); err == nil {
			st.Title = clean(title)
		}
		if status, err := card.Text(ctx, snappStatus); err == nil {
			st.Status = clean(status)
		}
		if date, err := card.Text(ctx, snappStatusDate); err == nil {
			st.Modified = clean(date)
		}
		break
	}
	return st
}
