package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/scriptnet/manuwatch/tracker"
)

// emPortal is the tabular vendor. The submission list is a data table
// rendered inside a nested content iframe; the login form lives in the
// same iframe.
type emPortal struct{}

const (
	emContentFrame = `iframe[name="content"]`
	emMarker       = "#datatable"
	emRows         = "#datatable tbody tr"

	emLoginForm     = "#loginButtonsDiv"
	emLoginUsername = "#userNamePasswordDiv #username"
	emLoginPassword = "#userNamePasswordDiv #passwordTextbox"
	emLoginSubmit   = `#loginButtonsDiv input[name="authorLogin"]`
)

// Column positions are vendor-fixed, not inferred.
const (
	emColManuscript = 1
	emColTitle      = 2
	emColStatusDate = 4
	emColStatus     = 5
)

func (emPortal) Name() string { return tracker.PortalEM }

func (emPortal) Content(ctx context.Context, page Page) (Frame, error) {
	f, err := page.Frame(ctx, emContentFrame)
	if err != nil {
		return nil, fmt.Errorf("em: content iframe: %w", err)
	}
	return f, nil
}

func (emPortal) WaitReady(ctx context.Context, f Frame, timeout time.Duration) error {
	return f.WaitVisible(ctx, emMarker, timeout)
}

func (p emPortal) Login(ctx context.Context, page Page, creds tracker.Credentials, perKey time.Duration) error {
	f, err := p.Content(ctx, page)
	if err != nil {
		return err
	}
	if err := f.WaitVisible(ctx, emLoginForm, 0); err != nil {
		return fmt.Errorf("em: login form: %w", err)
	}

	if err := f.Type(ctx, emLoginUsername, creds.Username, perKey); err != nil {
		return fmt.Errorf("em: type username: %w", err)
	}
	if err := f.Type(ctx, emLoginPassword, creds.Password, perKey); err != nil {
		return fmt.Errorf("em: type password: %w", err)
	}

	if err := f.Click(ctx, emLoginSubmit); err != nil {
		return fmt.Errorf("em: submit: %w", err)
	}
	if err := page.WaitNavigation(ctx); err != nil {
		return fmt.Errorf("em: post-submit navigation: %w", err)
	}
	return nil
}

func (emPortal) Extract(ctx context.Context, f Frame, ref string) tracker.State {
	st := tracker.State{Ref: ref}

	rows, err := f.Elements(ctx, emRows)
	if err != nil {
		return st
	}

	for _, row := range rows {
		cells, err := row.Texts(ctx, "td")
		if err != nil || len(cells) <= emColStatus {
			continue
		}
		if clean(cells[emColManuscript]) != ref {
			continue
		}
		st.Title = clean(cells[emColTitle])
		st.Status = clean(cells[emColStatus])
		st.Modified = clean(cells[emColStatusDate])
		break
	}
	return st
}
