package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/scriptnet/manuwatch/crawl"
	"github.com/scriptnet/manuwatch/tracker"
)

// pageAdapter implements crawl.Page on a rod page.
type pageAdapter struct {
	page *rod.Page

	mu      sync.Mutex
	timeout time.Duration
}

func (p *pageAdapter) scoped(ctx context.Context) *rod.Page {
	pg := p.page.Context(ctx)
	p.mu.Lock()
	t := p.timeout
	p.mu.Unlock()
	if t > 0 {
		pg = pg.Timeout(t)
	}
	return pg
}

func (p *pageAdapter) SetTimeout(d time.Duration) {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()
}

func (p *pageAdapter) Navigate(ctx context.Context, url string) error {
	pg := p.scoped(ctx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	wait()
	return nil
}

func (p *pageAdapter) WaitNavigation(ctx context.Context) error {
	p.scoped(ctx).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)()
	return nil
}

func (p *pageAdapter) Frame(ctx context.Context, selector string) (crawl.Frame, error) {
	el, err := p.scoped(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: iframe %s: %w", selector, err)
	}
	inner, err := el.Frame()
	if err != nil {
		return nil, fmt.Errorf("browser: switch to frame %s: %w", selector, err)
	}
	return &frameAdapter{page: inner, owner: p}, nil
}

func (p *pageAdapter) Root() crawl.Frame {
	return &frameAdapter{page: p.page, owner: p}
}

func (p *pageAdapter) Cookies() ([]tracker.Cookie, error) {
	got, err := p.page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("browser: read cookies: %w", err)
	}
	cookies := make([]tracker.Cookie, 0, len(got))
	for _, c := range got {
		cookies = append(cookies, tracker.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

func (p *pageAdapter) SetCookies(cookies []tracker.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	if err := p.page.SetCookies(params); err != nil {
		return fmt.Errorf("browser: set cookies: %w", err)
	}
	return nil
}

// frameAdapter implements crawl.Frame on a rod page, which represents both
// top-level and nested browsing contexts. The owner page supplies the
// default timeout.
type frameAdapter struct {
	page  *rod.Page
	owner *pageAdapter
}

func (f *frameAdapter) scoped(ctx context.Context, timeout time.Duration) *rod.Page {
	pg := f.page.Context(ctx)
	if timeout <= 0 {
		f.owner.mu.Lock()
		timeout = f.owner.timeout
		f.owner.mu.Unlock()
	}
	if timeout > 0 {
		pg = pg.Timeout(timeout)
	}
	return pg
}

func (f *frameAdapter) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := f.scoped(ctx, timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: wait %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("browser: wait visible %s: %w", selector, err)
	}
	return nil
}

func (f *frameAdapter) Elements(ctx context.Context, selector string) ([]crawl.Element, error) {
	got, err := f.scoped(ctx, 0).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	els := make([]crawl.Element, 0, len(got))
	for _, el := range got {
		els = append(els, &elementAdapter{el: el, owner: f.owner})
	}
	return els, nil
}

func (f *frameAdapter) Type(ctx context.Context, selector, text string, perKey time.Duration) error {
	el, err := f.scoped(ctx, 0).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: find %s: %w", selector, err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("browser: focus %s: %w", selector, err)
	}
	// One keystroke at a time; bulk insertion is a bot tell.
	for _, r := range text {
		if err := f.page.InsertText(string(r)); err != nil {
			return fmt.Errorf("browser: type into %s: %w", selector, err)
		}
		if perKey > 0 {
			if err := sleep(ctx, perKey); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *frameAdapter) Click(ctx context.Context, selector string) error {
	el, err := f.scoped(ctx, 0).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: find %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

// elementAdapter implements crawl.Element on a rod element.
type elementAdapter struct {
	el    *rod.Element
	owner *pageAdapter
}

func (e *elementAdapter) child(ctx context.Context, selector string) (*rod.Element, error) {
	has, el, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("browser: no match for %s", selector)
	}
	return el, nil
}

func (e *elementAdapter) Text(ctx context.Context, selector string) (string, error) {
	el, err := e.child(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("browser: text of %s: %w", selector, err)
	}
	return text, nil
}

func (e *elementAdapter) Texts(ctx context.Context, selector string) ([]string, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("browser: text of %s: %w", selector, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (e *elementAdapter) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	return has, nil
}

func (e *elementAdapter) Click(ctx context.Context, selector string) error {
	el, err := e.child(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

func (e *elementAdapter) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	tctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	el, err := e.el.Context(tctx).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: wait %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("browser: wait visible %s: %w", selector, err)
	}
	return nil
}
