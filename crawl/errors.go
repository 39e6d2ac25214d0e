package crawl

import "errors"

// ErrSessionProbe signals that the authenticated tracker content did not
// appear under the restored session. It drives the login fallback and is
// not fatal on its own.
var ErrSessionProbe = errors.New("crawl: session probe failed")

// ErrLoginFlow is returned when the login form or the post-login tracker
// content never appeared. Fatal; there is no retry loop.
var ErrLoginFlow = errors.New("crawl: login flow failed")

// ErrContentFrame is returned when the content frame cannot be resolved
// after authentication. The portal page structure changed or navigation
// failed outright.
var ErrContentFrame = errors.New("crawl: content frame unavailable")

// ErrUnknownPortal is returned when a store names a portal with no
// registered strategy.
var ErrUnknownPortal = errors.New("crawl: unknown portal")

// ErrStoreDisabled is returned when a crawl is requested for a disabled
// store. Disabled stores are never crawled.
var ErrStoreDisabled = errors.New("crawl: store is disabled")
