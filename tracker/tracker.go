// Package tracker defines the durable data model for tracked manuscript
// submissions: the per-submission Store record, the observed State snapshot,
// session cookies, and notification listeners.
package tracker

// Portal names select the vendor-specific crawl strategy for a store.
const (
	// PortalEM is the tabular vendor: submissions listed as rows of a data
	// table rendered inside a nested content iframe.
	PortalEM = "em"
	// PortalSnapp is the card-list vendor: submissions listed as cards that
	// must be expanded before all fields are present in the DOM.
	PortalSnapp = "snapp"
)

// Listener channels.
const (
	ChannelTelegram = "telegram"
	ChannelMail     = "mail"
)

// Credentials are the portal login secrets. They are opaque: never logged,
// never returned by the admin API.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Cookie is one browser cookie of the persisted session.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Listener is one notification target. Channel is the discriminant:
// Bot and ChatID are meaningful for telegram, Email for mail. A disabled
// listener is inert.
type Listener struct {
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
	Bot     string `json:"bot,omitempty"`
	ChatID  string `json:"chatId,omitempty"`
	Email   string `json:"email,omitempty"`
}

// State is a snapshot of one submission's tracked fields. Ref is always
// populated. The remaining fields are empty when the submission could not
// be located on the tracker page or a field could not be read; an empty
// field is a valid observation, not an error.
type State struct {
	Ref      string `json:"ref"`
	Title    string `json:"title,omitempty"`
	Status   string `json:"status,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// Store is one tracked submission: portal configuration, the last known
// authenticated session, notification listeners, and the last observed
// state. Cookies are replaced wholesale after every crawl attempt with
// whatever the browser holds at that point; partial sets are never merged.
type Store struct {
	ID           string      `json:"id"`
	Enabled      bool        `json:"enabled"`
	Portal       string      `json:"portal"`
	Tracker      string      `json:"tracker"`
	Login        string      `json:"login"`
	SubmissionID string      `json:"submissionId"`
	Credentials  Credentials `json:"credentials"`
	Cookies      []Cookie    `json:"cookies,omitempty"`
	Listeners    []Listener  `json:"listeners,omitempty"`
	State        *State      `json:"state,omitempty"`
}
