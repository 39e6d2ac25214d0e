// Package notify dispatches submission-state notifications to a store's
// listeners. Channels are independent: one channel's failure never
// prevents attempting the others, and best-effort channels swallow their
// failures entirely.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scriptnet/manuwatch/tracker"
)

// ErrNoState is returned when Notify is called for a store that has never
// produced a state snapshot. A usage error, not retried.
var ErrNoState = errors.New("notify: store has no observed state")

// ErrNoTelegramListener is returned by NotifyTelegram when no enabled
// telegram listener exists.
var ErrNoTelegramListener = errors.New("notify: no enabled telegram listener")

// Sender delivers one message to one listener of its channel.
type Sender interface {
	Channel() string
	// BestEffort reports whether delivery failures are swallowed (logged,
	// never propagated) rather than returned to the caller.
	BestEffort() bool
	Send(ctx context.Context, listener tracker.Listener, message string) error
}

// Notifier fans one composed message out to every enabled listener.
type Notifier struct {
	senders map[string]Sender
	logger  *slog.Logger
}

// New creates a Notifier delivering through the given senders.
func New(logger *slog.Logger, senders ...Sender) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]Sender, len(senders))
	for _, s := range senders {
		m[s.Channel()] = s
	}
	return &Notifier{senders: m, logger: logger}
}

// Notify composes a message from the store's current state and sends it to
// every enabled listener in stored order. Failures on propagating channels
// are collected and the first is returned after all listeners were
// attempted; best-effort channel failures are logged and dropped. Unknown
// channels are logged and skipped.
func (n *Notifier) Notify(ctx context.Context, store *tracker.Store) error {
	if store.State == nil {
		return fmt.Errorf("%w: %s", ErrNoState, store.ID)
	}

	message := ComposeMessage(*store.State)

	var firstErr error
	for _, l := range store.Listeners {
		if !l.Enabled {
			continue
		}

		sender, ok := n.senders[l.Channel]
		if !ok {
			n.logger.Error("notify: unsupported channel", "store", store.ID, "channel", l.Channel)
			continue
		}

		if err := sender.Send(ctx, l, message); err != nil {
			if sender.BestEffort() {
				n.logger.Warn("notify: best-effort send failed",
					"store", store.ID, "channel", l.Channel, "error", err)
				continue
			}
			n.logger.Warn("notify: send failed",
				"store", store.ID, "channel", l.Channel, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		n.logger.Info("notify: delivered", "store", store.ID, "channel", l.Channel)
	}
	return firstErr
}

// NotifyTelegram sends an ad-hoc message to the first enabled telegram
// listener. Used for the mid-crawl login-required signal.
func (n *Notifier) NotifyTelegram(ctx context.Context, listeners []tracker.Listener, message string) error {
	sender, ok := n.senders[tracker.ChannelTelegram]
	if !ok {
		return ErrNoTelegramListener
	}
	for _, l := range listeners {
		if l.Enabled && l.Channel == tracker.ChannelTelegram {
			return sender.Send(ctx, l, message)
		}
	}
	return ErrNoTelegramListener
}

// ComposeMessage renders the human-readable notification text for a state
// snapshot. Absent optional fields render as "N/A".
func ComposeMessage(st tracker.State) string {
	return fmt.Sprintf("Ref: %s\n\n%s\n\n➶ %s\n➶ %s",
		st.Ref, orNA(st.Title), orNA(st.Status), orNA(st.Modified))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
