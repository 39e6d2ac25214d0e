package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/scriptnet/manuwatch/tracker"
)

type sent struct {
	listener tracker.Listener
	message  string
}

type fakeSender struct {
	channel    string
	bestEffort bool
	err        error
	sent       []sent
}

func (s *fakeSender) Channel() string  { return s.channel }
func (s *fakeSender) BestEffort() bool { return s.bestEffort }

func (s *fakeSender) Send(ctx context.Context, listener tracker.Listener, message string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{listener: listener, message: message})
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storeWithState(listeners ...tracker.Listener) *tracker.Store {
	return &tracker.Store{
		ID:        "s1",
		Listeners: listeners,
		State: &tracker.State{
			Ref:      "MS-42",
			Title:    "Paper Title",
			Status:   "Under Review",
			Modified: "2024-01-01",
		},
	}
}

func TestNotify_MailFailureDoesNotBlockTelegram(t *testing.T) {
	// WHAT: A failing mail send is swallowed and the telegram listener
	// still receives the composed message.
	// WHY: Mail is best effort; one channel must never block another.
	mail := &fakeSender{channel: tracker.ChannelMail, bestEffort: true, err: errors.New("relay down")}
	telegram := &fakeSender{channel: tracker.ChannelTelegram}
	n := New(discard(), mail, telegram)

	store := storeWithState(
		tracker.Listener{Channel: tracker.ChannelMail, Enabled: true, Email: "a@example.com"},
		tracker.Listener{Channel: tracker.ChannelTelegram, Enabled: true, Bot: "bot123", ChatID: "42"},
	)

	if err := n.Notify(context.Background(), store); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(telegram.sent) != 1 {
		t.Fatalf("telegram sends = %d, want 1", len(telegram.sent))
	}
	want := "Ref: MS-42\n\nPaper Title\n\n➶ Under Review\n➶ 2024-01-01"
	if telegram.sent[0].message != want {
		t.Errorf("message = %q, want %q", telegram.sent[0].message, want)
	}
}

func TestNotify_TelegramFailurePropagatesAfterAllListeners(t *testing.T) {
	// WHAT: A telegram failure is returned, but only after the remaining
	// listeners were attempted.
	telegram := &fakeSender{channel: tracker.ChannelTelegram, err: errors.New("api down")}
	mail := &fakeSender{channel: tracker.ChannelMail, bestEffort: true}
	n := New(discard(), telegram, mail)

	store := storeWithState(
		tracker.Listener{Channel: tracker.ChannelTelegram, Enabled: true, Bot: "bot123", ChatID: "42"},
		tracker.Listener{Channel: tracker.ChannelMail, Enabled: true, Email: "a@example.com"},
	)

	err := n.Notify(context.Background(), store)
	if err == nil || !errors.Is(err, telegram.err) {
		t.Fatalf("err = %v, want the telegram failure", err)
	}
	if len(mail.sent) != 1 {
		t.Errorf("mail sends = %d, want dispatch to continue past the failure", len(mail.sent))
	}
}

func TestNotify_DisabledListenersAreInert(t *testing.T) {
	mail := &fakeSender{channel: tracker.ChannelMail, bestEffort: true, err: errors.New("should not be called")}
	n := New(discard(), mail)

	store := storeWithState(tracker.Listener{Channel: tracker.ChannelMail, Enabled: false, Email: "a@example.com"})
	if err := n.Notify(context.Background(), store); err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func TestNotify_UnsupportedChannelSkipped(t *testing.T) {
	telegram := &fakeSender{channel: tracker.ChannelTelegram}
	n := New(discard(), telegram)

	store := storeWithState(
		tracker.Listener{Channel: "pager", Enabled: true},
		tracker.Listener{Channel: tracker.ChannelTelegram, Enabled: true, Bot: "bot123", ChatID: "42"},
	)

	if err := n.Notify(context.Background(), store); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(telegram.sent) != 1 {
		t.Errorf("telegram sends = %d", len(telegram.sent))
	}
}

func TestNotify_NoStateIsUsageError(t *testing.T) {
	n := New(discard())
	err := n.Notify(context.Background(), &tracker.Store{ID: "s1"})
	if !errors.Is(err, ErrNoState) {
		t.Fatalf("err = %v, want ErrNoState", err)
	}
}

func TestNotifyTelegram_FirstEnabledListener(t *testing.T) {
	telegram := &fakeSender{channel: tracker.ChannelTelegram}
	n := New(discard(), telegram)

	listeners := []tracker.Listener{
		{Channel: tracker.ChannelTelegram, Enabled: false, Bot: "bot-a", ChatID: "1"},
		{Channel: tracker.ChannelMail, Enabled: true, Email: "a@example.com"},
		{Channel: tracker.ChannelTelegram, Enabled: true, Bot: "bot-b", ChatID: "2"},
	}

	if err := n.NotifyTelegram(context.Background(), listeners, "login required"); err != nil {
		t.Fatalf("notifyTelegram: %v", err)
	}
	if len(telegram.sent) != 1 || telegram.sent[0].listener.Bot != "bot-b" {
		t.Errorf("sent = %+v, want the first enabled telegram listener", telegram.sent)
	}
}

func TestNotifyTelegram_NoListener(t *testing.T) {
	n := New(discard(), &fakeSender{channel: tracker.ChannelTelegram})
	err := n.NotifyTelegram(context.Background(), nil, "msg")
	if !errors.Is(err, ErrNoTelegramListener) {
		t.Fatalf("err = %v, want ErrNoTelegramListener", err)
	}
}

func TestComposeMessage_SubstitutesNA(t *testing.T) {
	got := ComposeMessage(tracker.State{Ref: "MS-42"})
	want := "Ref: MS-42\n\nN/A\n\n➶ N/A\n➶ N/A"
	if got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}
