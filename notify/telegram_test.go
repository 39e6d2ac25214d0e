package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	tgbot "github.com/go-telegram/bot"

	"github.com/scriptnet/manuwatch/tracker"
)

type botAPIMock struct {
	mu       sync.Mutex
	requests []botAPISend
}

type botAPISend struct {
	Path   string
	ChatID string
	Text   string
}

func (m *botAPIMock) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	if err := r.ParseMultipartForm(2 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, botAPISend{
		Path:   r.URL.Path,
		ChatID: r.FormValue("chat_id"),
		Text:   r.FormValue("text"),
	})
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":1,"chat":{"id":1,"type":"private"}}}`)
}

func (m *botAPIMock) Snapshot() []botAPISend {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]botAPISend, len(m.requests))
	copy(out, m.requests)
	return out
}

func TestTelegramSender_SendsThroughBotAPI(t *testing.T) {
	// WHAT: Send posts to the Bot API using the token from the listener's
	// "bot<token>" field and the numeric chat id.
	mock := &botAPIMock{}
	server := httptest.NewServer(http.HandlerFunc(mock.Handle))
	defer server.Close()

	sender := NewTelegramSender(tgbot.WithServerURL(server.URL))
	listener := tracker.Listener{
		Channel: tracker.ChannelTelegram,
		Enabled: true,
		Bot:     "bottoken",
		ChatID:  "42",
	}

	if err := sender.Send(context.Background(), listener, "Ref: MS-42"); err != nil {
		t.Fatalf("send: %v", err)
	}

	got := mock.Snapshot()
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0].Path != "/bottoken/sendMessage" {
		t.Errorf("path = %q, want token-derived sendMessage path", got[0].Path)
	}
	if got[0].ChatID != "42" || got[0].Text != "Ref: MS-42" {
		t.Errorf("payload = %+v", got[0])
	}
}

func TestTelegramSender_RejectsIncompleteListener(t *testing.T) {
	sender := NewTelegramSender()
	ctx := context.Background()

	if err := sender.Send(ctx, tracker.Listener{ChatID: "42"}, "msg"); err == nil {
		t.Error("want error for missing bot token")
	}
	if err := sender.Send(ctx, tracker.Listener{Bot: "bottoken"}, "msg"); err == nil {
		t.Error("want error for missing chat id")
	}
}
