package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/scriptnet/manuwatch/tracker"
)

// SMTPConfig holds the outbound mail transport settings.
type SMTPConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	// Sender is the display name on outgoing mail.
	Sender string `yaml:"sender"`
}

// MailSender delivers notifications over SMTP. Mail is a best-effort
// channel: the dispatcher swallows its failures so a broken mail relay
// never blocks the other channels.
type MailSender struct {
	cfg SMTPConfig
}

// NewMailSender creates the mail sender.
func NewMailSender(cfg SMTPConfig) *MailSender {
	if cfg.Sender == "" {
		cfg.Sender = "Manuwatch"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &MailSender{cfg: cfg}
}

func (*MailSender) Channel() string { return tracker.ChannelMail }

func (*MailSender) BestEffort() bool { return true }

func (s *MailSender) Send(ctx context.Context, listener tracker.Listener, message string) error {
	if strings.TrimSpace(listener.Email) == "" {
		return fmt.Errorf("notify: mail listener has no address")
	}

	m := email.NewEmail()
	m.From = fmt.Sprintf("%s <%s>", s.cfg.Sender, s.cfg.Address)
	m.To = []string{listener.Email}
	m.Subject = "Notification"
	m.Text = []byte(message)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server, s.cfg.Port)
	err := m.Send(addr, smtp.PlainAuth("", s.cfg.Address, s.cfg.Password, s.cfg.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("notify: mail send: %w", err)
	}
	return nil
}
