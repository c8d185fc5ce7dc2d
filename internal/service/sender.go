package service

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Recipient is a phone number or a mail address, depending on the sender.
type Recipient struct {
	Name    string
	Address string
}

// Message is what a sender delivers.  SMS senders ignore Subject.
type Message struct {
	Subject string
	Body    string
}

// Sender delivers one message.  Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, to Recipient, msg Message) error
}

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough is configured to send mail.
func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.Username != "" }

// SMTPSender sends plain-text mail through a relay with PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for cfg.  From defaults to Username.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Address == "" {
		return fmt.Errorf("empty mail recipient")
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	body := buildMail(s.cfg.From, to, msg)

	// smtp.SendMail has no context; abandon the wait when ctx ends.
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.cfg.From, []string{to.Address}, body) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMail(from string, to Recipient, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	if to.Name != "" {
		fmt.Fprintf(&b, "To: %q <%s>\r\n", to.Name, to.Address)
	} else {
		fmt.Fprintf(&b, "To: %s\r\n", to.Address)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of delivering them.  It is
// the SMS transport until a provider is wired.
type LogSender struct {
	Channel string
	Logger  *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("outbound message",
		slog.String("channel", s.Channel),
		slog.String("to", to.Address),
		slog.String("subject", msg.Subject),
		slog.Int("bytes", len(msg.Body)))
	return nil
}
