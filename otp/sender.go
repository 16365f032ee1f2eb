package otp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"sync"

	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Message is a one-time code on its way to a target
type Message struct {
	To      string
	Subject string
	Body    string
	Code    string
}

// Sender delivers one-time codes
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	_ Sender = (*LogSender)(nil)
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*MemorySender)(nil)
)

// LogSender writes the code to a logger instead of delivering it. Used when no SMTP
// host is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().Str("to", msg.To).Str("code", msg.Code).Msg(msg.Subject)
	return nil
}

// SMTPSender delivers codes by email over STARTTLS
type SMTPSender struct {
	host     string
	port     string
	account  string
	password string
	from     string
	logger   zerolog.Logger
}

func NewSMTPSender(cfg config.SmtpConfig, logger zerolog.Logger) (*SMTPSender, error) {
	if cfg.GetSmtpHost() == "" {
		return nil, errors.New("[NewSMTPSender] smtp host is required")
	}
	if cfg.GetSmtpSender() == "" {
		return nil, errors.New("[NewSMTPSender] sender address is required")
	}
	return &SMTPSender{
		host:     cfg.GetSmtpHost(),
		port:     cfg.GetSmtpPort(),
		account:  cfg.GetSmtpAccount(),
		password: cfg.GetSmtpPassword(),
		from:     cfg.GetSmtpSender(),
		logger:   logger,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.host, s.port))
	if err != nil {
		return errors.Wrap(err, "[SMTPSender.Send] dial")
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "[SMTPSender.Send] client")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return errors.New("[SMTPSender.Send] server does not support STARTTLS")
	}
	if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
		return errors.Wrap(err, "[SMTPSender.Send] starttls")
	}
	if s.account != "" {
		if err := client.Auth(smtp.PlainAuth("", s.account, s.password, s.host)); err != nil {
			return errors.Wrap(err, "[SMTPSender.Send] auth")
		}
	}
	if err := client.Mail(s.from); err != nil {
		return errors.Wrap(err, "[SMTPSender.Send] mail")
	}
	if err := client.Rcpt(msg.To); err != nil {
		return errors.Wrap(err, "[SMTPSender.Send] rcpt")
	}
	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "[SMTPSender.Send] data")
	}
	if _, err := w.Write(formatMessage(s.from, msg)); err != nil {
		w.Close()
		return errors.Wrap(err, "[SMTPSender.Send] write")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "[SMTPSender.Send] close")
	}

	s.logger.Debug().Str("to", msg.To).Msg("one-time code sent")
	return client.Quit()
}

func formatMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// MemorySender keeps every message it is given
type MemorySender struct {
	messages []Message
	lock     sync.Mutex
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, msg Message) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.messages = append(s.messages, msg)
	return nil
}

// Last returns the most recent message sent to target
func (s *MemorySender) Last(target string) (Message, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].To == target {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

func (s *MemorySender) Count() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.messages)
}
