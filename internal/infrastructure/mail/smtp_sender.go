package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	gomail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no SMTP host or sender is set
var ErrNotConfigured = errors.New("smtp not configured")

// Config holds SMTP settings
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	StartTLS      bool
	SkipTLSVerify bool
	Timeout       time.Duration
}

// SMTPSender implements port.MailSender over SMTP
type SMTPSender struct {
	cfg    Config
	send   func(*gomail.Message) error
	logger *zap.Logger
}

// NewSMTPSender creates a sender dialing cfg.Host for every message
func NewSMTPSender(cfg Config, logger *zap.Logger) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	s := &SMTPSender{cfg: cfg, logger: logger}
	s.send = s.dialAndSend
	return s
}

// Send delivers one message. Delivery is not retried.
func (s *SMTPSender) Send(ctx context.Context, msg port.MailMessage) error {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return ErrNotConfigured
	}
	if msg.To == "" {
		return fmt.Errorf("mail has no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.send(buildMessage(s.cfg.From, msg)); err != nil {
		s.logger.Error("Failed to send mail",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Debug("Mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if s.cfg.StartTLS {
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	}
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.SkipTLSVerify,
	}
	if s.cfg.Timeout > 0 {
		d.Timeout = s.cfg.Timeout
	}
	return d.DialAndSend(m)
}

func buildMessage(from string, msg port.MailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}
	return m
}

// Verify interface compliance
var _ port.MailSender = (*SMTPSender)(nil)
