package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrIncompleteConfig = errors.New("SMTP configuration is incomplete")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender implements usecase.EmailSender with gomail.
type SMTPSender struct {
	from   string
	name   string
	dialer dialer
	logger *logger.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, log *logger.Logger) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: host, port and sender email are required", ErrIncompleteConfig)
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12, InsecureSkipVerify: cfg.InsecureTLS}
	if cfg.Port == 465 {
		d.SSL = true
	}
	return &SMTPSender{from: cfg.SenderEmail, name: cfg.SenderName, dialer: d, logger: log.Named("SMTPSender")}, nil
}

func (s *SMTPSender) message(to, subject, bodyHTML, bodyText string) (*gomail.Message, error) {
	if to == "" {
		return nil, fmt.Errorf("no recipient provided for email")
	}
	m := gomail.NewMessage()
	if s.name != "" {
		m.SetAddressHeader("From", s.from, s.name)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	switch {
	case bodyHTML != "":
		m.SetBody("text/html", bodyHTML)
		if bodyText != "" {
			m.AddAlternative("text/plain", bodyText)
		}
	case bodyText != "":
		m.SetBody("text/plain", bodyText)
	default:
		return nil, fmt.Errorf("email body (HTML or text) must be provided")
	}
	return m, nil
}

// Send dials per message and gives up when ctx ends.
func (s *SMTPSender) Send(ctx context.Context, to, subject, bodyHTML, bodyText string) error {
	m, err := s.message(to, subject, bodyHTML, bodyText)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		s.logger.Warn("Email sending cancelled", zap.String("to", to), zap.String("subject", subject), zap.Error(ctx.Err()))
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			s.logger.Error("Failed to send email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
			return fmt.Errorf("failed to send email: %w", err)
		}
	}
	s.logger.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// LogSender stands in when SMTP is not configured.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log.Named("LogSender")}
}

func (s *LogSender) Send(_ context.Context, to, subject, _, bodyText string) error {
	s.logger.Info("Email not sent, SMTP disabled", zap.String("to", to), zap.String("subject", subject), zap.String("body", bodyText))
	return nil
}
