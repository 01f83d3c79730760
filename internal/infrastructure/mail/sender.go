// Package mail sends the daily manifest mail to the logistics partner and
// the result report to the operations inbox.
package mail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ErrInvalidConfig indicates missing SMTP settings.
var ErrInvalidConfig = errors.New("mail: invalid configuration")

// Config holds the SMTP account and the two fixed recipients.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// ManifestRecipient receives the manifest files (the 3PL warehouse).
	ManifestRecipient string
	// ResultRecipient receives the run report (the operations inbox).
	ResultRecipient string
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if c.Host == "" || c.Port == 0 {
		return fmt.Errorf("%w: SMTP host and port are required", ErrInvalidConfig)
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("%w: SMTP credentials are required", ErrInvalidConfig)
	}
	return nil
}

// Sender delivers run mails over authenticated STARTTLS SMTP.
type Sender struct {
	config *Config
	logger *zap.Logger
}

// NewSender validates the configuration and returns a sender.
func NewSender(config *Config, logger *zap.Logger) (*Sender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{config: config, logger: logger}, nil
}

// SendManifests mails the day's manifest files to the warehouse. At least
// one attachment must exist; a manifest mail without files would trigger an
// empty pick run.
func (s *Sender) SendManifests(ctx context.Context, now time.Time, files []string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else {
			s.logger.Warn("manifest file missing, not attached", zap.String("path", f))
		}
	}
	if len(existing) == 0 {
		return fmt.Errorf("mail: no manifest files to send")
	}

	var body strings.Builder
	body.WriteString("배송지를 하기와 같이 첨부합니다. 감사합니다.\n\n첨부 파일:")
	for _, f := range existing {
		fmt.Fprintf(&body, "\n- %s", filepath.Base(f))
	}
	fmt.Fprintf(&body, "\n\n발송 일시: %s\n처리 시스템: 3PL 자동화 시스템\n", now.Format("2006-01-02 15:04:05"))

	subject := fmt.Sprintf("%s 발송", now.Format("060102"))
	return s.send(ctx, s.config.ManifestRecipient, subject, body.String(), existing)
}

// SendResult mails the run report to the operations inbox, attaching the
// postal-desk manifest when one was produced.
func (s *Sender) SendResult(ctx context.Context, now time.Time, summary string, poBoxFile string) error {
	var body strings.Builder
	body.WriteString("3PL 자동화 시스템 처리 결과를 보고드립니다.\n\n")
	body.WriteString(summary)
	fmt.Fprintf(&body, "\n발송 일시: %s\n처리 시스템: 3PL 자동화 시스템\n", now.Format("2006-01-02 15:04:05"))

	var attachments []string
	if poBoxFile != "" {
		if _, err := os.Stat(poBoxFile); err == nil {
			attachments = append(attachments, poBoxFile)
		}
	}

	subject := fmt.Sprintf("[3PL] %s 처리 결과 보고", now.Format("060102"))
	return s.send(ctx, s.config.ResultRecipient, subject, body.String(), attachments)
}

func (s *Sender) send(ctx context.Context, to, subject, body string, attachments []string) error {
	if to == "" {
		return fmt.Errorf("%w: recipient is not configured", ErrInvalidConfig)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.config.Username); err != nil {
		return fmt.Errorf("mail: invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	for _, f := range attachments {
		msg.AttachFile(f)
	}

	client, err := gomail.NewClient(s.config.Host,
		gomail.WithPort(s.config.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.config.Username),
		gomail.WithPassword(s.config.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("mail: client setup failed: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: send failed: %w", err)
	}
	s.logger.Info("mail sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("attachments", len(attachments)))
	return nil
}
