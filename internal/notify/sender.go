package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
)

// Message is one outbound notification (currently payment reminders).
type Message struct {
	To      string // Email address or WhatsApp number depending on channel
	Subject string
	Body    string
}

// Sender delivers notification messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates a new SMTPSender, falling back to a logging sender
// when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging notification sender.")
		return &LoggingSender{cfg: cfg}
	}

	auth := smtp.PlainAuth(
		"", // identity
		cfg.SmtpUsername,
		cfg.SmtpPassword,
		cfg.SmtpHost,
	)
	addr := fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort)

	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: addr,
	}
}

// Send sends the notification as a plain-text email.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", s.cfg.SmtpFromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(msg.Body)
	sb.WriteString("\r\n")

	err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, []string{msg.To}, []byte(sb.String()))
	if err != nil {
		log.Printf("Failed to send notification via SMTP to %s: %v", msg.To, err)
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("Notification sent via SMTP to %s (Subject: %s)", msg.To, msg.Subject)
	return nil
}

// LoggingSender just logs notifications. Useful for development.
type LoggingSender struct {
	cfg *config.Config
}

func (s *LoggingSender) Send(ctx context.Context, msg Message) error {
	log.Printf("--- Notification (Logged) ---")
	log.Printf("To: %s", msg.To)
	log.Printf("Subject: %s", msg.Subject)
	log.Println(msg.Body)
	log.Println("--- End Notification ---")
	return nil
}
