// Package email provides SMTP email sending functionality.
//
// When configured, it uses STARTTLS and authentication.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Config holds SMTP configuration.
type Config struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// Enabled returns true if SMTP is configured with at least a host.
func (c *Config) Enabled() bool {
	return c.Host != ""
}

// Validate checks that required fields are set and applies defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("smtp: host is required")
	}
	if c.Username == "" {
		return errors.New("smtp: username is required")
	}
	if c.Password == "" {
		return errors.New("smtp: password is required")
	}
	if c.From == "" {
		return errors.New("smtp: from is required")
	}
	if c.Port == "" {
		c.Port = "587"
	}
	return nil
}

// Sender delivers a single email. Implemented by Service; tests substitute
// an in-memory fake.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service provides email sending functionality over SMTP.
type Service struct {
	Config Config
}

// Send sends an email.
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.Config.Host, s.Config.Port)

	// Connect with timeout
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	client, err := smtp.NewClient(conn, s.Config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() {
		if err := client.Quit(); err != nil {
			slog.WarnContext(ctx, "SMTP quit failed", "err", err)
		}
	}()

	// STARTTLS
	tlsConfig := &tls.Config{
		ServerName: s.Config.Host,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}

	// Auth
	auth := smtp.PlainAuth("", s.Config.Username, s.Config.Password, s.Config.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if err := client.Mail(s.Config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	msg := buildMessage(s.Config.From, to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	slog.InfoContext(ctx, "Email sent", "to", to, "subject", subject)
	return nil
}

func buildMessage(from, to, subject, body string) string {
	var sb strings.Builder
	sb.WriteString("From: ")
	sb.WriteString(from)
	sb.WriteString("\r\n")
	sb.WriteString("To: ")
	sb.WriteString(to)
	sb.WriteString("\r\n")
	sb.WriteString("Subject: ")
	sb.WriteString(subject)
	sb.WriteString("\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}
