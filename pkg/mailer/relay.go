package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/angelmondragon/inventory-backend/pkg/config"
)

// Relay dispatches a fully composed message.
type Relay interface {
	Send(ctx context.Context, from string, to []string, raw []byte) error
}

// NewRelay builds the transport named by cfg.DriverName.
func NewRelay(ctx context.Context, cfg config.MailConfig) (Relay, error) {
	switch cfg.DriverName() {
	case config.MailDriverSMTP:
		return NewSMTPRelay(cfg)
	case config.MailDriverSES:
		return NewSESRelay(ctx, cfg)
	case "":
		return nil, fmt.Errorf("mail driver not configured")
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.Driver)
	}
}

// SMTPRelay sends raw messages through an SMTP server, upgrading to TLS when
// the server offers STARTTLS.
type SMTPRelay struct {
	addr     string
	host     string
	username string
	password string
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewSMTPRelay builds a relay from mail config.
func NewSMTPRelay(cfg config.MailConfig) (*SMTPRelay, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host required")
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return &SMTPRelay{
		addr:     cfg.Address(),
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		dial:     dialer.DialContext,
	}, nil
}

func (r *SMTPRelay) Send(ctx context.Context, from string, to []string, raw []byte) error {
	conn, err := r.dial(ctx, "tcp", r.addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", r.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, r.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: r.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if r.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", r.username, r.password, r.host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}
