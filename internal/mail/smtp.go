package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/haris-cl/inbox-nuke/backend/internal/config"
	"github.com/jhillyerd/enmime"
)

// Submitter sends mailto-unsubscribe messages over SMTP submission. Keeping
// the send path on plain SMTP means it works against any submission server,
// not just Gmail's.
type Submitter struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	UseStartTLS bool
}

// NewSubmitter builds a Submitter from config. Production submission servers
// require STARTTLS.
func NewSubmitter(cfg *config.Config) *Submitter {
	return &Submitter{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		From:        cfg.SMTPFrom,
		UseStartTLS: true,
	}
}

// SendUnsubscribe sends a minimal unsubscribe message to a mailto: target.
// List servers only inspect the recipient and subject, so the body is a
// single line.
func (s *Submitter) SendUnsubscribe(ctx context.Context, to, subject string) error {
	if s.From == "" {
		return fmt.Errorf("smtp from address is not configured")
	}
	if subject == "" {
		subject = "unsubscribe"
	}

	builder := enmime.Builder().
		From("", s.From).
		To("", to).
		Subject(subject).
		Text([]byte("This message was sent automatically to unsubscribe from your mailing list.\n"))

	part, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build unsubscribe message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return fmt.Errorf("failed to encode unsubscribe message: %w", err)
	}

	addr := net.JoinHostPort(s.Host, s.Port)

	type sendResult struct{ err error }
	done := make(chan sendResult, 1)
	go func() {
		done <- sendResult{err: s.submit(addr, to, buf.Bytes())}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-done:
		return result.err
	}
}

func (s *Submitter) submit(addr, to string, body []byte) error {
	var client *smtp.Client
	var err error

	if s.UseStartTLS {
		client, err = smtp.DialStartTLS(addr, &tls.Config{ServerName: s.Host})
	} else {
		client, err = smtp.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server %s: %w", addr, err)
	}
	defer func() { _ = client.Close() }()

	if s.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", s.Username, s.Password)); err != nil {
			return fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	if err := client.SendMail(s.From, []string{to}, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("failed to send unsubscribe mail to %s: %w", to, err)
	}

	return client.Quit()
}
