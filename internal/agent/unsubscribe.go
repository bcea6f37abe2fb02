package agent

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
)

const unsubscribeTimeout = 10 * time.Second

// MailSubmitter sends a mailto-unsubscribe message.
type MailSubmitter interface {
	SendUnsubscribe(ctx context.Context, to, subject string) error
}

var _ MailSubmitter = (*mail.Submitter)(nil)

// Unsubscriber executes the best available unsubscribe mechanism for a
// sender. Methods are tried in reliability order: RFC 8058 one-click POST,
// then mailto, then a plain HTTP GET of the unsubscribe page.
type Unsubscriber struct {
	submitter  MailSubmitter
	httpClient *http.Client
	logger     *log.Logger
}

// NewUnsubscriber returns an Unsubscriber sending mailto unsubscribes via the
// given submitter. HTTP attempts follow redirects and give up after 10s.
func NewUnsubscriber(submitter MailSubmitter) *Unsubscriber {
	return &Unsubscriber{
		submitter:  submitter,
		httpClient: &http.Client{Timeout: unsubscribeTimeout},
		logger:     log.New(log.Writer(), "[unsubscribe] ", log.LstdFlags),
	}
}

// Unsubscribe attempts to unsubscribe from the sender and returns the method
// that succeeded. When the preferred method fails it falls through to the
// next one; it only errors once every available method has failed.
func (u *Unsubscriber) Unsubscribe(ctx context.Context, sender *models.Sender) (models.UnsubscribeMethod, error) {
	var errs []string

	if sender.UnsubscribeMethod == models.UnsubscribeOneClick && sender.UnsubscribeURL != nil {
		if err := u.oneClick(ctx, *sender.UnsubscribeURL); err == nil {
			return models.UnsubscribeOneClick, nil
		} else {
			u.logger.Printf("one-click unsubscribe failed for %s: %v", sender.Email, err)
			errs = append(errs, fmt.Sprintf("one_click: %v", err))
		}
	}

	if sender.UnsubscribeMailto != nil {
		address, subject, err := ParseMailto(*sender.UnsubscribeMailto)
		if err == nil {
			if err := u.submitter.SendUnsubscribe(ctx, address, subject); err == nil {
				return models.UnsubscribeMailto, nil
			} else {
				u.logger.Printf("mailto unsubscribe failed for %s: %v", sender.Email, err)
				errs = append(errs, fmt.Sprintf("mailto: %v", err))
			}
		} else {
			errs = append(errs, fmt.Sprintf("mailto: %v", err))
		}
	}

	if sender.UnsubscribeURL != nil {
		if err := u.httpGet(ctx, *sender.UnsubscribeURL); err == nil {
			return models.UnsubscribeHTTP, nil
		} else {
			u.logger.Printf("http unsubscribe failed for %s: %v", sender.Email, err)
			errs = append(errs, fmt.Sprintf("http: %v", err))
		}
	}

	if len(errs) == 0 {
		return models.UnsubscribeNone, fmt.Errorf("sender %s has no unsubscribe mechanism", sender.Email)
	}
	return models.UnsubscribeNone, fmt.Errorf("all unsubscribe attempts failed for %s: %s", sender.Email, strings.Join(errs, "; "))
}

// oneClick performs the RFC 8058 one-click unsubscribe POST. The body is the
// fixed form field the RFC mandates; list servers must not require anything
// else.
func (u *Unsubscriber) oneClick(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, unsubscribeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader("List-Unsubscribe=One-Click"))
	if err != nil {
		return fmt.Errorf("invalid one-click url: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("one-click request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("one-click endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// httpGet loads the unsubscribe page. Many list providers unsubscribe on a
// bare GET; a 2xx or 3xx status counts as success.
func (u *Unsubscriber) httpGet(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, unsubscribeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("invalid unsubscribe url: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unsubscribe request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unsubscribe page returned %d", resp.StatusCode)
	}
	return nil
}

// ParseMailto splits a mailto: URI into its recipient address and optional
// subject query parameter.
func ParseMailto(raw string) (address, subject string, err error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid mailto uri %q: %w", raw, err)
	}
	if parsed.Scheme != "mailto" {
		return "", "", fmt.Errorf("not a mailto uri: %q", raw)
	}

	address = parsed.Opaque
	if address == "" {
		return "", "", fmt.Errorf("mailto uri %q has no recipient", raw)
	}

	return address, parsed.Query().Get("subject"), nil
}
