package agent

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/haris-cl/inbox-nuke/backend/internal/db"
	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// discoveryQueries target the mailbox segments where bulk mail lives. The
// per-query budget is the total budget split evenly across them.
var discoveryQueries = []string{
	"category:promotions",
	"category:social",
	"category:updates",
	"has:unsubscribe",
	"from:noreply@",
	"from:no-reply@",
	"from:newsletter@",
	"from:marketing@",
	"from:promo@",
	"from:promotions@",
	"from:offers@",
	"from:deals@",
	"from:updates@",
	"from:notifications@",
}

const metadataBatchSize = 100

// DefaultDiscoveryBudget caps how many messages one discovery pass inspects.
const DefaultDiscoveryBudget = 2000

// Discoverer scans the mailbox for bulk-mail senders and upserts them into
// the senders table with their message counts, unsubscribe mechanisms, and
// junk scores.
type Discoverer struct {
	pool   *pgxpool.Pool
	client mail.Client
	logger *log.Logger
}

// NewDiscoverer returns a Discoverer over the given store and mail client.
func NewDiscoverer(pool *pgxpool.Pool, client mail.Client) *Discoverer {
	return &Discoverer{
		pool:   pool,
		client: client,
		logger: log.New(log.Writer(), "[discovery] ", log.LstdFlags),
	}
}

// Discover runs every discovery query, aggregates the results per sender,
// and upserts each sender. Returns the number of distinct senders seen.
// Auth failures and rate-limit or server errors that survive the client's
// bounded retries abort discovery; other query failures are logged and
// skipped.
func (d *Discoverer) Discover(ctx context.Context, maxMessages int) (int, error) {
	if maxMessages <= 0 {
		maxMessages = DefaultDiscoveryBudget
	}
	perQuery := int64(maxMessages / len(discoveryQueries))
	if perQuery < 1 {
		perQuery = 1
	}

	seen := make(map[string]struct{})
	var ids []string

	for _, query := range discoveryQueries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		queryIDs, err := d.client.ListMessageIDs(ctx, query, perQuery)
		if err != nil {
			if mail.IsAuthError(err) || mail.IsTransient(err) {
				return 0, fmt.Errorf("discovery query %q failed: %w", query, err)
			}
			d.logger.Printf("query %q failed, skipping: %v", query, err)
			continue
		}

		for _, id := range queryIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	d.logger.Printf("discovery matched %d unique messages", len(ids))

	aggregates := make(map[string]*models.Sender)

	for start := 0; start < len(ids); start += metadataBatchSize {
		end := start + metadataBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		metas, err := d.client.GetMessagesMetadata(ctx, ids[start:end])
		if err != nil {
			return 0, fmt.Errorf("failed to fetch message metadata: %w", err)
		}

		for _, meta := range metas {
			mergeMessage(aggregates, meta)
		}
	}

	for _, sender := range aggregates {
		if _, err := db.UpsertSender(ctx, d.pool, sender); err != nil {
			return 0, fmt.Errorf("failed to store sender %s: %w", sender.Email, err)
		}
	}

	d.logger.Printf("discovery found %d senders", len(aggregates))
	return len(aggregates), nil
}

// mergeMessage folds one message into the per-sender aggregates. The junk
// score keeps the worst (highest) score seen across the sender's messages,
// and the unsubscribe method only ever upgrades.
func mergeMessage(aggregates map[string]*models.Sender, meta *models.MessageMeta) {
	email := strings.ToLower(strings.TrimSpace(meta.FromEmail))
	if email == "" {
		return
	}

	method, mailto, httpURL := ParseListUnsubscribe(meta.ListUnsubscribe, meta.ListUnsubscribePost)
	score := JunkScore(email, meta.Subject, method != models.UnsubscribeNone)

	sender, ok := aggregates[email]
	if !ok {
		sender = &models.Sender{
			Email:             email,
			Domain:            ExtractDomain(email),
			UnsubscribeMethod: models.UnsubscribeNone,
		}
		aggregates[email] = sender
	}

	sender.MessageCount++

	if sender.DisplayName == nil && meta.FromName != "" {
		name := meta.FromName
		sender.DisplayName = &name
	}

	if methodRank(method) > methodRank(sender.UnsubscribeMethod) {
		sender.UnsubscribeMethod = method
	}
	if sender.UnsubscribeMailto == nil && mailto != "" {
		sender.UnsubscribeMailto = &mailto
	}
	if sender.UnsubscribeURL == nil && httpURL != "" {
		sender.UnsubscribeURL = &httpURL
	}

	if score > sender.JunkScore {
		sender.JunkScore = score
	}

	if !meta.Date.IsZero() {
		when := meta.Date
		if sender.FirstSeenAt == nil || when.Before(*sender.FirstSeenAt) {
			sender.FirstSeenAt = &when
		}
		if sender.LastSeenAt == nil || when.After(*sender.LastSeenAt) {
			sender.LastSeenAt = &when
		}
	}
}

// methodRank orders unsubscribe methods by how reliably they work without
// user interaction. One-click beats mailto beats a plain http page.
func methodRank(m models.UnsubscribeMethod) int {
	switch m {
	case models.UnsubscribeOneClick:
		return 3
	case models.UnsubscribeMailto:
		return 2
	case models.UnsubscribeHTTP:
		return 1
	default:
		return 0
	}
}

// ParseListUnsubscribe extracts the unsubscribe targets from a
// List-Unsubscribe header value. The header carries a comma-separated list of
// angle-bracketed URIs; oneClick marks the RFC 8058 List-Unsubscribe-Post
// variant, which requires an https target.
func ParseListUnsubscribe(header string, oneClick bool) (models.UnsubscribeMethod, string, string) {
	var mailto, httpURL string

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "<")
		part = strings.TrimSuffix(part, ">")
		if part == "" {
			continue
		}

		lower := strings.ToLower(part)
		switch {
		case strings.HasPrefix(lower, "mailto:") && mailto == "":
			mailto = part
		case (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) && httpURL == "":
			if _, err := url.Parse(part); err == nil {
				httpURL = part
			}
		}
	}

	switch {
	case oneClick && strings.HasPrefix(strings.ToLower(httpURL), "https://"):
		return models.UnsubscribeOneClick, mailto, httpURL
	case mailto != "":
		return models.UnsubscribeMailto, mailto, httpURL
	case httpURL != "":
		return models.UnsubscribeHTTP, mailto, httpURL
	default:
		return models.UnsubscribeNone, "", ""
	}
}
