package mail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haris-cl/inbox-nuke/backend/internal/config"
	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"github.com/haris-cl/inbox-nuke/backend/internal/retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// metadataWorkers bounds concurrent metadata fetches per batch.
const metadataWorkers = 8

// GmailClient implements Client on top of the Gmail REST API.
type GmailClient struct {
	svc *gmailv1.Service
}

// NewGmailClient builds a Gmail client from stored OAuth tokens. The oauth2
// transport refreshes the access token automatically using the refresh token.
func NewGmailClient(ctx context.Context, cfg *config.Config, creds *models.GmailCredentials) (*GmailClient, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			gmailv1.GmailReadonlyScope,
			gmailv1.GmailModifyScope,
			gmailv1.GmailSettingsBasicScope,
		},
	}

	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	}
	if creds.TokenExpiry != nil {
		token.Expiry = *creds.TokenExpiry
	}

	httpClient := oauthCfg.Client(ctx, token)

	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &GmailClient{svc: svc}, nil
}

// call wraps one provider operation in error classification plus bounded
// retry for transient failures.
func (c *GmailClient) call(ctx context.Context, op func() error) error {
	return retry.Do(ctx, func() error {
		return classify(op())
	}, IsTransient)
}

// ListMessageIDs runs a Gmail search query and pages through results until
// max ids are collected or the result set is exhausted.
func (c *GmailClient) ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for int64(len(ids)) < max {
		pageSize := max - int64(len(ids))
		if pageSize > 500 {
			pageSize = 500
		}

		var resp *gmailv1.ListMessagesResponse
		err := c.call(ctx, func() error {
			call := c.svc.Users.Messages.List(gmailUser).
				Q(query).
				MaxResults(pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages for query %q: %w", query, err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if int64(len(ids)) > max {
		ids = ids[:max]
	}

	return ids, nil
}

// GetMessagesMetadata fetches header metadata for the given ids with a small
// worker pool. Individual fetch failures drop the message rather than failing
// the whole batch, except fatal auth errors which abort immediately.
func (c *GmailClient) GetMessagesMetadata(ctx context.Context, ids []string) ([]*models.MessageMeta, error) {
	jobs := make(chan string)
	var mu sync.Mutex
	var metas []*models.MessageMeta
	var fatalErr error

	var wg sync.WaitGroup
	for i := 0; i < metadataWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				var msg *gmailv1.Message
				err := c.call(ctx, func() error {
					var err error
					msg, err = c.svc.Users.Messages.Get(gmailUser, id).
						Format("metadata").
						MetadataHeaders("From", "Subject", "Date", "List-Unsubscribe", "List-Unsubscribe-Post").
						Context(ctx).
						Do()
					return err
				})

				mu.Lock()
				if err != nil {
					if IsAuthError(err) && fatalErr == nil {
						fatalErr = err
					}
					mu.Unlock()
					continue
				}
				metas = append(metas, messageToMeta(msg))
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return metas, ctx.Err()
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	if fatalErr != nil {
		return nil, fmt.Errorf("failed to fetch message metadata: %w", fatalErr)
	}
	if err := ctx.Err(); err != nil {
		return metas, err
	}

	return metas, nil
}

// TrashMessages moves each message to trash. Returns the count trashed before
// the first error, mirroring the partial-progress semantics the audit log
// depends on.
func (c *GmailClient) TrashMessages(ctx context.Context, ids []string) (int, error) {
	trashed := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return trashed, ctx.Err()
		default:
		}

		err := c.call(ctx, func() error {
			_, err := c.svc.Users.Messages.Trash(gmailUser, id).Context(ctx).Do()
			return err
		})
		if err != nil {
			return trashed, fmt.Errorf("failed to trash message %s: %w", id, err)
		}
		trashed++
	}

	return trashed, nil
}

// GetOrCreateLabel finds a label by name, creating it when absent.
func (c *GmailClient) GetOrCreateLabel(ctx context.Context, name string) (string, error) {
	var list *gmailv1.ListLabelsResponse
	err := c.call(ctx, func() error {
		var err error
		list, err = c.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}

	for _, label := range list.Labels {
		if strings.EqualFold(label.Name, name) {
			return label.Id, nil
		}
	}

	var created *gmailv1.Label
	err = c.call(ctx, func() error {
		var err error
		created, err = c.svc.Users.Labels.Create(gmailUser, &gmailv1.Label{
			Name:                  name,
			LabelListVisibility:   "labelHide",
			MessageListVisibility: "hide",
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}

	return created.Id, nil
}

// ListFilters returns the mailbox's existing filters.
func (c *GmailClient) ListFilters(ctx context.Context) ([]*Filter, error) {
	var resp *gmailv1.ListFiltersResponse
	err := c.call(ctx, func() error {
		var err error
		resp, err = c.svc.Users.Settings.Filters.List(gmailUser).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}

	var filters []*Filter
	for _, f := range resp.Filter {
		filter := &Filter{ID: f.Id}
		if f.Criteria != nil {
			filter.From = f.Criteria.From
		}
		if f.Action != nil {
			filter.AddLabelIDs = f.Action.AddLabelIds
			filter.RemoveLabelIDs = f.Action.RemoveLabelIds
		}
		filters = append(filters, filter)
	}

	return filters, nil
}

// CreateFilter creates a from-based filter.
func (c *GmailClient) CreateFilter(ctx context.Context, fromEmail string, addLabelIDs, removeLabelIDs []string) (string, error) {
	var created *gmailv1.Filter
	err := c.call(ctx, func() error {
		var err error
		created, err = c.svc.Users.Settings.Filters.Create(gmailUser, &gmailv1.Filter{
			Criteria: &gmailv1.FilterCriteria{From: fromEmail},
			Action: &gmailv1.FilterAction{
				AddLabelIds:    addLabelIDs,
				RemoveLabelIds: removeLabelIDs,
			},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create filter for %s: %w", fromEmail, err)
	}

	return created.Id, nil
}

// GetProfile returns the mailbox profile.
func (c *GmailClient) GetProfile(ctx context.Context) (*Profile, error) {
	var profile *gmailv1.Profile
	err := c.call(ctx, func() error {
		var err error
		profile, err = c.svc.Users.GetProfile(gmailUser).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &Profile{
		EmailAddress:  profile.EmailAddress,
		MessagesTotal: profile.MessagesTotal,
	}, nil
}

func messageToMeta(msg *gmailv1.Message) *models.MessageMeta {
	meta := &models.MessageMeta{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Snippet:      msg.Snippet,
		SizeEstimate: msg.SizeEstimate,
		LabelIDs:     msg.LabelIds,
	}

	if msg.InternalDate > 0 {
		meta.Date = time.UnixMilli(msg.InternalDate).UTC()
	}

	if msg.Payload == nil {
		return meta
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			meta.FromEmail, meta.FromName = ParseFromHeader(h.Value)
		case "subject":
			meta.Subject = h.Value
		case "list-unsubscribe":
			meta.ListUnsubscribe = h.Value
		case "list-unsubscribe-post":
			meta.ListUnsubscribePost = strings.Contains(strings.ToLower(h.Value), "one-click")
		}
	}

	return meta
}

// ParseFromHeader splits a From header into a normalized lowercase address
// and a best-effort display name. "Twitter <notify@twitter.com>" yields
// ("notify@twitter.com", "Twitter").
func ParseFromHeader(from string) (email, name string) {
	from = strings.TrimSpace(from)

	if start := strings.Index(from, "<"); start >= 0 {
		end := strings.Index(from[start:], ">")
		if end > 0 {
			email = strings.ToLower(strings.TrimSpace(from[start+1 : start+end]))
			name = strings.Trim(strings.TrimSpace(from[:start]), `"'`)
			return email, name
		}
	}

	return strings.ToLower(from), ""
}
