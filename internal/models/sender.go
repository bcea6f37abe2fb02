package models

import "time"

// UnsubscribeMethod is the best unsubscribe mechanism found for a sender.
type UnsubscribeMethod string

const (
	UnsubscribeNone     UnsubscribeMethod = "none"
	UnsubscribeMailto   UnsubscribeMethod = "mailto"
	UnsubscribeOneClick UnsubscribeMethod = "one_click"
	UnsubscribeHTTP     UnsubscribeMethod = "http"
)

// Sender is a unique mailbox correspondent discovered during scanning.
type Sender struct {
	ID                int64             `json:"id"`
	Email             string            `json:"email"`
	Domain            string            `json:"domain"`
	DisplayName       *string           `json:"display_name,omitempty"`
	MessageCount      int               `json:"message_count"`
	UnsubscribeMethod UnsubscribeMethod `json:"unsubscribe_method"`
	UnsubscribeMailto *string           `json:"unsubscribe_mailto,omitempty"`
	UnsubscribeURL    *string           `json:"unsubscribe_url,omitempty"`
	JunkScore         int               `json:"junk_score"`
	Unsubscribed      bool              `json:"unsubscribed"`
	UnsubscribedAt    *time.Time        `json:"unsubscribed_at,omitempty"`
	FilterID          *string           `json:"filter_id,omitempty"`
	Processed         bool              `json:"processed"`
	FirstSeenAt       *time.Time        `json:"first_seen_at,omitempty"`
	LastSeenAt        *time.Time        `json:"last_seen_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// SenderStats aggregates the sender table for the dashboard.
type SenderStats struct {
	TotalSenders   int            `json:"total_senders"`
	JunkSenders    int            `json:"junk_senders"`
	Unsubscribed   int            `json:"unsubscribed"`
	FiltersCreated int            `json:"filters_created"`
	Processed      int            `json:"processed"`
	TotalMessages  int64          `json:"total_messages"`
	ByMethod       map[string]int `json:"by_method"`
}

// WhitelistEntry protects an email address or a whole domain from any
// cleanup action.
type WhitelistEntry struct {
	ID      int64     `json:"id"`
	Pattern string    `json:"pattern"`
	Reason  *string   `json:"reason,omitempty"`
	AddedAt time.Time `json:"added_at"`
}
