package models

import "time"

// MessageMeta is the metadata projection of a mailbox message used by
// discovery and scanning. It carries only headers, never bodies.
type MessageMeta struct {
	ID                  string
	ThreadID            string
	FromEmail           string
	FromName            string
	Subject             string
	Snippet             string
	Date                time.Time
	SizeEstimate        int64
	LabelIDs            []string
	ListUnsubscribe     string
	ListUnsubscribePost bool
}

// GmailCredentials holds the stored OAuth tokens for the mailbox. Tokens are
// obtained by an external flow; this service only stores and refreshes them.
type GmailCredentials struct {
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	Scopes       []string   `json:"scopes"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AuthStatusResponse reports whether usable Gmail credentials are on file.
type AuthStatusResponse struct {
	HasCredentials bool       `json:"has_credentials"`
	TokenValid     bool       `json:"token_valid"`
	TokenExpiry    *time.Time `json:"token_expiry,omitempty"`
}
