package domain

import "time"

// UserCreatedEvent announces an admin-provisioned account.
type UserCreatedEvent struct {
	EventID   string
	UserID    string
	Email     string
	Name      string
	Role      string
	CreatedBy string
	CreatedAt time.Time
	Metadata  map[string]any
}

// UserDeletedEvent announces account removal, including how many
// tokens the deletion cascade revoked.
type UserDeletedEvent struct {
	EventID       string
	UserID        string
	DeletedBy     string
	DeletedAt     time.Time
	TokensRevoked int
	Metadata      map[string]any
}

// TokenIssuedEvent announces a freshly issued activation or reset
// token. Destination is carried masked; the raw token value never
// appears in events.
type TokenIssuedEvent struct {
	EventID           string
	TokenID           string
	UserID            string
	Type              TokenType
	IssuedBy          string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	MaskedDestination string
	Delivered         bool
	Superseded        int
	Metadata          map[string]any
}

// AccountActivatedEvent announces a completed activation.
type AccountActivatedEvent struct {
	EventID     string
	UserID      string
	TokenID     string
	ActivatedAt time.Time
	IPAddress   *string
	Metadata    map[string]any
}

// LoginEvent records an authentication attempt outcome. Server-side
// audit detail (including probes against unknown emails) stays in the
// event stream and logs; the HTTP response never distinguishes them.
type LoginEvent struct {
	EventID     string
	UserID      *string
	MaskedEmail string
	Succeeded   bool
	Reason      string
	IPAddress   string
	UserAgent   string
	At          time.Time
	Metadata    map[string]any
}
