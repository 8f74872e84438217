package domain

import "time"

// TokenType distinguishes first-time activation tokens from
// admin-initiated credential resets. Both follow the same state machine.
type TokenType string

const (
	TokenTypeActivation TokenType = "activation"
	TokenTypeReset      TokenType = "reset"
)

// TokenStatus enumerates the activation token state machine.
// pending is the only non-terminal state; used, expired, and revoked
// are terminal and never transition again.
type TokenStatus string

const (
	TokenStatusPending TokenStatus = "pending"
	TokenStatusUsed    TokenStatus = "used"
	TokenStatusExpired TokenStatus = "expired"
	TokenStatusRevoked TokenStatus = "revoked"
)

// ActivationToken represents a single-use activation or reset artifact.
// The raw token value is a bearer secret; only its SHA-256 digest is
// persisted in TokenHash.
type ActivationToken struct {
	ID        string
	UserID    string
	TokenHash string
	Type      TokenType
	Status    TokenStatus
	CreatedBy string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	RevokedAt *time.Time
	Metadata  map[string]any
}

// IsExpired reports whether the token has elapsed its validity window.
func (t ActivationToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// IsTerminal reports whether the token can no longer change state.
func (t ActivationToken) IsTerminal() bool {
	return t.Status != TokenStatusPending
}

// RemainingTTL returns how long the token stays redeemable from the
// supplied instant. Zero when already expired.
func (t ActivationToken) RemainingTTL(at time.Time) time.Duration {
	if t.IsExpired(at) {
		return 0
	}
	return t.ExpiresAt.Sub(at)
}

// Consume marks the token as used. Returns false when the token was
// already in a terminal state.
func (t *ActivationToken) Consume(at time.Time) bool {
	if t.IsTerminal() {
		return false
	}
	timeCopy := at
	t.Status = TokenStatusUsed
	t.UsedAt = &timeCopy
	return true
}

// Revoke marks the token as superseded by a newer token.
// Returns false when the token was already in a terminal state.
func (t *ActivationToken) Revoke(at time.Time) bool {
	if t.IsTerminal() {
		return false
	}
	timeCopy := at
	t.Status = TokenStatusRevoked
	t.RevokedAt = &timeCopy
	return true
}

// Expire transitions a pending token whose deadline has passed.
// Returns false when the token was already in a terminal state.
func (t *ActivationToken) Expire() bool {
	if t.IsTerminal() {
		return false
	}
	t.Status = TokenStatusExpired
	return true
}
