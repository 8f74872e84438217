package domain

import "time"

// AccountStatus enumerates account lifecycle states.
type AccountStatus string

const (
	AccountStatusPendingActivation AccountStatus = "pending_activation"
	AccountStatusActive            AccountStatus = "active"
)

// CredentialStatus enumerates the state of a user's stored credential.
type CredentialStatus string

const (
	CredentialStatusPending   CredentialStatus = "pending"
	CredentialStatusTemporary CredentialStatus = "temporary"
	CredentialStatusActive    CredentialStatus = "active"
)

// User mirrors the persisted representation in the users table.
// PasswordHash is nil until the account completes activation; the
// repositories maintain the invariant that Status is active exactly
// when a credential hash is stored with CredentialStatus active.
type User struct {
	ID               string
	Email            string
	Name             string
	Role             string
	PasswordHash     *string
	PasswordAlgo     string
	CredentialStatus CredentialStatus
	Status           AccountStatus
	CreatedBy        string
	CreatedAt        time.Time
	ActivatedAt      *time.Time
	LastLogin        *time.Time
}

// IsActivated reports whether the account finished activation.
func (u User) IsActivated() bool {
	return u.Status == AccountStatusActive
}

// HasCredential reports whether a usable credential hash is stored.
func (u User) HasCredential() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Activate flips the account into the active state exactly once.
// Returns false when the account was already activated.
func (u *User) Activate(passwordHash string, at time.Time) bool {
	if u.Status == AccountStatusActive {
		return false
	}
	hashCopy := passwordHash
	timeCopy := at
	u.PasswordHash = &hashCopy
	u.CredentialStatus = CredentialStatusActive
	u.Status = AccountStatusActive
	u.ActivatedAt = &timeCopy
	return true
}
