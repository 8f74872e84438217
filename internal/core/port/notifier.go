package port

import (
	"context"
	"time"
)

// ActivationEmail carries everything the mail collaborator needs to
// deliver an activation link. Token is the raw bearer value embedded in
// ActivationURL; implementations must never log it in full.
type ActivationEmail struct {
	To            string
	Name          string
	ActivationURL string
	Token         string
	Locale        string
	ExpiresAt     time.Time
}

// ActivationMailer delivers activation links. Delivery is best-effort:
// callers treat errors as a degraded-success signal, never as a reason
// to roll back the issued token.
type ActivationMailer interface {
	SendActivationLink(ctx context.Context, msg ActivationEmail) error
}
