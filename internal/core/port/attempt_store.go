package port

import (
	"context"
)

// AttemptStore tracks failed login attempts per source IP. Records
// older than the configured window are treated as absent. The store is
// a best-effort throttle: concurrent increments for the same IP may
// lose updates and that is acceptable.
type AttemptStore interface {
	// Failures returns the current failure count for the IP, zero
	// when no live record exists.
	Failures(ctx context.Context, ip string) (int, error)
	// RecordFailure increments the counter and refreshes the reset
	// window, returning the new count.
	RecordFailure(ctx context.Context, ip string) (int, error)
	// Clear removes the record after a successful login.
	Clear(ctx context.Context, ip string) error
}
