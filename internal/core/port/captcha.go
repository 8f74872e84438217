package port

import (
	"context"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

// CaptchaVerifier checks a client-supplied proof against the CAPTCHA
// provider. Calls are bounded by the implementation's timeout; a
// transport error means the verdict is unknown, not that the proof
// failed.
type CaptchaVerifier interface {
	Verify(ctx context.Context, clientToken string, remoteIP string) (domain.CaptchaResult, error)
}
