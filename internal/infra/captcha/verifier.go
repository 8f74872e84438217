package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/config"
)

// HTTPVerifier checks CAPTCHA proofs against a siteverify-style
// endpoint.
type HTTPVerifier struct {
	client *http.Client
	cfg    config.CaptchaSettings
}

// NewHTTPVerifier builds a verifier for the configured provider.
func NewHTTPVerifier(cfg config.CaptchaSettings) *HTTPVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the client proof to the provider and returns its verdict.
func (v *HTTPVerifier) Verify(ctx context.Context, clientToken string, remoteIP string) (domain.CaptchaResult, error) {
	form := url.Values{}
	form.Set("secret", v.cfg.Secret)
	form.Set("response", clientToken)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.CaptchaResult{}, fmt.Errorf("create captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return domain.CaptchaResult{}, fmt.Errorf("send captcha request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.CaptchaResult{}, fmt.Errorf("captcha provider returned status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.CaptchaResult{}, fmt.Errorf("decode captcha response: %w", err)
	}

	return domain.CaptchaResult{
		Success: body.Success,
		Score:   body.Score,
	}, nil
}

var _ port.CaptchaVerifier = (*HTTPVerifier)(nil)
