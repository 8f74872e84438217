package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/config"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/logger"
)

// HTTPSender delivers activation mail through a JSON mail provider API.
type HTTPSender struct {
	client *http.Client
	cfg    config.MailSettings
	log    *zap.Logger
}

// NewHTTPSender builds a sender against the configured provider endpoint.
func NewHTTPSender(cfg config.MailSettings, log *zap.Logger) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
		log:    log,
	}
}

type messageJSON struct {
	From     string `json:"from"`
	FromName string `json:"from_name,omitempty"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
}

type providerResponse struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}

// SendActivationLink posts the activation message to the provider.
func (s *HTTPSender) SendActivationLink(ctx context.Context, msg port.ActivationEmail) error {
	data := messageJSON{
		From:     s.cfg.FromAddress,
		FromName: s.cfg.FromName,
		To:       msg.To,
		Subject:  "Activate your portal account",
		TextBody: renderActivationBody(msg),
	}

	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(data); err != nil {
		return fmt.Errorf("encode mail json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, &b)
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}

	var res providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("decode mail response: %w", err)
	}
	if res.ErrorCode != 0 {
		return fmt.Errorf("mail provider error %d: %s", res.ErrorCode, res.Message)
	}

	s.log.Info("activation mail delivered",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.Time("token_expires_at", msg.ExpiresAt),
	)

	return nil
}

func renderActivationBody(msg port.ActivationEmail) string {
	name := msg.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s,\n\nYour portal account is ready. Activate it with the link below:\n\n%s\n\nThe link expires at %s. If you did not expect this email you can ignore it.\n",
		name,
		msg.ActivationURL,
		msg.ExpiresAt.UTC().Format(time.RFC1123),
	)
}

// LogSender logs activation mail instead of delivering it, for
// development environments without a mail provider. The token only
// appears masked.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates a new LogSender.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

// SendActivationLink logs the would-be delivery.
func (s *LogSender) SendActivationLink(_ context.Context, msg port.ActivationEmail) error {
	s.log.Info("activation mail (log sender)",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("token", logger.MaskString(msg.Token)),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

var (
	_ port.ActivationMailer = (*HTTPSender)(nil)
	_ port.ActivationMailer = (*LogSender)(nil)
)
