package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/config"
)

func TestHTTPSender_SendActivationLink(t *testing.T) {
	var received messageJSON

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer mail-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error_code":0}`))
	}))
	defer srv.Close()

	sender := NewHTTPSender(config.MailSettings{
		Endpoint:    srv.URL,
		APIKey:      "mail-key",
		FromAddress: "no-reply@portal.example.com",
		FromName:    "CX Portal",
	}, zaptest.NewLogger(t))

	msg := port.ActivationEmail{
		To:            "new.user@example.com",
		Name:          "New User",
		ActivationURL: "https://portal.example.com/activate?token=abc",
		Token:         "abc",
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}

	if err := sender.SendActivationLink(context.Background(), msg); err != nil {
		t.Fatalf("SendActivationLink returned error: %v", err)
	}

	if received.To != "new.user@example.com" {
		t.Errorf("to = %s", received.To)
	}
	if !strings.Contains(received.TextBody, msg.ActivationURL) {
		t.Error("body does not carry the activation link")
	}
}

func TestHTTPSender_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error_code":300,"message":"invalid recipient"}`))
	}))
	defer srv.Close()

	sender := NewHTTPSender(config.MailSettings{Endpoint: srv.URL}, zaptest.NewLogger(t))

	err := sender.SendActivationLink(context.Background(), port.ActivationEmail{To: "bad"})
	if err == nil {
		t.Error("expected provider error")
	}
}

func TestLogSender(t *testing.T) {
	sender := NewLogSender(zaptest.NewLogger(t))

	err := sender.SendActivationLink(context.Background(), port.ActivationEmail{
		To:    "new.user@example.com",
		Token: "raw-token-value-should-not-log",
	})
	if err != nil {
		t.Fatalf("SendActivationLink returned error: %v", err)
	}
}
