package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus instruments the service maintains.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	TokensIssued      *prometheus.CounterVec
	TokenVerdicts     *prometheus.CounterVec
	Activations       prometheus.Counter
	LoginAttempts     *prometheus.CounterVec
	CaptchaChallenges prometheus.Counter
}

// NewMetrics registers the service metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "activation_tokens_issued_total",
			Help:      "Activation tokens issued, by type",
		}, []string{"type"}),
		TokenVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "token_verifications_total",
			Help:      "Token verification outcomes",
		}, []string{"verdict"}),
		Activations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "account_activations_total",
			Help:      "Accounts that completed activation",
		}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		CaptchaChallenges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "captcha_challenges_total",
			Help:      "Logins that required CAPTCHA proof",
		}),
	}
}
