package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/telemetry"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/usecase"
)

const defaultSessionCookie = "portal_session"

// AuthHandler serves the public activation and login endpoints.
type AuthHandler struct {
	activation   *usecase.ActivationService
	auth         *usecase.AuthService
	logger       *zap.Logger
	metrics      *telemetry.Metrics
	cookieName   string
	cookieSecure bool
}

// AuthOption customizes the auth handler.
type AuthOption func(*AuthHandler)

// WithSessionCookie sets the session cookie name and Secure flag.
func WithSessionCookie(name string, secure bool) AuthOption {
	return func(h *AuthHandler) {
		if name != "" {
			h.cookieName = name
		}
		h.cookieSecure = secure
	}
}

// WithMetrics enables outcome counters on the auth endpoints.
func WithMetrics(metrics *telemetry.Metrics) AuthOption {
	return func(h *AuthHandler) {
		h.metrics = metrics
	}
}

// NewAuthHandler creates the handler.
func NewAuthHandler(activation *usecase.ActivationService, auth *usecase.AuthService, log *zap.Logger, opts ...AuthOption) *AuthHandler {
	h := &AuthHandler{
		activation: activation,
		auth:       auth,
		logger:     log,
		cookieName: defaultSessionCookie,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/verify-token", h.VerifyToken)
	r.POST("/activate", h.Activate)
	r.POST("/login", h.Login)
}

var tokenErrorCases = []ErrorCase{
	{Err: usecase.ErrTokenInvalid, Status: http.StatusNotFound, Kind: "token_invalid", Message: "activation link is not valid"},
	{Err: usecase.ErrTokenUsed, Status: http.StatusConflict, Kind: "token_used", Message: "activation link has already been used"},
	{Err: usecase.ErrTokenRevoked, Status: http.StatusConflict, Kind: "token_revoked", Message: "activation link has been replaced"},
	{Err: usecase.ErrTokenExpired, Status: http.StatusGone, Kind: "token_expired", Message: "activation link has expired"},
	{Err: usecase.ErrAlreadyActivated, Status: http.StatusConflict, Kind: "already_activated", Message: "account is already activated"},
}

// VerifyToken inspects an activation token without consuming it, the
// call the activation page makes on load before showing the credential
// form.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "tokenValue is required"))
		return
	}

	result, err := h.activation.Verify(c.Request.Context(), req.TokenValue)
	if err != nil {
		h.countVerdict(verdictLabel(err))
		RespondWithMappedError(c, err, tokenErrorCases)
		return
	}
	h.countVerdict("valid")

	user := NewUserSummary(result.User)
	c.JSON(http.StatusOK, VerifyTokenResponse{
		Valid:     true,
		User:      &user,
		ExpiresIn: int64(result.ExpiresIn / time.Second),
	})
}

// Activate consumes the token and sets the account's first credential.
// On success the session cookie is set so the user lands signed in.
func (h *AuthHandler) Activate(c *gin.Context) {
	var req CompleteActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "tokenValue and newCredential are required"))
		return
	}

	result, err := h.activation.Complete(c.Request.Context(), req.TokenValue, req.NewCredential, c.ClientIP())
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrWeakCredential, Status: http.StatusUnprocessableEntity, Kind: "weak_credential", Message: "password does not meet the requirements"},
		}, tokenErrorCases...)
		RespondWithMappedError(c, err, cases)
		return
	}

	if h.metrics != nil {
		h.metrics.Activations.Inc()
	}

	if result.SessionToken != "" {
		h.setSessionCookie(c, result.SessionToken, result.SessionExpiresAt)
	}

	c.JSON(http.StatusOK, CompleteActivationResponse{
		User:         NewUserSummary(result.User),
		SessionToken: result.SessionToken,
	})
}

// Login authenticates an activated account. A 429 with
// requiresRecaptcha set tells the form to render the challenge and
// retry with a proof.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "malformed login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:        req.Email,
		Password:     req.Password,
		CaptchaToken: req.CaptchaToken,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrCaptchaRequired):
			h.countLogin("captcha_required")
			if h.metrics != nil {
				h.metrics.CaptchaChallenges.Inc()
			}
			c.JSON(http.StatusTooManyRequests, CaptchaChallengeResponse{
				Kind:              "captcha_required",
				Error:             "too many failed attempts, complete the challenge",
				RequiresRecaptcha: true,
			})
		case errors.Is(err, usecase.ErrCaptchaFailed):
			h.countLogin("captcha_failed")
			c.JSON(http.StatusTooManyRequests, CaptchaChallengeResponse{
				Kind:              "captcha_failed",
				Error:             "challenge verification failed",
				RequiresRecaptcha: true,
			})
		default:
			h.countLogin("failure")
			RespondWithMappedError(c, err, []ErrorCase{
				{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Kind: "validation_error", Message: "email and password are required"},
				{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Kind: "invalid_credentials", Message: "invalid email or password"},
			})
		}
		return
	}

	h.countLogin("success")
	h.setSessionCookie(c, result.SessionToken, result.SessionExpiresAt)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.SessionToken,
		ExpiresAt: result.SessionExpiresAt,
		User:      NewUserSummary(result.User),
	})
}

func (h *AuthHandler) countVerdict(verdict string) {
	if h.metrics != nil {
		h.metrics.TokenVerdicts.WithLabelValues(verdict).Inc()
	}
}

func (h *AuthHandler) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func verdictLabel(err error) string {
	switch {
	case errors.Is(err, usecase.ErrTokenUsed):
		return "used"
	case errors.Is(err, usecase.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, usecase.ErrTokenExpired):
		return "expired"
	case errors.Is(err, usecase.ErrAlreadyActivated):
		return "already_activated"
	default:
		return "invalid"
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt) / time.Second)
	if maxAge < 0 {
		maxAge = 0
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
