package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/telemetry"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/usecase"
)

// AdminTokensHandler serves the admin token lifecycle endpoints.
type AdminTokensHandler struct {
	activation *usecase.ActivationService
	logger     *zap.Logger
	metrics    *telemetry.Metrics
}

// NewAdminTokensHandler creates the handler. Metrics may be nil.
func NewAdminTokensHandler(activation *usecase.ActivationService, log *zap.Logger, metrics *telemetry.Metrics) *AdminTokensHandler {
	return &AdminTokensHandler{activation: activation, logger: log, metrics: metrics}
}

func (h *AdminTokensHandler) countIssued(tokenType domain.TokenType) {
	if h.metrics != nil {
		h.metrics.TokensIssued.WithLabelValues(string(tokenType)).Inc()
	}
}

// RegisterRoutes wires the admin token endpoints.
func (h *AdminTokensHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/tokens/issue", h.Issue)
	r.POST("/tokens/resend", h.Resend)
}

// Issue mints a fresh activation token for the user, superseding any
// outstanding pending one. The raw value is returned to the caller and
// not retrievable afterwards.
func (h *AdminTokensHandler) Issue(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "userId is required"))
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "admin"
	}

	result, err := h.activation.Issue(c.Request.Context(), usecase.IssueInput{
		UserID:    req.UserID,
		Type:      domain.TokenTypeActivation,
		Actor:     actor,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Kind: "not_found", Message: "user not found"},
			{Err: usecase.ErrAlreadyActivated, Status: http.StatusConflict, Kind: "already_activated", Message: "account is already activated"},
		})
		return
	}

	h.countIssued(domain.TokenTypeActivation)

	c.JSON(http.StatusCreated, IssuedTokenPayload{
		TokenID:    result.TokenID,
		TokenValue: result.TokenValue,
		ExpiresAt:  result.ExpiresAt,
		Delivered:  result.Delivered,
		Superseded: result.Superseded,
	})
}

// Resend replaces the user's pending token with a fresh one and
// redelivers the activation link. Unlike Issue the raw value stays out
// of the response; the only copy rides the delivery channel.
func (h *AdminTokensHandler) Resend(c *gin.Context) {
	var req ResendTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "userId is required"))
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "admin"
	}

	result, err := h.activation.Resend(c.Request.Context(), req.UserID, actor, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Kind: "not_found", Message: "user not found"},
			{Err: usecase.ErrAlreadyActivated, Status: http.StatusConflict, Kind: "already_activated", Message: "account is already activated"},
		})
		return
	}

	h.countIssued(domain.TokenTypeActivation)

	c.JSON(http.StatusOK, ResendTokenResponse{
		TokenID:   result.TokenID,
		ExpiresAt: result.ExpiresAt,
		Delivered: result.Delivered,
	})
}
