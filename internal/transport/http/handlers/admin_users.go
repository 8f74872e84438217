package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/logger"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/usecase"
)

// AdminUsersHandler serves the admin provisioning endpoints.
type AdminUsersHandler struct {
	users  *usecase.UserService
	logger *zap.Logger
}

// NewAdminUsersHandler creates the handler.
func NewAdminUsersHandler(users *usecase.UserService, log *zap.Logger) *AdminUsersHandler {
	return &AdminUsersHandler{users: users, logger: log}
}

// RegisterRoutes wires the admin user endpoints.
func (h *AdminUsersHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.Create)
	r.DELETE("/users/:id", h.Delete)
	r.POST("/users/:id/reset-credential", h.ResetCredential)
}

// Create provisions a passwordless account and, unless suppressed,
// issues its first activation token in the same call.
func (h *AdminUsersHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "email and name are required"))
		return
	}

	issueToken := req.SendEmail == nil || *req.SendEmail

	result, err := h.users.Create(c.Request.Context(), usecase.CreateUserInput{
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		Actor:      "admin",
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		IssueToken: issueToken,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Kind: "validation_error", Message: "invalid user payload"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Kind: "conflict", Message: "email already registered"},
		})
		return
	}

	resp := CreateUserResponse{User: NewUserSummary(result.User)}
	if result.Token != nil {
		resp.Token = &IssuedTokenPayload{
			TokenID:    result.Token.TokenID,
			TokenValue: result.Token.TokenValue,
			ExpiresAt:  result.Token.ExpiresAt,
			Delivered:  result.Token.Delivered,
			Superseded: result.Token.Superseded,
		}
	}

	h.logger.Info("user provisioned",
		zap.String("user_id", result.User.ID),
		zap.String("email", logger.MaskEmail(result.User.Email)))

	c.JSON(http.StatusCreated, resp)
}

// Delete removes an account and revokes its outstanding tokens.
func (h *AdminUsersHandler) Delete(c *gin.Context) {
	revoked, err := h.users.Delete(c.Request.Context(), c.Param("id"), "admin")
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Kind: "not_found", Message: "user not found"},
		})
		return
	}

	c.JSON(http.StatusOK, DeleteUserResponse{Deleted: true, TokensRevoked: revoked})
}

// ResetCredential clears the account's credential and issues a reset
// token through the same pipeline as activation.
func (h *AdminUsersHandler) ResetCredential(c *gin.Context) {
	result, err := h.users.ResetCredential(c.Request.Context(), c.Param("id"), "admin", c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Kind: "not_found", Message: "user not found"},
		})
		return
	}

	c.JSON(http.StatusOK, ResetCredentialResponse{
		TokenID:   result.TokenID,
		ExpiresAt: result.ExpiresAt,
		Delivered: result.Delivered,
	})
}
