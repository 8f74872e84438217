package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

// ErrorResponse carries a stable machine-readable kind plus a human
// message. Kind is what form clients branch on; Error is display text.
type ErrorResponse struct {
	Kind      string `json:"kind"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the request id from context.
func NewErrorResponse(c *gin.Context, kind, errorMsg string) ErrorResponse {
	requestID, _ := c.Get("request_id")
	requestIDStr, _ := requestID.(string)

	return ErrorResponse{
		Kind:      kind,
		Error:     errorMsg,
		RequestID: requestIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary is the public view of an account. Credential material
// never appears here.
type UserSummary struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	Name          string               `json:"name"`
	Role          string               `json:"role"`
	AccountStatus domain.AccountStatus `json:"accountStatus"`
	ActivatedAt   *time.Time           `json:"activatedAt,omitempty"`
}

// NewUserSummary maps a domain user onto its public view.
func NewUserSummary(user *domain.User) UserSummary {
	return UserSummary{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		AccountStatus: user.Status,
		ActivatedAt:   user.ActivatedAt,
	}
}

// CreateUserRequest defines the admin provisioning payload.
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Role      string `json:"role"`
	SendEmail *bool  `json:"sendEmail"`
}

// CreateUserResponse reports the provisioned account.
type CreateUserResponse struct {
	User  UserSummary         `json:"user"`
	Token *IssuedTokenPayload `json:"token,omitempty"`
}

// DeleteUserResponse reports the deletion cascade.
type DeleteUserResponse struct {
	Deleted       bool `json:"deleted"`
	TokensRevoked int  `json:"tokensRevoked"`
}

// IssueTokenRequest asks for a fresh activation token. Email is
// accepted for callers that send the full provisioning shape but the
// stored account record stays authoritative for delivery.
type IssueTokenRequest struct {
	UserID string `json:"userId" binding:"required"`
	Email  string `json:"email"`
	Actor  string `json:"actor"`
}

// IssuedTokenPayload reports an issued token. TokenValue is the one
// place the raw secret crosses the wire, straight back to the admin
// who asked for it.
type IssuedTokenPayload struct {
	TokenID    string    `json:"tokenId"`
	TokenValue string    `json:"tokenValue,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Delivered  bool      `json:"delivered"`
	Superseded int       `json:"superseded,omitempty"`
}

// ResendTokenRequest asks for a replacement activation token.
type ResendTokenRequest struct {
	UserID string `json:"userId" binding:"required"`
	Actor  string `json:"actor"`
}

// ResendTokenResponse confirms the replacement link.
type ResendTokenResponse struct {
	TokenID   string    `json:"tokenId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Delivered bool      `json:"delivered"`
}

// ResetCredentialResponse reports an admin credential reset.
type ResetCredentialResponse struct {
	TokenID   string    `json:"tokenId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Delivered bool      `json:"delivered"`
}

// VerifyTokenRequest carries a token for read-only inspection.
type VerifyTokenRequest struct {
	TokenValue string `json:"tokenValue" binding:"required"`
}

// VerifyTokenResponse reports the verdict. ExpiresIn is seconds of
// remaining validity; User is only present when Valid.
type VerifyTokenResponse struct {
	Valid     bool         `json:"valid"`
	User      *UserSummary `json:"user,omitempty"`
	ExpiresIn int64        `json:"expiresIn,omitempty"`
}

// CompleteActivationRequest sets the account's first credential. The
// token is the authentication.
type CompleteActivationRequest struct {
	TokenValue    string `json:"tokenValue" binding:"required"`
	NewCredential string `json:"newCredential" binding:"required"`
}

// CompleteActivationResponse reports the activated account.
type CompleteActivationResponse struct {
	User         UserSummary `json:"user"`
	SessionToken string      `json:"sessionToken,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

// LoginResponse describes a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserSummary `json:"user"`
}

// CaptchaChallengeResponse tells the client a proof is required.
type CaptchaChallengeResponse struct {
	Kind              string `json:"kind"`
	Error             string `json:"error"`
	RequiresRecaptcha bool   `json:"requiresRecaptcha"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports dependency checks.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
