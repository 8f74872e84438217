package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

// Session validity is fixed; there is no sliding refresh.
const sessionTTL = 24 * time.Hour

var (
	// ErrSessionInvalid covers malformed, mis-signed, or otherwise
	// unusable session tokens.
	ErrSessionInvalid = errors.New("session token invalid")
	// ErrSessionExpired indicates a well-formed token past its
	// expiry.
	ErrSessionExpired = errors.New("session token expired")
)

// SessionClaims are the claims embedded in a portal session token.
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and parses RS256 session tokens.
type SessionIssuer struct {
	keys   KeyProvider
	kid    string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer builds an issuer signing under kid.
func NewSessionIssuer(keys KeyProvider, kid, issuer string) *SessionIssuer {
	return &SessionIssuer{
		keys:   keys,
		kid:    kid,
		issuer: issuer,
		ttl:    sessionTTL,
		now:    time.Now,
	}
}

// WithClock overrides the issuer clock. Test hook.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	s.now = now
	return s
}

// WithTTL overrides the session validity window. Test hook.
func (s *SessionIssuer) WithTTL(ttl time.Duration) *SessionIssuer {
	s.ttl = ttl
	return s
}

// Issue signs a session token for the given user.
func (s *SessionIssuer) Issue(user *domain.User) (string, time.Time, error) {
	signingKey, err := s.keys.GetSigningKey()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("get signing key: %w", err)
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)

	claims := SessionClaims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a session token and returns its claims.
func (s *SessionIssuer) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return s.keys.GetVerificationKey(kid)
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if !token.Valid {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}
