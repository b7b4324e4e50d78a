package authkit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates the typed payloads the codec signs.
type TokenKind = string

const (
	// TokenKindAccess authorizes API calls for its short lifetime.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is exchanged for fresh access tokens; it carries the
	// id of the refresh-session row that backs it.
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims is the signed payload of every token the codec issues. A
// step-up token is an access token with StepUp set; it proves
// primary-credential success only and is rejected everywhere except
// second-factor completion.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	Email     string `json:"email,omitempty"`
	Kind      string `json:"kind,omitempty"`
	StepUp    bool   `json:"step_up,omitempty"`
	SessionID string `json:"sid,omitempty"`
	AttemptID string `json:"aid,omitempty"`
}

// IdentityID returns the subject identity id.
func (c *TokenClaims) IdentityID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// IdentityUUID parses the subject identity id.
func (c *TokenClaims) IdentityUUID() (uuid.UUID, error) {
	return uuid.Parse(c.IdentityID())
}

// SessionUUID parses the refresh-session id carried by refresh tokens.
func (c *TokenClaims) SessionUUID() (uuid.UUID, error) {
	return uuid.Parse(c.SessionID)
}

// AttemptUUID parses the login-attempt id carried by step-up tokens.
func (c *TokenClaims) AttemptUUID() (uuid.UUID, error) {
	return uuid.Parse(c.AttemptID)
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issued at time
func (c *TokenClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
