package authkit

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identity is the user record. Never physically deleted; setting DisabledAt
// is the only destructive operation.
type Identity struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`

	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash    string     `bun:"password_hash" json:"-"`
	FirstName       string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName        string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	EmailVerifiedAt *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	TOTPSecret      string     `bun:"totp_secret" json:"-"`
	TOTPEnabledAt   *time.Time `bun:"totp_enabled_at,nullzero" json:"totp_enabled_at,omitempty"`
	DisabledAt      *time.Time `bun:"disabled_at,nullzero" json:"disabled_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsDisabled reports whether the identity has been soft-deleted.
func (u *Identity) IsDisabled() bool {
	return u.DisabledAt != nil
}

// EmailVerified reports whether the address has been confirmed.
func (u *Identity) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// TwoFactorEnabled reports whether TOTP enrollment has been confirmed.
// TOTPEnabledAt set implies TOTPSecret set.
func (u *Identity) TwoFactorEnabled() bool {
	return u.TOTPEnabledAt != nil && u.TOTPSecret != ""
}

// RefreshSession is one logical login. Valid iff RevokedAt is unset and
// ExpiresAt is in the future. Mutated only to set RevokedAt; there is no
// un-revoke.
type RefreshSession struct {
	bun.BaseModel `bun:"table:refresh_sessions,alias:rs"`

	ID         uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	IdentityID uuid.UUID  `bun:"identity_id,notnull,type:uuid" json:"identity_id,omitempty"`
	Secret     string     `bun:"secret,notnull,unique" json:"-"`
	UserAgent  string     `bun:"user_agent" json:"user_agent,omitempty"`
	IPAddress  string     `bun:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt  time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt  *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
}

// Revoked reports whether the session has been explicitly terminated.
func (s *RefreshSession) Revoked() bool {
	return s.RevokedAt != nil
}

// ValidAt reports whether the session can still mint access tokens at now.
func (s *RefreshSession) ValidAt(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// RevokedAccessToken is an access token invalidated before natural expiry.
// Rows are reclaimable once ExpiresAt passes: expiry already rejects the
// token by then.
type RevokedAccessToken struct {
	bun.BaseModel `bun:"table:revoked_access_tokens,alias:rat"`

	Token      string    `bun:"token,pk" json:"-"`
	IdentityID uuid.UUID `bun:"identity_id,notnull,type:uuid" json:"identity_id,omitempty"`
	ExpiresAt  time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
}

// TokenPurpose scopes a single-use token to one flow.
type TokenPurpose = string

const (
	// PurposeEmailVerification tokens live 24 hours.
	PurposeEmailVerification TokenPurpose = "email_verification"
	// PurposePasswordReset tokens live 1 hour.
	PurposePasswordReset TokenPurpose = "password_reset"
)

const (
	// EmailVerificationTTL is the default lifetime of verification links.
	EmailVerificationTTL = 24 * time.Hour
	// PasswordResetTTL is the default lifetime of reset links.
	PasswordResetTTL = time.Hour
)

// SingleUseToken backs email verification and password reset links. At most
// one row per (identity, purpose) is meaningful; issuing replaces prior
// rows, consuming deletes the row.
type SingleUseToken struct {
	bun.BaseModel `bun:"table:single_use_tokens,alias:sut"`

	Token      string    `bun:"token,pk" json:"-"`
	IdentityID uuid.UUID `bun:"identity_id,notnull,type:uuid" json:"identity_id,omitempty"`
	Purpose    string    `bun:"purpose,notnull" json:"purpose,omitempty"`
	ExpiresAt  time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// ExpiredAt reports whether the token is past its lifetime at now.
func (t *SingleUseToken) ExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// LinkedAccount bridges an external identity assertion to an Identity.
// Unique on (provider, provider_account_id).
type LinkedAccount struct {
	bun.BaseModel `bun:"table:linked_accounts,alias:la"`

	ID                uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Provider          string    `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderAccountID string    `bun:"provider_account_id,notnull" json:"provider_account_id,omitempty"`
	IdentityID        uuid.UUID `bun:"identity_id,notnull,type:uuid" json:"identity_id,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// LoginAttempt is an append-only audit row. The only mutation ever applied
// is flipping the most recent matching failure to success right after a
// successful login.
type LoginAttempt struct {
	bun.BaseModel `bun:"table:login_attempts,alias:lat"`

	ID         uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	IdentityID *uuid.UUID `bun:"identity_id,nullzero,type:uuid" json:"identity_id,omitempty"`
	Email      string     `bun:"email,notnull" json:"email,omitempty"`
	IPAddress  string     `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string     `bun:"user_agent" json:"user_agent,omitempty"`
	Succeeded  bool       `bun:"succeeded,notnull" json:"succeeded"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// NormalizeEmail canonicalizes an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newOpaqueToken returns n random bytes hex encoded. Used for refresh
// session secrets (64 bytes) and single-use tokens (32 bytes).
func newOpaqueToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
