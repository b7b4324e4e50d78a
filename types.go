package authkit

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator holds the business flows of the credential lifecycle.
// Auther is the default implementation.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput, meta DeviceMeta) (*LoginResult, error)
	Login(ctx context.Context, email, password string, meta DeviceMeta) (*LoginResult, error)
	CompleteStepUp(ctx context.Context, stepUpToken, code string, meta DeviceMeta) (*LoginResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(ctx context.Context, accessToken string) (*Identity, error)
}

// DeviceMeta describes the client that initiated a flow. It is persisted
// with refresh sessions and login attempts.
type DeviceMeta struct {
	UserAgent string
	IPAddress string
}

// Config holds the signing and lifetime options for issued tokens.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	// GetAccessTokenTTL returns the access token lifetime. Minutes-scale.
	GetAccessTokenTTL() time.Duration
	// GetRefreshTokenTTL returns the refresh token and session lifetime.
	// Days-scale.
	GetRefreshTokenTTL() time.Duration
	// GetTOTPIssuer is the issuer label shown in authenticator apps.
	GetTOTPIssuer() string
}

// Mailer delivers outbound notifications. Failures are logged by callers and
// never abort the triggering flow.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// RateLimiter is the contract an HTTP layer applies in front of login,
// password-reset-request, and token-issuing endpoints. Keyed by client
// address and identifier; only login failures count against the budget.
// The core does not implement it.
type RateLimiter interface {
	Allow(ctx context.Context, clientAddr, identifier string) error
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHKIT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHKIT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHKIT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHKIT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
