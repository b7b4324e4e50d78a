package authkit

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// DefaultAccessTokenTTL keeps the blast radius of a leaked access token
	// small.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL bounds how long a login lives without
	// re-authentication.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// StaticConfig is a plain-struct Config for callers that do not carry their
// own configuration layer. Zero TTLs fall back to the defaults.
type StaticConfig struct {
	SigningKey      string
	Issuer          string
	Audience        []string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	TOTPIssuer      string
}

var _ Config = StaticConfig{}

// Validate checks the config is usable.
func (c StaticConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.Issuer, validation.Required),
	)
}

func (c StaticConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c StaticConfig) GetIssuer() string {
	return c.Issuer
}

func (c StaticConfig) GetAudience() []string {
	return c.Audience
}

func (c StaticConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c StaticConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c StaticConfig) GetTOTPIssuer() string {
	if c.TOTPIssuer == "" {
		return c.Issuer
	}
	return c.TOTPIssuer
}
