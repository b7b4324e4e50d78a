package authkit

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds         = "INVALID_CREDENTIALS"
	TextCodeTokenInvalid         = "TOKEN_INVALID"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenNotFound        = "TOKEN_NOT_FOUND"
	TextCodeDuplicateEmail       = "EMAIL_TAKEN"
	TextCodeTooManyAttempts      = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeAccountDisabled      = "ACCOUNT_DISABLED"
	TextCodeSessionNotFound      = "SESSION_NOT_FOUND"
	TextCodeSessionRevoked       = "SESSION_REVOKED"
	TextCodeSessionExpired       = "SESSION_EXPIRED"
	TextCodeAlreadyVerified      = "EMAIL_ALREADY_VERIFIED"
	TextCodeTwoFactorRequired    = "TWO_FACTOR_REQUIRED"
	TextCodeTwoFactorState       = "TWO_FACTOR_STATE"
	TextCodeTwoFactorBadCode     = "TWO_FACTOR_CODE_INVALID"
	TextCodeAccountAlreadyLinked = "ACCOUNT_ALREADY_LINKED"
)

// ErrInvalidCredentials covers bad email, bad password, and disabled
// accounts. Deliberately indistinguishable to the caller.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid is the uniform rejection for bearer tokens: bad signature,
// expired, wrong kind, blacklisted, or backed by a revoked session. Callers
// are never told which.
var ErrTokenInvalid = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired rejects an expired single-use token. Unlike bearer tokens,
// single-use outcomes are distinguishable; there is no oracle risk.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenNotFound rejects an unknown or already-consumed single-use token.
var ErrTokenNotFound = goerrors.New("token not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound)

// ErrDuplicateEmail rejects registration with an email already in use.
var ErrDuplicateEmail = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrTooManyLoginAttempts enforces the failed-login cooldown.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrAccountDisabled rejects flows for soft-deleted identities. Login maps
// this to ErrInvalidCredentials before it crosses the trust boundary.
var ErrAccountDisabled = goerrors.New("account is disabled", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionNotFound is returned by session management operations where the
// caller is entitled to know the session is absent.
var ErrSessionNotFound = goerrors.New("session not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound)

// ErrSessionRevoked rejects a session that was explicitly terminated.
// Revocation is monotonic; a revoked session never validates again.
var ErrSessionRevoked = goerrors.New("session has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionExpired rejects a session past its lifetime.
var ErrSessionExpired = goerrors.New("session has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailAlreadyVerified rejects re-verification of a verified address.
var ErrEmailAlreadyVerified = goerrors.New("email is already verified", goerrors.CategoryValidation).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrTwoFactorAlreadyEnabled rejects enrollment when TOTP is active.
var ErrTwoFactorAlreadyEnabled = goerrors.New("two-factor authentication is already enabled", goerrors.CategoryConflict).
	WithTextCode(TextCodeTwoFactorState).
	WithCode(goerrors.CodeConflict)

// ErrTwoFactorNotEnabled rejects confirm/disable/step-up when TOTP is not in
// the required state.
var ErrTwoFactorNotEnabled = goerrors.New("two-factor authentication is not enabled", goerrors.CategoryValidation).
	WithTextCode(TextCodeTwoFactorState).
	WithCode(goerrors.CodeBadRequest)

// ErrTwoFactorCodeInvalid rejects a TOTP code outside the tolerance window.
var ErrTwoFactorCodeInvalid = goerrors.New("invalid two-factor code", goerrors.CategoryAuth).
	WithTextCode(TextCodeTwoFactorBadCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountAlreadyLinked guards against silently re-pointing an external
// account link at a different identity.
var ErrAccountAlreadyLinked = goerrors.New("external account is linked to another identity", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountAlreadyLinked).
	WithCode(goerrors.CodeConflict)

// IsTokenInvalid reports whether err is the uniform bearer-token rejection.
func IsTokenInvalid(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeTokenInvalid
}

// IsInvalidCredentials reports whether err is the uniform credential
// rejection.
func IsInvalidCredentials(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeInvalidCreds
}
