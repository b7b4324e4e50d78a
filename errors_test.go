package authkit

import (
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err      error
		category goerrors.Category
		textCode string
	}{
		{ErrInvalidCredentials, goerrors.CategoryAuth, TextCodeInvalidCreds},
		{ErrTokenInvalid, goerrors.CategoryAuth, TextCodeTokenInvalid},
		{ErrTokenExpired, goerrors.CategoryValidation, TextCodeTokenExpired},
		{ErrTokenNotFound, goerrors.CategoryNotFound, TextCodeTokenNotFound},
		{ErrDuplicateEmail, goerrors.CategoryConflict, TextCodeDuplicateEmail},
		{ErrTooManyLoginAttempts, goerrors.CategoryRateLimit, TextCodeTooManyAttempts},
		{ErrAccountDisabled, goerrors.CategoryAuth, TextCodeAccountDisabled},
		{ErrSessionNotFound, goerrors.CategoryNotFound, TextCodeSessionNotFound},
		{ErrSessionRevoked, goerrors.CategoryAuth, TextCodeSessionRevoked},
		{ErrSessionExpired, goerrors.CategoryAuth, TextCodeSessionExpired},
	}

	for _, tc := range tests {
		t.Run(tc.textCode, func(t *testing.T) {
			var richErr *goerrors.Error
			assert.True(t, goerrors.As(tc.err, &richErr))
			assert.Equal(t, tc.category, richErr.Category)
			assert.Equal(t, tc.textCode, richErr.TextCode)
		})
	}
}

func TestIsTokenInvalid(t *testing.T) {
	assert.True(t, IsTokenInvalid(ErrTokenInvalid))
	assert.False(t, IsTokenInvalid(ErrInvalidCredentials))
	assert.False(t, IsTokenInvalid(nil))
	assert.False(t, IsTokenInvalid(fmt.Errorf("plain error")))
}

func TestIsInvalidCredentials(t *testing.T) {
	assert.True(t, IsInvalidCredentials(ErrInvalidCredentials))
	assert.False(t, IsInvalidCredentials(ErrTokenInvalid))
	assert.False(t, IsInvalidCredentials(fmt.Errorf("plain error")))
}

func TestRejectionMessagesStayUniform(t *testing.T) {
	// callers must not be able to tell bad email from bad password
	var richErr *goerrors.Error
	assert.True(t, goerrors.As(ErrInvalidCredentials, &richErr))
	assert.NotContains(t, richErr.Message, "email")
	assert.NotContains(t, richErr.Message, "password")
}
