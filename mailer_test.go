package authkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailComposerVerificationEmail(t *testing.T) {
	composer := MailComposer{BaseURL: "https://app.example.com"}

	subject, body, err := composer.VerificationEmail("Ada", "tok123")
	require.NoError(t, err)

	assert.Equal(t, "Verify your email address", subject)
	assert.Contains(t, body, "Hi Ada,")
	assert.Contains(t, body, "https://app.example.com/verify-email?token=tok123")
	assert.Contains(t, body, "24 hours")
}

func TestMailComposerPasswordResetEmail(t *testing.T) {
	composer := MailComposer{BaseURL: "https://app.example.com"}

	subject, body, err := composer.PasswordResetEmail("Ada", "tok456")
	require.NoError(t, err)

	assert.Equal(t, "Reset your password", subject)
	assert.Contains(t, body, "https://app.example.com/reset-password?token=tok456")
	assert.Contains(t, body, "1 hour")
}

func TestMailComposerPasswordChangedEmail(t *testing.T) {
	composer := MailComposer{}

	subject, body, err := composer.PasswordChangedEmail("Ada", DeviceMeta{
		IPAddress: "10.0.0.1",
		UserAgent: "go-test",
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "Your password was changed", subject)
	assert.Contains(t, body, "10.0.0.1")
	assert.Contains(t, body, "go-test")
}

func TestMailComposerPasswordChangedEmailMissingMeta(t *testing.T) {
	composer := MailComposer{}

	_, body, err := composer.PasswordChangedEmail("Ada", DeviceMeta{}, time.Now())
	require.NoError(t, err)
	assert.Contains(t, body, "unavailable")
}

func TestMailComposerEscapesHTML(t *testing.T) {
	composer := MailComposer{BaseURL: "https://app.example.com"}

	_, body, err := composer.VerificationEmail("<script>alert(1)</script>", "tok")
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestLogMailerNeverFails(t *testing.T) {
	mailer := logMailer{logger: defLogger{}}
	assert.NoError(t, mailer.Send(context.Background(), "a@x.com", "subject", "<p>body</p>"))
}
