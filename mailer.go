package authkit

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MailComposer renders the notification emails the flows send. BaseURL is
// the frontend origin the verification and reset links point at.
type MailComposer struct {
	BaseURL string
}

var verificationEmailTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body>
  <h1>Verify your email</h1>
  <p>Hi {{.FirstName}},</p>
  <p>Thanks for signing up. Click the link below to verify your email address:</p>
  <p><a href="{{.Link}}">Verify my email</a></p>
  <p>Or copy this link into your browser:</p>
  <p>{{.Link}}</p>
  <p>This link expires in 24 hours.</p>
  <p>If you did not create an account, you can ignore this email.</p>
</body>
</html>`))

var passwordResetEmailTmpl = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<body>
  <h1>Reset your password</h1>
  <p>Hi {{.FirstName}},</p>
  <p>You asked to reset your password. Click the link below:</p>
  <p><a href="{{.Link}}">Reset my password</a></p>
  <p>Or copy this link into your browser:</p>
  <p>{{.Link}}</p>
  <p>This link expires in 1 hour. If you did not request a reset, you can ignore this email.</p>
  <p>For your security, never share this link.</p>
</body>
</html>`))

var passwordChangedEmailTmpl = template.Must(template.New("password_changed").Parse(`<!DOCTYPE html>
<html>
<body>
  <h1>Your password was changed</h1>
  <p>Hi {{.FirstName}},</p>
  <p>Your password was changed successfully.</p>
  <ul>
    <li>Date: {{.When}}</li>
    <li>IP address: {{.IPAddress}}</li>
    <li>Device: {{.UserAgent}}</li>
  </ul>
  <p>If this was not you, reset your password immediately and contact support.</p>
</body>
</html>`))

// VerificationEmail renders the email-verification message.
func (c MailComposer) VerificationEmail(firstName, token string) (subject, body string, err error) {
	body, err = render(verificationEmailTmpl, map[string]any{
		"FirstName": firstName,
		"Link":      fmt.Sprintf("%s/verify-email?token=%s", c.BaseURL, token),
	})
	return "Verify your email address", body, err
}

// PasswordResetEmail renders the password-reset message.
func (c MailComposer) PasswordResetEmail(firstName, token string) (subject, body string, err error) {
	body, err = render(passwordResetEmailTmpl, map[string]any{
		"FirstName": firstName,
		"Link":      fmt.Sprintf("%s/reset-password?token=%s", c.BaseURL, token),
	})
	return "Reset your password", body, err
}

// PasswordChangedEmail renders the change notification sent after a
// successful password change or reset.
func (c MailComposer) PasswordChangedEmail(firstName string, meta DeviceMeta, at time.Time) (subject, body string, err error) {
	ip := meta.IPAddress
	if ip == "" {
		ip = "unavailable"
	}
	ua := meta.UserAgent
	if ua == "" {
		ua = "unavailable"
	}

	body, err = render(passwordChangedEmailTmpl, map[string]any{
		"FirstName": firstName,
		"When":      at.Format(time.RFC1123),
		"IPAddress": ip,
		"UserAgent": ua,
	})
	return "Your password was changed", body, err
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template")
	}
	return buf.String(), nil
}

// logMailer is the default Mailer: it logs instead of delivering. Wire a
// real implementation for production use.
type logMailer struct {
	logger Logger
}

func (m logMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("mailer skipping delivery", "to", to, "subject", subject)
	return nil
}
