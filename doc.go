// Package authkit implements the credential and session lifecycle for a
// multi-factor authentication service: token issuance and verification,
// refresh-session management, revocation, single-use tokens, and TOTP
// second-factor enrollment.
//
// Token lifecycle:
//   - TokenCodec signs and verifies short-lived access tokens and days-scale
//     refresh tokens. A step-up access token proves primary-credential
//     success only and authorizes nothing except completing second-factor
//     verification.
//   - Refresh tokens carry a session id; revoking the refresh-session row
//     invalidates the token even while its signature is still valid.
//     Sessions owns those rows, RevokedTokens owns access tokens blacklisted
//     before natural expiry.
//
// Flows:
//   - Auther composes the stores into register, login, step-up, logout,
//     refresh, password-change, password-reset, and email-verification
//     flows. It is the only component with business-flow knowledge; the
//     stores stay narrow and side-effect free.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to
//     describe login, logout, reset, and second-factor events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package authkit
