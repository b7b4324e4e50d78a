package authkit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// DefaultMaxLoginFailures failed attempts inside the window trip the
	// login cooldown.
	DefaultMaxLoginFailures = 5
	// DefaultFailureWindow is how far back the cooldown counter looks.
	DefaultFailureWindow = 15 * time.Minute
)

// RegisterInput carries the fields needed to create an identity.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Validate checks the input is complete and well formed.
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
	)
}

// LoginResult is the outcome of a successful primary authentication. When
// the identity has a confirmed second factor, TwoFactorRequired is set and
// only StepUpToken is populated; no session exists until CompleteStepUp.
type LoginResult struct {
	AccessToken       string
	RefreshToken      string
	StepUpToken       string
	TwoFactorRequired bool
	SessionID         uuid.UUID
	Identity          *Identity
}

// Auther orchestrates the credential lifecycle flows over the repositories,
// the token codec, and the two-factor manager.
type Auther struct {
	repos            RepositoryManager
	codec            TokenCodec
	twoFactor        TwoFactorManager
	mailer           Mailer
	composer         MailComposer
	activitySink     ActivitySink
	logger           Logger
	accessTTL        time.Duration
	refreshTTL       time.Duration
	maxLoginFailures int
	failureWindow    time.Duration
	now              func() time.Time
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repos RepositoryManager, opts Config) *Auther {
	logger := defLogger{}

	return &Auther{
		repos:            repos,
		codec:            NewTokenCodec(opts, logger),
		twoFactor:        NewTwoFactorManager(repos.Identities(), opts.GetTOTPIssuer()),
		mailer:           logMailer{logger: logger},
		composer:         MailComposer{},
		activitySink:     noopActivitySink{},
		logger:           logger,
		accessTTL:        opts.GetAccessTokenTTL(),
		refreshTTL:       opts.GetRefreshTokenTTL(),
		maxLoginFailures: DefaultMaxLoginFailures,
		failureWindow:    DefaultFailureWindow,
		now:              time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenCodec swaps the codec. Useful when signing options need to be
// customized beyond what Config expresses.
func (s *Auther) WithTokenCodec(codec TokenCodec) *Auther {
	if codec != nil {
		s.codec = codec
	}
	return s
}

// WithTwoFactorManager swaps the TOTP manager.
func (s *Auther) WithTwoFactorManager(tf TwoFactorManager) *Auther {
	if tf != nil {
		s.twoFactor = tf
	}
	return s
}

// WithMailer sets the delivery backend for notification emails.
func (s *Auther) WithMailer(mailer Mailer) *Auther {
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// WithMailComposer sets the template renderer, including the frontend base
// URL that verification and reset links point at.
func (s *Auther) WithMailComposer(composer MailComposer) *Auther {
	s.composer = composer
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithLoginCooldown tunes the failed-attempt budget.
func (s *Auther) WithLoginCooldown(maxFailures int, window time.Duration) *Auther {
	if maxFailures > 0 {
		s.maxLoginFailures = maxFailures
	}
	if window > 0 {
		s.failureWindow = window
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.now = clock
	}
	return s
}

// TokenCodec returns the codec used by this Authenticator
func (s *Auther) TokenCodec() TokenCodec {
	return s.codec
}

// TwoFactor returns the TOTP manager used by this Authenticator
func (s *Auther) TwoFactor() TwoFactorManager {
	return s.twoFactor
}

// Register creates an identity, sends the verification email, and opens the
// first session. The verification email is best effort.
func (s *Auther) Register(ctx context.Context, input RegisterInput, meta DeviceMeta) (*LoginResult, error) {
	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration input")
	}

	email := NormalizeEmail(input.Email)

	if _, err := s.repos.Identities().GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	identity, err := s.repos.Identities().Register(ctx, &Identity{
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	})
	if err != nil {
		return nil, err
	}

	s.sendVerificationEmail(ctx, identity)

	result, err := s.openSession(ctx, identity, meta)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventRegistered, identity, nil)

	return result, nil
}

// Login verifies the primary credential. The failure row is written before
// any check runs and flipped to success at the end, so a crash mid-flow
// leaves a failure behind rather than nothing.
func (s *Auther) Login(ctx context.Context, email, password string, meta DeviceMeta) (*LoginResult, error) {
	email = NormalizeEmail(email)

	identity, err := s.repos.Identities().GetByEmail(ctx, email)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	var identityID *uuid.UUID
	if identity != nil {
		identityID = &identity.ID
	}

	attempt, err := s.repos.LoginAttempts().RecordFailure(ctx, identityID, email, meta)
	if err != nil {
		return nil, err
	}

	failures, err := s.repos.LoginAttempts().CountRecentFailures(ctx, email, s.now().Add(-s.failureWindow))
	if err != nil {
		return nil, err
	}
	if failures > s.maxLoginFailures {
		s.logger.Warn("login cooldown tripped", "email", email, "failures", failures)
		return nil, ErrTooManyLoginAttempts
	}

	// Unknown email and disabled account burn a bcrypt comparison so their
	// latency matches a wrong password.
	if identity == nil || identity.PasswordHash == "" {
		s.emitLoginFailure(ctx, email, "identity not found")
		return nil, CompareDummyHash(password)
	}
	if identity.IsDisabled() {
		s.emitLoginFailure(ctx, email, "account disabled")
		return nil, CompareDummyHash(password)
	}

	if err := ComparePasswordAndHash(password, identity.PasswordHash); err != nil {
		s.emitLoginFailure(ctx, email, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	if identity.TwoFactorEnabled() {
		// The attempt stays a failure until the second factor clears; its id
		// rides in the step-up token so CompleteStepUp can promote it.
		stepUp, err := s.codec.IssueStepUpToken(identity.ID, identity.Email, attempt.ID)
		if err != nil {
			return nil, err
		}

		return &LoginResult{
			StepUpToken:       stepUp,
			TwoFactorRequired: true,
			Identity:          identity,
		}, nil
	}

	s.promoteAttempt(ctx, attempt.ID)

	result, err := s.openSession(ctx, identity, meta)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, identity, map[string]any{
		"session_id": result.SessionID.String(),
	})

	return result, nil
}

// CompleteStepUp exchanges a step-up token plus a TOTP code for a full
// session. The step-up token proves primary-credential success only.
func (s *Auther) CompleteStepUp(ctx context.Context, stepUpToken, code string, meta DeviceMeta) (*LoginResult, error) {
	claims, err := s.codec.Verify(stepUpToken, TokenKindAccess)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !claims.StepUp {
		return nil, ErrTokenInvalid
	}

	if blacklisted, err := s.repos.RevokedTokens().IsBlacklisted(ctx, stepUpToken); err != nil {
		return nil, err
	} else if blacklisted {
		return nil, ErrTokenInvalid
	}

	identity, err := s.identityFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repos.LoginAttempts().RecordFailure(ctx, &identity.ID, identity.Email, meta)
	if err != nil {
		return nil, err
	}

	if err := s.twoFactor.VerifyCode(identity, code); err != nil {
		s.emitLoginFailure(ctx, identity.Email, "two-factor code rejected")
		return nil, err
	}

	s.promoteAttempt(ctx, attempt.ID)

	// the failure row Login wrote clears too, now that both factors passed
	if pendingID, err := claims.AttemptUUID(); err == nil {
		s.promoteAttempt(ctx, pendingID)
	}

	result, err := s.openSession(ctx, identity, meta)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventStepUpSuccess, identity, map[string]any{
		"session_id": result.SessionID.String(),
	})

	return result, nil
}

// ConfirmTwoFactor completes TOTP enrollment with a code from the freshly
// provisioned authenticator.
func (s *Auther) ConfirmTwoFactor(ctx context.Context, identityID uuid.UUID, code string) error {
	identity, err := s.activeIdentity(ctx, identityID)
	if err != nil {
		return err
	}

	if err := s.twoFactor.ConfirmEnrollment(ctx, identity, code); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventTwoFactorEnabled, identity, nil)

	return nil
}

// DisableTwoFactor clears the second factor after verifying a current code.
func (s *Auther) DisableTwoFactor(ctx context.Context, identityID uuid.UUID, code string) error {
	identity, err := s.activeIdentity(ctx, identityID)
	if err != nil {
		return err
	}

	if err := s.twoFactor.Disable(ctx, identity, code); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventTwoFactorDisabled, identity, nil)

	return nil
}

// Logout blacklists the access token and revokes the session named by the
// refresh token. Already-invalid tokens are a silent no-op: logout never
// fails because the caller was already logged out.
func (s *Auther) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims := s.codec.DecodeUnsafe(accessToken); claims != nil {
		identityID, _ := claims.IdentityUUID()
		expiresAt := claims.Expires()
		if expiresAt.IsZero() {
			expiresAt = s.now().Add(s.accessTTL)
		}

		if err := s.repos.RevokedTokens().Blacklist(ctx, accessToken, identityID, expiresAt); err != nil {
			return err
		}
	}

	claims, err := s.codec.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		s.logger.Debug("logout with invalid refresh token")
		return nil
	}

	sessionID, err := claims.SessionUUID()
	if err != nil {
		return nil
	}

	if err := s.repos.Sessions().Revoke(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, nil, map[string]any{
		"identity_id": claims.IdentityID(),
		"session_id":  sessionID.String(),
	})

	return nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated; the session keeps its original expiry.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.codec.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return "", ErrTokenInvalid
	}

	sessionID, err := claims.SessionUUID()
	if err != nil {
		return "", ErrTokenInvalid
	}

	session, err := s.repos.Sessions().Validate(ctx, sessionID)
	if err != nil {
		// the bearer only learns the token no longer works, not why
		if errors.Is(err, ErrSessionNotFound) ||
			errors.Is(err, ErrSessionRevoked) ||
			errors.Is(err, ErrSessionExpired) {
			return "", ErrTokenInvalid
		}
		return "", err
	}

	identity, err := s.identityFromClaims(ctx, claims)
	if err != nil {
		return "", err
	}

	access, err := s.codec.IssueAccessToken(identity.ID, identity.Email)
	if err != nil {
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, identity, map[string]any{
		"session_id": session.ID.String(),
	})

	return access, nil
}

// Authenticate resolves an access token to its identity. The revocation
// ledger is consulted before the signature is trusted.
func (s *Auther) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	blacklisted, err := s.repos.RevokedTokens().IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenInvalid
	}

	claims, err := s.codec.Verify(accessToken, TokenKindAccess)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.StepUp {
		// step-up tokens only clear the second-factor endpoint
		return nil, ErrTokenInvalid
	}

	return s.identityFromClaims(ctx, claims)
}

// ChangePassword re-hashes after confirming the current password, then
// notifies the account owner.
func (s *Auther) ChangePassword(ctx context.Context, identityID uuid.UUID, currentPassword, newPassword string, meta DeviceMeta) error {
	identity, err := s.activeIdentity(ctx, identityID)
	if err != nil {
		return err
	}

	if err := ComparePasswordAndHash(currentPassword, identity.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repos.Identities().SetPassword(ctx, identity.ID, hash); err != nil {
		return err
	}

	s.sendPasswordChangedEmail(ctx, identity, meta)
	s.emitAuthEvent(ctx, ActivityEventPasswordChanged, identity, nil)

	return nil
}

// RequestPasswordReset issues a reset link. It succeeds outwardly whether or
// not the email resolves to an account, so it cannot be used as an
// existence oracle.
func (s *Auther) RequestPasswordReset(ctx context.Context, email string) error {
	identity, err := s.repos.Identities().GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	if identity.IsDisabled() {
		s.logger.Debug("password reset requested for disabled account", "identity_id", identity.ID)
		return nil
	}

	token, err := s.repos.SingleUseTokens().Issue(ctx, identity.ID, PurposePasswordReset, PasswordResetTTL)
	if err != nil {
		return err
	}

	subject, body, err := s.composer.PasswordResetEmail(identity.FirstName, token.Token)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, identity.Email, subject, body); err != nil {
		s.logger.Error("failed to send password reset email", "error", err, "identity_id", identity.ID)
	}

	return nil
}

// ResetPassword consumes a reset token, re-hashes, and revokes every
// session the identity holds.
func (s *Auther) ResetPassword(ctx context.Context, rawToken, newPassword string, meta DeviceMeta) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	record, err := s.repos.SingleUseTokens().Consume(ctx, rawToken, PurposePasswordReset)
	if err != nil {
		return err
	}

	identity, err := s.activeIdentity(ctx, record.IdentityID)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.repos.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repos.Identities().SetPasswordTx(ctx, tx, identity.ID, hash); err != nil {
			return err
		}

		_, err := s.repos.Sessions().RevokeAllForIdentityTx(ctx, tx, identity.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.sendPasswordChangedEmail(ctx, identity, meta)
	s.emitAuthEvent(ctx, ActivityEventPasswordResetSuccess, identity, nil)

	return nil
}

// RequestEmailVerification re-issues the verification link, replacing any
// pending one.
func (s *Auther) RequestEmailVerification(ctx context.Context, identityID uuid.UUID) error {
	identity, err := s.activeIdentity(ctx, identityID)
	if err != nil {
		return err
	}

	if identity.EmailVerified() {
		return ErrEmailAlreadyVerified
	}

	return s.issueVerificationEmail(ctx, identity)
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *Auther) VerifyEmail(ctx context.Context, rawToken string) error {
	record, err := s.repos.SingleUseTokens().Consume(ctx, rawToken, PurposeEmailVerification)
	if err != nil {
		return err
	}

	identity, err := s.activeIdentity(ctx, record.IdentityID)
	if err != nil {
		return err
	}

	if identity.EmailVerified() {
		return ErrEmailAlreadyVerified
	}

	if err := s.repos.Identities().MarkEmailVerified(ctx, identity.ID); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventEmailVerified, identity, nil)

	return nil
}

// Sessions lists the identity's live sessions, newest first.
func (s *Auther) Sessions(ctx context.Context, identityID uuid.UUID) ([]*RefreshSession, error) {
	return s.repos.Sessions().ListActive(ctx, identityID)
}

// RevokeSession terminates one session the identity owns.
func (s *Auther) RevokeSession(ctx context.Context, identityID, sessionID uuid.UUID) error {
	if err := s.repos.Sessions().RevokeOwned(ctx, identityID, sessionID); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRevoked, nil, map[string]any{
		"identity_id": identityID.String(),
		"session_id":  sessionID.String(),
	})

	return nil
}

// RevokeOtherSessions terminates every session except keepID. Returns how
// many were revoked.
func (s *Auther) RevokeOtherSessions(ctx context.Context, identityID, keepID uuid.UUID) (int64, error) {
	return s.repos.Sessions().RevokeAllExcept(ctx, identityID, keepID)
}

// DisableAccount soft-deletes the identity after confirming the password and
// revokes every session. There is no un-disable.
func (s *Auther) DisableAccount(ctx context.Context, identityID uuid.UUID, password string) error {
	identity, err := s.activeIdentity(ctx, identityID)
	if err != nil {
		return err
	}

	if err := ComparePasswordAndHash(password, identity.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	if err := s.repos.Identities().Disable(ctx, identity.ID); err != nil {
		return err
	}

	if _, err := s.repos.Sessions().RevokeAllForIdentity(ctx, identity.ID); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventAccountDisabled, identity, nil)

	return nil
}

// LoginHistory returns the identity's recorded attempts, newest first.
func (s *Auther) LoginHistory(ctx context.Context, identityID uuid.UUID, limit int) ([]*LoginAttempt, error) {
	return s.repos.LoginAttempts().ListForIdentity(ctx, identityID, limit)
}

// ExternalLogin bridges a provider-verified assertion to a local session.
// Resolution order: existing link, then email match, then a fresh identity
// with the email treated as verified.
func (s *Auther) ExternalLogin(ctx context.Context, profile ExternalProfile, meta DeviceMeta) (*LoginResult, error) {
	p, err := normalizeProfile(profile)
	if err != nil {
		return nil, err
	}

	identity, err := s.resolveExternalIdentity(ctx, p)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repos.LoginAttempts().RecordFailure(ctx, &identity.ID, identity.Email, meta)
	if err != nil {
		return nil, err
	}

	s.promoteAttempt(ctx, attempt.ID)

	result, err := s.openSession(ctx, identity, meta)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventExternalLogin, identity, map[string]any{
		"provider":   string(p.Provider),
		"session_id": result.SessionID.String(),
	})

	return result, nil
}

func (s *Auther) resolveExternalIdentity(ctx context.Context, p ExternalProfile) (*Identity, error) {
	link, err := s.repos.LinkedAccounts().Find(ctx, p.Provider, p.AccountID)
	if err == nil {
		return s.activeIdentity(ctx, link.IdentityID)
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	identity, err := s.repos.Identities().GetByEmail(ctx, p.Email)
	if err == nil {
		if identity.IsDisabled() {
			return nil, ErrAccountDisabled
		}

		if _, err := s.repos.LinkedAccounts().Link(ctx, identity.ID, p.Provider, p.AccountID); err != nil {
			return nil, err
		}

		return identity, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	// The provider vouched for the email, so the fresh identity starts
	// verified. The random password hash keeps the password path closed
	// until the user sets one via reset.
	now := s.now()
	identity = &Identity{
		Email:           p.Email,
		PasswordHash:    RandomPasswordHash(),
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		EmailVerifiedAt: &now,
	}

	err = s.repos.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.repos.Identities().RegisterTx(ctx, tx, identity)
		if err != nil {
			return err
		}
		identity = created

		_, err = s.repos.LinkedAccounts().LinkTx(ctx, tx, identity.ID, p.Provider, p.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return identity, nil
}

func (s *Auther) openSession(ctx context.Context, identity *Identity, meta DeviceMeta) (*LoginResult, error) {
	session, err := s.repos.Sessions().Open(ctx, identity.ID, s.refreshTTL, meta)
	if err != nil {
		return nil, err
	}

	access, err := s.codec.IssueAccessToken(identity.ID, identity.Email)
	if err != nil {
		return nil, err
	}

	refresh, err := s.codec.IssueRefreshToken(identity.ID, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    session.ID,
		Identity:     identity,
	}, nil
}

// promoteAttempt flips a recorded failure row to success. Promotion failures
// are logged, never surfaced; the login itself already succeeded.
func (s *Auther) promoteAttempt(ctx context.Context, attemptID uuid.UUID) {
	if err := s.repos.LoginAttempts().MarkSucceeded(ctx, attemptID); err != nil {
		s.logger.Error("failed to promote login attempt", "error", err)
	}
}

// identityFromClaims resolves and vets the identity behind verified claims.
// Any failure collapses to ErrTokenInvalid: the bearer already holds a
// signed token, so nothing finer is owed.
func (s *Auther) identityFromClaims(ctx context.Context, claims *TokenClaims) (*Identity, error) {
	identityID, err := claims.IdentityUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	identity, err := s.repos.Identities().GetByID(ctx, identityID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if identity.IsDisabled() {
		return nil, ErrTokenInvalid
	}

	return identity, nil
}

// activeIdentity loads an identity for flows where the caller is entitled
// to a distinguishable disabled-account error.
func (s *Auther) activeIdentity(ctx context.Context, identityID uuid.UUID) (*Identity, error) {
	identity, err := s.repos.Identities().GetByID(ctx, identityID.String())
	if err != nil {
		return nil, err
	}

	if identity.IsDisabled() {
		return nil, ErrAccountDisabled
	}

	return identity, nil
}

func (s *Auther) issueVerificationEmail(ctx context.Context, identity *Identity) error {
	token, err := s.repos.SingleUseTokens().Issue(ctx, identity.ID, PurposeEmailVerification, EmailVerificationTTL)
	if err != nil {
		return err
	}

	subject, body, err := s.composer.VerificationEmail(identity.FirstName, token.Token)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, identity.Email, subject, body); err != nil {
		s.logger.Error("failed to send verification email", "error", err, "identity_id", identity.ID)
	}

	return nil
}

func (s *Auther) sendVerificationEmail(ctx context.Context, identity *Identity) {
	if err := s.issueVerificationEmail(ctx, identity); err != nil {
		s.logger.Error("failed to issue verification email", "error", err, "identity_id", identity.ID)
	}
}

func (s *Auther) sendPasswordChangedEmail(ctx context.Context, identity *Identity, meta DeviceMeta) {
	subject, body, err := s.composer.PasswordChangedEmail(identity.FirstName, meta, s.now())
	if err != nil {
		s.logger.Error("failed to render password changed email", "error", err)
		return
	}

	if err := s.mailer.Send(ctx, identity.Email, subject, body); err != nil {
		s.logger.Error("failed to send password changed email", "error", err, "identity_id", identity.ID)
	}
}

func (s *Auther) emitLoginFailure(ctx context.Context, email, reason string) {
	s.emitAuthEvent(ctx, ActivityEventLoginFailure, nil, map[string]any{
		"email":  email,
		"reason": reason,
	})
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, identity *Identity, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if identity != nil {
		event.IdentityID = identity.ID.String()
		event.Email = identity.Email
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Error("failed to record activity event", "error", err, "event_type", eventType)
	}
}

func validatePassword(password string) error {
	return validation.Validate(password,
		validation.Required,
		validation.Length(8, 72),
	)
}
