package authkit

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TwoFactorState is the enrollment lifecycle of an identity's second factor.
// Derived from storage, never stored directly: secret unset is Disabled,
// secret set without totp_enabled_at is Provisioning, both set is Enabled.
// The fourth state of a login, step-up pending, lives in the step-up token
// rather than the database.
type TwoFactorState string

const (
	TwoFactorDisabled     TwoFactorState = "disabled"
	TwoFactorProvisioning TwoFactorState = "provisioning"
	TwoFactorEnabled      TwoFactorState = "enabled"
)

// TwoFactorStateOf derives the enrollment state from the identity record.
func TwoFactorStateOf(identity *Identity) TwoFactorState {
	switch {
	case identity == nil || identity.TOTPSecret == "":
		return TwoFactorDisabled
	case identity.TOTPEnabledAt == nil:
		return TwoFactorProvisioning
	default:
		return TwoFactorEnabled
	}
}

// TwoFactorEnrollment is handed back from BeginEnrollment. The secret and
// provisioning URI are shown to the user exactly once; afterwards only codes
// cross the boundary.
type TwoFactorEnrollment struct {
	Secret string
	// URI is the otpauth:// provisioning string authenticator apps scan.
	URI string
}

// TwoFactorManager drives TOTP enrollment and code verification. Codes are
// 6-digit SHA1 over a 30 second period, accepted within a two-step skew on
// either side to absorb clock drift.
type TwoFactorManager interface {
	// BeginEnrollment generates a fresh secret and moves the identity to
	// provisioning. Allowed from disabled and provisioning; re-beginning
	// replaces the pending secret. Rejected once enabled.
	BeginEnrollment(ctx context.Context, identity *Identity) (*TwoFactorEnrollment, error)
	// ConfirmEnrollment proves the authenticator was provisioned and flips
	// the state to enabled. Only valid from provisioning.
	ConfirmEnrollment(ctx context.Context, identity *Identity, code string) error
	// Disable verifies a current code and clears the second factor. Only
	// valid from enabled.
	Disable(ctx context.Context, identity *Identity, code string) error
	// VerifyCode checks a code against the identity's confirmed secret.
	VerifyCode(identity *Identity, code string) error
}

type twoFactorManager struct {
	identities Identities
	issuer     string
	logger     Logger
	now        func() time.Time
}

var _ TwoFactorManager = (*twoFactorManager)(nil)

// TwoFactorOption customizes manager construction.
type TwoFactorOption func(*twoFactorManager)

// WithTwoFactorClock injects a custom clock (useful for tests).
func WithTwoFactorClock(clock func() time.Time) TwoFactorOption {
	return func(tf *twoFactorManager) {
		if clock != nil {
			tf.now = clock
		}
	}
}

// WithTwoFactorLogger sets the logger.
func WithTwoFactorLogger(logger Logger) TwoFactorOption {
	return func(tf *twoFactorManager) {
		if logger != nil {
			tf.logger = logger
		}
	}
}

// NewTwoFactorManager creates the TOTP manager. issuer is the label shown
// in authenticator apps.
func NewTwoFactorManager(identities Identities, issuer string, opts ...TwoFactorOption) TwoFactorManager {
	tf := &twoFactorManager{
		identities: identities,
		issuer:     issuer,
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(tf)
		}
	}

	return tf
}

func (tf *twoFactorManager) BeginEnrollment(ctx context.Context, identity *Identity) (*TwoFactorEnrollment, error) {
	if TwoFactorStateOf(identity) == TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tf.issuer,
		AccountName: identity.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate TOTP secret")
	}

	if err := tf.identities.SaveTOTPSecret(ctx, identity.ID, key.Secret()); err != nil {
		return nil, err
	}

	identity.TOTPSecret = key.Secret()
	identity.TOTPEnabledAt = nil

	return &TwoFactorEnrollment{
		Secret: key.Secret(),
		URI:    key.URL(),
	}, nil
}

func (tf *twoFactorManager) ConfirmEnrollment(ctx context.Context, identity *Identity, code string) error {
	if TwoFactorStateOf(identity) != TwoFactorProvisioning {
		return ErrTwoFactorNotEnabled
	}

	if !tf.codeMatches(identity.TOTPSecret, code) {
		return ErrTwoFactorCodeInvalid
	}

	if err := tf.identities.EnableTwoFactor(ctx, identity.ID); err != nil {
		return err
	}

	now := tf.now()
	identity.TOTPEnabledAt = &now

	tf.logger.Info("two-factor authentication enabled", "identity_id", identity.ID)

	return nil
}

func (tf *twoFactorManager) Disable(ctx context.Context, identity *Identity, code string) error {
	if TwoFactorStateOf(identity) != TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	if !tf.codeMatches(identity.TOTPSecret, code) {
		return ErrTwoFactorCodeInvalid
	}

	if err := tf.identities.DisableTwoFactor(ctx, identity.ID); err != nil {
		return err
	}

	identity.TOTPSecret = ""
	identity.TOTPEnabledAt = nil

	tf.logger.Info("two-factor authentication disabled", "identity_id", identity.ID)

	return nil
}

func (tf *twoFactorManager) VerifyCode(identity *Identity, code string) error {
	if TwoFactorStateOf(identity) != TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	if !tf.codeMatches(identity.TOTPSecret, code) {
		return ErrTwoFactorCodeInvalid
	}

	return nil
}

const (
	totpPeriod = 30
	totpSkew   = 2
)

func (tf *twoFactorManager) codeMatches(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, tf.now(), totp.ValidateOpts{
		Period: totpPeriod,
		Skew:   totpSkew,
		Digits: otp.DigitsSix,
	})
	if err != nil {
		tf.logger.Debug("TOTP validation error", "error", err)
		return false
	}
	return ok
}
