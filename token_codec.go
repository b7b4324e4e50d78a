package authkit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec is the stateless signer/verifier for bearer tokens.
type TokenCodec interface {
	IssueAccessToken(identityID uuid.UUID, email string) (string, error)
	// IssueStepUpToken mints the intermediate token handed back when a
	// second factor is pending. attemptID names the login attempt whose
	// failure row is promoted once the code clears.
	IssueStepUpToken(identityID uuid.UUID, email string, attemptID uuid.UUID) (string, error)
	IssueRefreshToken(identityID, sessionID uuid.UUID) (string, error)
	// Verify checks signature, expiry, issuer/audience binding, and kind.
	// Every mismatch yields the same ErrTokenInvalid; callers learn nothing
	// about which check failed.
	Verify(raw string, kind TokenKind) (*TokenClaims, error)
	// DecodeUnsafe parses without verifying the signature. Only for
	// recovering an expiry timestamp when blacklisting at logout; must
	// never be used to authorize access.
	DecodeUnsafe(raw string) *TokenClaims
}

// HMACTokenCodec implements TokenCodec with HS256 signatures.
type HMACTokenCodec struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

var _ TokenCodec = (*HMACTokenCodec)(nil)

// NewTokenCodec creates a codec from config. Access tokens are
// minutes-scale, refresh tokens days-scale.
func NewTokenCodec(cfg Config, logger Logger) *HMACTokenCodec {
	if logger == nil {
		logger = defLogger{}
	}
	return &HMACTokenCodec{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Useful for expiry tests.
func (tc *HMACTokenCodec) WithClock(clock func() time.Time) *HMACTokenCodec {
	if clock != nil {
		tc.now = clock
	}
	return tc
}

func (tc *HMACTokenCodec) IssueAccessToken(identityID uuid.UUID, email string) (string, error) {
	return tc.sign(tc.accessClaims(identityID, email, false))
}

func (tc *HMACTokenCodec) IssueStepUpToken(identityID uuid.UUID, email string, attemptID uuid.UUID) (string, error) {
	claims := tc.accessClaims(identityID, email, true)
	claims.AttemptID = attemptID.String()
	return tc.sign(claims)
}

func (tc *HMACTokenCodec) IssueRefreshToken(identityID, sessionID uuid.UUID) (string, error) {
	claims := &TokenClaims{
		RegisteredClaims: tc.registered(identityID, tc.refreshTTL),
		UID:              identityID.String(),
		Kind:             TokenKindRefresh,
		SessionID:        sessionID.String(),
	}
	return tc.sign(claims)
}

func (tc *HMACTokenCodec) Verify(raw string, kind TokenKind) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(tc.now))
	if tc.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(tc.issuer))
	}
	if len(tc.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(tc.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			tc.logger.Error("token codec encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tc.signingKey, nil
	}, parserOptions...)

	if err != nil {
		tc.logger.Debug("token verification failed", "error", err)
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Kind != kind {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (tc *HMACTokenCodec) DecodeUnsafe(raw string) *TokenClaims {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}

func (tc *HMACTokenCodec) accessClaims(identityID uuid.UUID, email string, stepUp bool) *TokenClaims {
	return &TokenClaims{
		RegisteredClaims: tc.registered(identityID, tc.accessTTL),
		UID:              identityID.String(),
		Email:            email,
		Kind:             TokenKindAccess,
		StepUp:           stepUp,
	}
}

func (tc *HMACTokenCodec) registered(identityID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := tc.now()

	var aud jwt.ClaimStrings
	if len(tc.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(tc.audience))
		copy(aud, tc.audience)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    tc.issuer,
		Subject:   identityID.String(),
		Audience:  aud,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	ensureTokenID(&claims)

	return claims
}

func (tc *HMACTokenCodec) sign(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(tc.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}
