package authkit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RevokedTokens is the access-token blacklist. Access tokens are stateless,
// so early invalidation (logout, password change) records the raw token here
// and every verification checks the ledger before trusting the signature.
type RevokedTokens interface {
	// Blacklist records the token until expiresAt. Idempotent: revoking a
	// token twice is not an error.
	Blacklist(ctx context.Context, raw string, identityID uuid.UUID, expiresAt time.Time) error
	BlacklistTx(ctx context.Context, tx bun.IDB, raw string, identityID uuid.UUID, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, raw string) (bool, error)
	// DeleteExpired drops rows whose token would already fail the expiry
	// check. Safe to run at any time.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type revokedTokens struct {
	db *bun.DB
}

var _ RevokedTokens = (*revokedTokens)(nil)

func NewRevokedTokensRepository(db *bun.DB) RevokedTokens {
	return &revokedTokens{db: db}
}

func (a *revokedTokens) Blacklist(ctx context.Context, raw string, identityID uuid.UUID, expiresAt time.Time) error {
	return a.BlacklistTx(ctx, a.db, raw, identityID, expiresAt)
}

func (a *revokedTokens) BlacklistTx(ctx context.Context, tx bun.IDB, raw string, identityID uuid.UUID, expiresAt time.Time) error {
	record := &RevokedAccessToken{
		Token:      raw,
		IdentityID: identityID,
		ExpiresAt:  expiresAt,
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (token) DO NOTHING").
		Exec(ctx)

	return err
}

func (a *revokedTokens) IsBlacklisted(ctx context.Context, raw string) (bool, error) {
	count, err := a.db.NewSelect().
		Model((*RevokedAccessToken)(nil)).
		Where("?TableAlias.token = ?", raw).
		Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (a *revokedTokens) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*RevokedAccessToken)(nil)).
		Where("?TableAlias.expires_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
