package authkit

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SingleUseTokens backs email verification and password reset links. Issuing
// replaces any live token for the same (identity, purpose); consuming deletes
// the row so a link works exactly once.
type SingleUseTokens interface {
	Issue(ctx context.Context, identityID uuid.UUID, purpose TokenPurpose, ttl time.Duration) (*SingleUseToken, error)
	// Consume resolves the token, deletes it, and returns the row. Exactly
	// one concurrent caller wins; the rest get ErrTokenNotFound. An expired
	// token is deleted too but reported as ErrTokenExpired.
	Consume(ctx context.Context, raw string, purpose TokenPurpose) (*SingleUseToken, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type singleUseTokens struct {
	db  *bun.DB
	now func() time.Time
}

var _ SingleUseTokens = (*singleUseTokens)(nil)

func NewSingleUseTokensRepository(db *bun.DB) SingleUseTokens {
	return &singleUseTokens{
		db:  db,
		now: time.Now,
	}
}

func (a *singleUseTokens) Issue(ctx context.Context, identityID uuid.UUID, purpose TokenPurpose, ttl time.Duration) (*SingleUseToken, error) {
	now := a.now()
	record := &SingleUseToken{
		Token:      newOpaqueToken(32),
		IdentityID: identityID,
		Purpose:    purpose,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	err := a.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// requesting a new link invalidates the previous one
		if _, err := tx.NewDelete().
			Model((*SingleUseToken)(nil)).
			Where("?TableAlias.identity_id = ?", identityID).
			Where("?TableAlias.purpose = ?", purpose).
			Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (a *singleUseTokens) Consume(ctx context.Context, raw string, purpose TokenPurpose) (*SingleUseToken, error) {
	record := &SingleUseToken{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", raw).
		Where("?TableAlias.purpose = ?", purpose).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	// The delete decides the race: whoever removes the row owns the token.
	res, err := a.db.NewDelete().
		Model((*SingleUseToken)(nil)).
		Where("?TableAlias.token = ?", raw).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, ErrTokenNotFound
	}

	if record.ExpiredAt(a.now()) {
		return nil, ErrTokenExpired
	}

	return record, nil
}

func (a *singleUseTokens) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*SingleUseToken)(nil)).
		Where("?TableAlias.expires_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
