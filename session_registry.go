package authkit

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions tracks one row per logical login. Rows are never un-revoked and
// never reused; every mutation sets revoked_at and nothing else.
type Sessions interface {
	repository.Repository[*RefreshSession]

	Open(ctx context.Context, identityID uuid.UUID, ttl time.Duration, meta DeviceMeta) (*RefreshSession, error)
	OpenTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, ttl time.Duration, meta DeviceMeta) (*RefreshSession, error)
	// Validate loads the session and checks it is live. Rejects with
	// ErrSessionNotFound, ErrSessionRevoked, or ErrSessionExpired.
	Validate(ctx context.Context, sessionID uuid.UUID) (*RefreshSession, error)
	Revoke(ctx context.Context, sessionID uuid.UUID) error
	RevokeTx(ctx context.Context, tx bun.IDB, sessionID uuid.UUID) error
	// RevokeOwned revokes only when the session belongs to identityID, so
	// one user cannot terminate another user's session by guessing ids.
	RevokeOwned(ctx context.Context, identityID, sessionID uuid.UUID) error
	RevokeAllForIdentity(ctx context.Context, identityID uuid.UUID) (int64, error)
	RevokeAllForIdentityTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID) (int64, error)
	RevokeAllExcept(ctx context.Context, identityID, keepID uuid.UUID) (int64, error)
	// ListActive returns the identity's live sessions, newest first.
	ListActive(ctx context.Context, identityID uuid.UUID) ([]*RefreshSession, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessions struct {
	repository.Repository[*RefreshSession]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Sessions                               = (*sessions)(nil)
	_ repository.Repository[*RefreshSession] = (*sessions)(nil)
)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*RefreshSession](db, repository.ModelHandlers[*RefreshSession]{
		NewRecord: func() *RefreshSession { return &RefreshSession{} },
		GetID: func(s *RefreshSession) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *RefreshSession, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sessions{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (a *sessions) Open(ctx context.Context, identityID uuid.UUID, ttl time.Duration, meta DeviceMeta) (*RefreshSession, error) {
	return a.OpenTx(ctx, a.db, identityID, ttl, meta)
}

func (a *sessions) OpenTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, ttl time.Duration, meta DeviceMeta) (*RefreshSession, error) {
	now := a.now()
	record := &RefreshSession{
		ID:         uuid.New(),
		IdentityID: identityID,
		Secret:     newOpaqueToken(64),
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *sessions) Validate(ctx context.Context, sessionID uuid.UUID) (*RefreshSession, error) {
	record := &RefreshSession{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", sessionID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if record.Revoked() {
		return nil, ErrSessionRevoked
	}

	if !record.ExpiresAt.After(a.now()) {
		return nil, ErrSessionExpired
	}

	return record, nil
}

func (a *sessions) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	return a.RevokeTx(ctx, a.db, sessionID)
}

func (a *sessions) RevokeTx(ctx context.Context, tx bun.IDB, sessionID uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", a.now()).
		Where("?TableAlias.id = ?", sessionID).
		Where("?TableAlias.revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (a *sessions) RevokeOwned(ctx context.Context, identityID, sessionID uuid.UUID) error {
	res, err := a.db.NewUpdate().
		Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", a.now()).
		Where("?TableAlias.id = ?", sessionID).
		Where("?TableAlias.identity_id = ?", identityID).
		Where("?TableAlias.revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (a *sessions) RevokeAllForIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	return a.RevokeAllForIdentityTx(ctx, a.db, identityID)
}

func (a *sessions) RevokeAllForIdentityTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", a.now()).
		Where("?TableAlias.identity_id = ?", identityID).
		Where("?TableAlias.revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (a *sessions) RevokeAllExcept(ctx context.Context, identityID, keepID uuid.UUID) (int64, error) {
	res, err := a.db.NewUpdate().
		Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", a.now()).
		Where("?TableAlias.identity_id = ?", identityID).
		Where("?TableAlias.id != ?", keepID).
		Where("?TableAlias.revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (a *sessions) ListActive(ctx context.Context, identityID uuid.UUID) ([]*RefreshSession, error) {
	var records []*RefreshSession
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.identity_id = ?", identityID).
		Where("?TableAlias.revoked_at IS NULL").
		Where("?TableAlias.expires_at > ?", a.now()).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteExpired reclaims sessions whose expires_at is before cutoff,
// revoked or not. Revoked-but-unexpired rows stay so ListActive and
// Validate agree with the audit trail.
func (a *sessions) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*RefreshSession)(nil)).
		Where("?TableAlias.expires_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
