package authkit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginAttempts is the append-only audit trail of authentication attempts.
type LoginAttempts interface {
	// RecordFailure writes a failed attempt row. identityID may be nil when
	// the email does not resolve to an account.
	RecordFailure(ctx context.Context, identityID *uuid.UUID, email string, meta DeviceMeta) (*LoginAttempt, error)
	// MarkSucceeded flips a previously recorded failure to success. Login
	// writes the failure row before verifying credentials, then promotes it
	// once every check passes, so a crash mid-flow leaves a failure behind
	// rather than nothing.
	MarkSucceeded(ctx context.Context, attemptID uuid.UUID) error
	// CountRecentFailures counts failed attempts for the email since the
	// cutoff. Drives the login cooldown.
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error)
	// ListForIdentity returns the identity's attempts, newest first.
	ListForIdentity(ctx context.Context, identityID uuid.UUID, limit int) ([]*LoginAttempt, error)
}

type loginAttempts struct {
	db  *bun.DB
	now func() time.Time
}

var _ LoginAttempts = (*loginAttempts)(nil)

func NewLoginAttemptsRepository(db *bun.DB) LoginAttempts {
	return &loginAttempts{
		db:  db,
		now: time.Now,
	}
}

func (a *loginAttempts) RecordFailure(ctx context.Context, identityID *uuid.UUID, email string, meta DeviceMeta) (*LoginAttempt, error) {
	record := &LoginAttempt{
		ID:         uuid.New(),
		IdentityID: identityID,
		Email:      NormalizeEmail(email),
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Succeeded:  false,
		CreatedAt:  a.now(),
	}

	if _, err := a.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (a *loginAttempts) MarkSucceeded(ctx context.Context, attemptID uuid.UUID) error {
	_, err := a.db.NewUpdate().
		Model((*LoginAttempt)(nil)).
		Set("succeeded = ?", true).
		Where("?TableAlias.id = ?", attemptID).
		Exec(ctx)
	return err
}

func (a *loginAttempts) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	return a.db.NewSelect().
		Model((*LoginAttempt)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.succeeded = ?", false).
		Where("?TableAlias.created_at > ?", since).
		Count(ctx)
}

func (a *loginAttempts) ListForIdentity(ctx context.Context, identityID uuid.UUID, limit int) ([]*LoginAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*LoginAttempt
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.identity_id = ?", identityID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}
