package authkit

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identities is the persistence surface for user records.
type Identities interface {
	repository.Repository[*Identity]

	Register(ctx context.Context, record *Identity) (*Identity, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error)

	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	SaveTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTwoFactor(ctx context.Context, id uuid.UUID) error
	DisableTwoFactor(ctx context.Context, id uuid.UUID) error
	Disable(ctx context.Context, id uuid.UUID) error
}

type identities struct {
	repository.Repository[*Identity]
	db *bun.DB
}

var (
	_ Identities                       = (*identities)(nil)
	_ repository.Repository[*Identity] = (*identities)(nil)
)

func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*Identity](db, repository.ModelHandlers[*Identity]{
		NewRecord: func() *Identity { return &Identity{} },
		GetID: func(i *Identity) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Identity, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

func (a *identities) Register(ctx context.Context, record *Identity) (*Identity, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *identities) RegisterTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error) {
	prepareIdentityDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *identities) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *identities) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error) {
	record := &Identity{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *identities) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.SetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *identities) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	return a.setColumns(ctx, tx, id, map[string]any{
		"password_hash": passwordHash,
	})
}

func (a *identities) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return a.setColumns(ctx, a.db, id, map[string]any{
		"email_verified_at": time.Now(),
	})
}

func (a *identities) SaveTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	return a.setColumns(ctx, a.db, id, map[string]any{
		"totp_secret":     secret,
		"totp_enabled_at": nil,
	})
}

func (a *identities) EnableTwoFactor(ctx context.Context, id uuid.UUID) error {
	return a.setColumns(ctx, a.db, id, map[string]any{
		"totp_enabled_at": time.Now(),
	})
}

func (a *identities) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	return a.setColumns(ctx, a.db, id, map[string]any{
		"totp_secret":     "",
		"totp_enabled_at": nil,
	})
}

func (a *identities) Disable(ctx context.Context, id uuid.UUID) error {
	return a.setColumns(ctx, a.db, id, map[string]any{
		"disabled_at": time.Now(),
	})
}

// setColumns applies a partial update and reports not-found when the row is
// absent. Updates always bump updated_at.
func (a *identities) setColumns(ctx context.Context, tx bun.IDB, id uuid.UUID, columns map[string]any) error {
	q := tx.NewUpdate().
		Model((*Identity)(nil)).
		Where("?TableAlias.id = ?", id)

	for column, value := range columns {
		q.Set(fmt.Sprintf("%s = ?", column), value)
	}
	q.Set("updated_at = ?", time.Now())

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareIdentityDefaults(record *Identity) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
