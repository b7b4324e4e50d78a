package authkit

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provider is the closed set of external identity providers. Adding a
// provider means adding a constant here and teaching normalizeProfile about
// its claim shape; unknown strings never round-trip through the bridge.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub:
		return true
	}
	return false
}

// ParseProvider maps a wire string to a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if !p.Valid() {
		return "", goerrors.New("unknown identity provider", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"provider": s})
	}
	return p, nil
}

// ExternalProfile is the identity assertion a provider hands us after its
// own verification. AccountID is the provider's stable subject identifier,
// never the email.
type ExternalProfile struct {
	Provider  Provider
	AccountID string
	Email     string
	Username  string
	FirstName string
	LastName  string
}

// normalizeProfile applies the per-provider claim rules and returns the
// canonical profile used by the login bridge.
func normalizeProfile(p ExternalProfile) (ExternalProfile, error) {
	if p.AccountID == "" {
		return p, goerrors.New("external profile is missing the account id", goerrors.CategoryBadInput)
	}

	switch p.Provider {
	case ProviderGoogle:
		// Google always asserts a verified email.
		if p.Email == "" {
			return p, goerrors.New("google profile is missing the email", goerrors.CategoryBadInput)
		}
	case ProviderGitHub:
		// GitHub may withhold the email; fall back to a placeholder so the
		// identity row still satisfies the unique email constraint.
		if p.Email == "" {
			username := p.Username
			if username == "" {
				username = p.AccountID
			}
			p.Email = username + "@github.local"
		}
	default:
		return p, goerrors.New("unknown identity provider", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"provider": string(p.Provider)})
	}

	p.Email = NormalizeEmail(p.Email)

	return p, nil
}

// LinkedAccounts persists the bridge rows between external assertions and
// identities. Unique on (provider, provider_account_id).
type LinkedAccounts interface {
	Find(ctx context.Context, provider Provider, accountID string) (*LinkedAccount, error)
	Link(ctx context.Context, identityID uuid.UUID, provider Provider, accountID string) (*LinkedAccount, error)
	LinkTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, provider Provider, accountID string) (*LinkedAccount, error)
	ListForIdentity(ctx context.Context, identityID uuid.UUID) ([]*LinkedAccount, error)
	Unlink(ctx context.Context, identityID uuid.UUID, provider Provider) error
}

type linkedAccounts struct {
	db *bun.DB
}

var _ LinkedAccounts = (*linkedAccounts)(nil)

func NewLinkedAccountsRepository(db *bun.DB) LinkedAccounts {
	return &linkedAccounts{db: db}
}

func (a *linkedAccounts) Find(ctx context.Context, provider Provider, accountID string) (*LinkedAccount, error) {
	record := &LinkedAccount{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", string(provider)).
		Where("?TableAlias.provider_account_id = ?", accountID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"provider":            string(provider),
					"provider_account_id": accountID,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *linkedAccounts) Link(ctx context.Context, identityID uuid.UUID, provider Provider, accountID string) (*LinkedAccount, error) {
	return a.LinkTx(ctx, a.db, identityID, provider, accountID)
}

func (a *linkedAccounts) LinkTx(ctx context.Context, tx bun.IDB, identityID uuid.UUID, provider Provider, accountID string) (*LinkedAccount, error) {
	existing := &LinkedAccount{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.provider = ?", string(provider)).
		Where("?TableAlias.provider_account_id = ?", accountID).
		Limit(1).
		Scan(ctx)

	if err == nil {
		if existing.IdentityID == identityID {
			return existing, nil
		}
		return nil, ErrAccountAlreadyLinked
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record := &LinkedAccount{
		ID:                uuid.New(),
		Provider:          string(provider),
		ProviderAccountID: accountID,
		IdentityID:        identityID,
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (a *linkedAccounts) ListForIdentity(ctx context.Context, identityID uuid.UUID) ([]*LinkedAccount, error) {
	var records []*LinkedAccount
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.identity_id = ?", identityID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *linkedAccounts) Unlink(ctx context.Context, identityID uuid.UUID, provider Provider) error {
	_, err := a.db.NewDelete().
		Model((*LinkedAccount)(nil)).
		Where("?TableAlias.identity_id = ?", identityID).
		Where("?TableAlias.provider = ?", string(provider)).
		Exec(ctx)
	return err
}
