package authkit

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Identities() Identities
	Sessions() Sessions
	RevokedTokens() RevokedTokens
	SingleUseTokens() SingleUseTokens
	LinkedAccounts() LinkedAccounts
	LoginAttempts() LoginAttempts
}

type mngr struct {
	db              *bun.DB
	identities      Identities
	sessions        Sessions
	revokedTokens   RevokedTokens
	singleUseTokens SingleUseTokens
	linkedAccounts  LinkedAccounts
	loginAttempts   LoginAttempts
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:              db,
		identities:      NewIdentitiesRepository(db),
		sessions:        NewSessionsRepository(db),
		revokedTokens:   NewRevokedTokensRepository(db),
		singleUseTokens: NewSingleUseTokensRepository(db),
		linkedAccounts:  NewLinkedAccountsRepository(db),
		loginAttempts:   NewLoginAttemptsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.identities == nil {
		return errors.New("repository identities should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.revokedTokens == nil {
		return errors.New("repository revokedTokens should be initialized")
	}

	if m.singleUseTokens == nil {
		return errors.New("repository singleUseTokens should be initialized")
	}

	if m.linkedAccounts == nil {
		return errors.New("repository linkedAccounts should be initialized")
	}

	if m.loginAttempts == nil {
		return errors.New("repository loginAttempts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Identities() Identities {
	return m.identities
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}

func (m mngr) RevokedTokens() RevokedTokens {
	return m.revokedTokens
}

func (m mngr) SingleUseTokens() SingleUseTokens {
	return m.singleUseTokens
}

func (m mngr) LinkedAccounts() LinkedAccounts {
	return m.linkedAccounts
}

func (m mngr) LoginAttempts() LoginAttempts {
	return m.loginAttempts
}
