package authkit

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateIdentities = `CREATE TABLE identities (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    email_verified_at TIMESTAMP NULL,
    totp_secret TEXT,
    totp_enabled_at TIMESTAMP NULL,
    disabled_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	sqliteCreateRefreshSessions = `CREATE TABLE refresh_sessions (
    id TEXT NOT NULL PRIMARY KEY,
    identity_id TEXT NOT NULL,
    secret TEXT NOT NULL UNIQUE,
    user_agent TEXT,
    ip_address TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expires_at TIMESTAMP NOT NULL,
    revoked_at TIMESTAMP NULL
);`

	sqliteCreateRevokedAccessTokens = `CREATE TABLE revoked_access_tokens (
    token TEXT NOT NULL PRIMARY KEY,
    identity_id TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL
);`

	sqliteCreateSingleUseTokens = `CREATE TABLE single_use_tokens (
    token TEXT NOT NULL PRIMARY KEY,
    identity_id TEXT NOT NULL,
    purpose TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	sqliteCreateLinkedAccounts = `CREATE TABLE linked_accounts (
    id TEXT NOT NULL PRIMARY KEY,
    provider TEXT NOT NULL,
    provider_account_id TEXT NOT NULL,
    identity_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_linked_accounts_provider_account UNIQUE (provider, provider_account_id)
);`

	sqliteCreateLoginAttempts = `CREATE TABLE login_attempts (
    id TEXT NOT NULL PRIMARY KEY,
    identity_id TEXT NULL,
    email TEXT NOT NULL,
    ip_address TEXT,
    user_agent TEXT,
    succeeded BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
)

func setupTestDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, ddl := range []string{
		sqliteCreateIdentities,
		sqliteCreateRefreshSessions,
		sqliteCreateRevokedAccessTokens,
		sqliteCreateSingleUseTokens,
		sqliteCreateLinkedAccounts,
		sqliteCreateLoginAttempts,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return bunDB, cleanup
}

func setupTestManager(t *testing.T) (RepositoryManager, func()) {
	t.Helper()

	db, cleanup := setupTestDB(t)
	return NewRepositoryManager(db), cleanup
}

func testConfig() StaticConfig {
	return StaticConfig{
		SigningKey:      "test-signing-key-32-bytes-long!!",
		Issuer:          "auth-api",
		Audience:        []string{"auth-api-users"},
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		TOTPIssuer:      "authkit-test",
	}
}

var seedHashes sync.Map

// seedIdentity creates a verified identity with a known password. Hashes are
// memoized per password; bcrypt at production cost dominates the suite
// otherwise.
func seedIdentity(t *testing.T, repos RepositoryManager, email, password string) *Identity {
	t.Helper()

	var hash string
	if cached, ok := seedHashes.Load(password); ok {
		hash = cached.(string)
	} else {
		h, err := HashPassword(password)
		require.NoError(t, err)
		seedHashes.Store(password, h)
		hash = h
	}

	now := time.Now()
	identity, err := repos.Identities().Register(context.Background(), &Identity{
		Email:           email,
		PasswordHash:    hash,
		FirstName:       "Test",
		LastName:        "User",
		EmailVerifiedAt: &now,
	})
	require.NoError(t, err)

	return identity
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingMailer captures outbound mail for assertions.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}

	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *recordingMailer) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]sentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

// recordingSink captures activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) has(eventType ActivityEventType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

func newTestAuther(t *testing.T) (*Auther, RepositoryManager, *recordingMailer, *recordingSink, func()) {
	t.Helper()

	repos, cleanup := setupTestManager(t)
	mailer := &recordingMailer{}
	sink := &recordingSink{}

	auther := NewAuthenticator(repos, testConfig()).
		WithMailer(mailer).
		WithMailComposer(MailComposer{BaseURL: "https://app.example.com"}).
		WithActivitySink(sink)

	return auther, repos, mailer, sink, cleanup
}
