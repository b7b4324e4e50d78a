package authkit

import (
	"context"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("google")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)

	p, err = ParseProvider("github")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, p)

	_, err = ParseProvider("facebook")
	assert.Error(t, err)
}

func TestNormalizeProfileGoogleRequiresEmail(t *testing.T) {
	_, err := normalizeProfile(ExternalProfile{
		Provider:  ProviderGoogle,
		AccountID: "g-123",
	})
	assert.Error(t, err)

	p, err := normalizeProfile(ExternalProfile{
		Provider:  ProviderGoogle,
		AccountID: "g-123",
		Email:     "User@Gmail.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", p.Email)
}

func TestNormalizeProfileGitHubPlaceholderEmail(t *testing.T) {
	p, err := normalizeProfile(ExternalProfile{
		Provider:  ProviderGitHub,
		AccountID: "42",
		Username:  "octocat",
	})
	require.NoError(t, err)
	assert.Equal(t, "octocat@github.local", p.Email)

	// no username either: fall back to the account id
	p, err = normalizeProfile(ExternalProfile{
		Provider:  ProviderGitHub,
		AccountID: "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "42@github.local", p.Email)
}

func TestNormalizeProfileRejectsMissingAccountID(t *testing.T) {
	_, err := normalizeProfile(ExternalProfile{
		Provider: ProviderGoogle,
		Email:    "user@gmail.com",
	})
	assert.Error(t, err)
}

func TestLinkedAccountsLinkAndFind(t *testing.T) {
	repos, cleanup := setupTestManager(t)
	defer cleanup()

	ctx := context.Background()
	identityID := uuid.New()

	link, err := repos.LinkedAccounts().Link(ctx, identityID, ProviderGoogle, "g-123")
	require.NoError(t, err)
	assert.Equal(t, identityID, link.IdentityID)

	got, err := repos.LinkedAccounts().Find(ctx, ProviderGoogle, "g-123")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	_, err = repos.LinkedAccounts().Find(ctx, ProviderGitHub, "g-123")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestLinkedAccountsLinkIsIdempotentPerIdentity(t *testing.T) {
	repos, cleanup := setupTestManager(t)
	defer cleanup()

	ctx := context.Background()
	identityID := uuid.New()

	first, err := repos.LinkedAccounts().Link(ctx, identityID, ProviderGitHub, "42")
	require.NoError(t, err)
	second, err := repos.LinkedAccounts().Link(ctx, identityID, ProviderGitHub, "42")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestLinkedAccountsNeverRepointed(t *testing.T) {
	repos, cleanup := setupTestManager(t)
	defer cleanup()

	ctx := context.Background()

	_, err := repos.LinkedAccounts().Link(ctx, uuid.New(), ProviderGoogle, "g-123")
	require.NoError(t, err)

	// the same external account cannot be silently moved to another identity
	_, err = repos.LinkedAccounts().Link(ctx, uuid.New(), ProviderGoogle, "g-123")
	assert.ErrorIs(t, err, ErrAccountAlreadyLinked)
}

func TestLinkedAccountsListAndUnlink(t *testing.T) {
	repos, cleanup := setupTestManager(t)
	defer cleanup()

	ctx := context.Background()
	identityID := uuid.New()

	_, err := repos.LinkedAccounts().Link(ctx, identityID, ProviderGoogle, "g-123")
	require.NoError(t, err)
	_, err = repos.LinkedAccounts().Link(ctx, identityID, ProviderGitHub, "42")
	require.NoError(t, err)

	links, err := repos.LinkedAccounts().ListForIdentity(ctx, identityID)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	require.NoError(t, repos.LinkedAccounts().Unlink(ctx, identityID, ProviderGoogle))

	links, err = repos.LinkedAccounts().ListForIdentity(ctx, identityID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, string(ProviderGitHub), links[0].Provider)
}
