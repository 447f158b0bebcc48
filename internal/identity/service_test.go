package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registre/internal/identity"
	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
)

type stubTokens struct {
	issued []id.UserID
}

func (s *stubTokens) GenerateToken(userID id.UserID) (string, error) {
	s.issued = append(s.issued, userID)
	return "token-" + userID.String(), nil
}

func newIdentityService(t *testing.T) (*identity.Service, []identity.User, *stubTokens) {
	t.Helper()
	store := identity.NewInMemoryUserStore()
	seeded, err := identity.SeedDirectory(context.Background(), store)
	require.NoError(t, err)
	tokens := &stubTokens{}
	return identity.NewService(store, tokens), seeded, tokens
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("known email yields a token for that user", func(t *testing.T) {
		svc, seeded, tokens := newIdentityService(t)

		token, user, err := svc.Login(ctx, "reception@ministere.gouv")
		require.NoError(t, err)
		assert.Equal(t, seeded[0].ID, user.ID)
		assert.Equal(t, "token-"+user.ID.String(), token)
		assert.Equal(t, []id.UserID{user.ID}, tokens.issued)
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		svc, seeded, _ := newIdentityService(t)

		_, user, err := svc.Login(ctx, "  directeur@ministere.gouv ")
		require.NoError(t, err)
		assert.Equal(t, seeded[3].ID, user.ID)
	})

	t.Run("unknown email is unauthorized, not not-found", func(t *testing.T) {
		svc, _, tokens := newIdentityService(t)

		_, _, err := svc.Login(ctx, "nobody@ministere.gouv")
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
		assert.Empty(t, tokens.issued)
	})

	t.Run("empty email is a validation error", func(t *testing.T) {
		svc, _, _ := newIdentityService(t)

		_, _, err := svc.Login(ctx, "   ")
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	svc, seeded, _ := newIdentityService(t)

	t.Run("resolves a seeded user", func(t *testing.T) {
		user, err := svc.GetUser(ctx, seeded[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "Jean Mukendi", user.DisplayName())
		assert.Equal(t, "Cabinet", user.Service)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.GetUser(ctx, id.NewUserID())
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})

	t.Run("nil id", func(t *testing.T) {
		_, err := svc.GetUser(ctx, id.UserID{})
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})
}

func TestListUsers(t *testing.T) {
	svc, seeded, _ := newIdentityService(t)

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, len(seeded))
	for i, u := range seeded {
		assert.Equal(t, u.ID, users[i].ID)
	}
}

func TestRoles(t *testing.T) {
	assert.True(t, identity.RoleAdmin.Elevated())
	assert.True(t, identity.RoleDirector.Elevated())
	assert.False(t, identity.RoleAgent.Elevated())
	assert.False(t, identity.RoleVisitor.Elevated())

	assert.True(t, identity.RoleReceptionist.Valid())
	assert.False(t, identity.Role("MANAGER").Valid())
}
