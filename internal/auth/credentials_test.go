package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuma-lab/readability-api/internal/models"
)

func TestStaticCredentialStore_Lookup(t *testing.T) {
	store := NewStaticCredentialStore(DefaultUsers())

	admin, ok := store.Lookup("admin")
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.IsAdmin())

	user, ok := store.Lookup("user")
	require.True(t, ok)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.False(t, user.Disabled)

	_, ok = store.Lookup("nobody")
	assert.False(t, ok)
}

func TestStaticCredentialStore_ReturnsCopies(t *testing.T) {
	store := NewStaticCredentialStore(DefaultUsers())

	u, ok := store.Lookup("user")
	require.True(t, ok)
	u.Role = models.RoleAdmin
	u.Disabled = true

	again, ok := store.Lookup("user")
	require.True(t, ok)
	assert.Equal(t, models.RoleUser, again.Role)
	assert.False(t, again.Disabled)
}

func TestAuthenticate_DefaultTable(t *testing.T) {
	store := NewStaticCredentialStore(DefaultUsers())
	tokens, err := NewTokenService(testSecret, "HS256")
	require.NoError(t, err)

	for _, name := range []string{"admin", "user"} {
		u, ok := Authenticate(store, tokens, name, "secret")
		require.True(t, ok, name)
		assert.Equal(t, name, u.Username)

		token, err := tokens.Issue(u.Username, 30*time.Minute)
		require.NoError(t, err)
		subject, err := tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, name, subject)
	}

	_, ok := Authenticate(store, tokens, "admin", "wrong")
	assert.False(t, ok)

	_, ok = Authenticate(store, tokens, "ghost", "secret")
	assert.False(t, ok)
}
