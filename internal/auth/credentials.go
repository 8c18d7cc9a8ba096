// Package auth holds the credential store and the bearer token service.
package auth

import (
	"github.com/okuma-lab/readability-api/internal/models"
)

// CredentialStore resolves a username to its account record.
type CredentialStore interface {
	Lookup(username string) (*models.User, bool)
}

// defaultPasswordHash is bcrypt("secret") at cost 12.
const defaultPasswordHash = "$2b$12$EixZaYVK1fsbw1ZfbX3OXePaWxn96p36WQoeG6Lruj3vjPGga31lW"

// DefaultUsers returns the built-in account table. It stands in for a real
// user database; swap the CredentialStore implementation to replace it.
func DefaultUsers() []models.User {
	return []models.User{
		{
			Username:     "admin",
			FullName:     "Admin User",
			Email:        "admin@example.com",
			PasswordHash: defaultPasswordHash,
			Disabled:     false,
			Role:         models.RoleAdmin,
		},
		{
			Username:     "user",
			FullName:     "Regular User",
			Email:        "user@example.com",
			PasswordHash: defaultPasswordHash,
			Disabled:     false,
			Role:         models.RoleUser,
		},
	}
}

// StaticCredentialStore is an immutable in-memory CredentialStore.
type StaticCredentialStore struct {
	users map[string]models.User
}

// NewStaticCredentialStore indexes users by username. Later duplicates win.
func NewStaticCredentialStore(users []models.User) *StaticCredentialStore {
	index := make(map[string]models.User, len(users))
	for _, u := range users {
		index[u.Username] = u
	}
	return &StaticCredentialStore{users: index}
}

// Lookup returns a copy of the user record so callers cannot mutate the table.
func (s *StaticCredentialStore) Lookup(username string) (*models.User, bool) {
	u, ok := s.users[username]
	if !ok {
		return nil, false
	}
	return &u, true
}

// Authenticate checks a username/password pair against the store.
func Authenticate(store CredentialStore, tokens *TokenService, username, password string) (*models.User, bool) {
	user, ok := store.Lookup(username)
	if !ok {
		return nil, false
	}
	if !tokens.VerifyPassword(password, user.PasswordHash) {
		return nil, false
	}
	return user, true
}
