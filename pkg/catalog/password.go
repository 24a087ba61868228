package catalog

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/nornic/gqlcore/pkg/errs"
)

// DefaultBcryptCost mirrors the teacher's auth.go default cost — strong
// enough for interactive login rates without slowing tests to a crawl.
const DefaultBcryptCost = bcrypt.DefaultCost

// HashPassword bcrypt-hashes a plaintext password for storage in
// User.PasswordHash.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), DefaultBcryptCost)
	if err != nil {
		return "", errs.Runtime("hash password: %v", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored bcrypt hash.
func CheckPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// AuthenticateUser backs the `gql.authenticate_user(name, password)` system
// procedure (spec.md §6): looks up the user and verifies the password.
func (m *Manager) AuthenticateUser(name, password string) (User, error) {
	u, err := m.GetUser(name)
	if err != nil {
		return User{}, errs.Runtime("authentication failed")
	}
	if !CheckPassword(u.PasswordHash, password) {
		return User{}, errs.Runtime("authentication failed")
	}
	return u, nil
}
