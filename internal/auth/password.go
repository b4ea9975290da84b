package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and checks bcrypt digests
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher creates a hasher with the given bcrypt cost
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the account does not exist, so an unknown
	// username costs the same as a wrong password.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password"), cost)
	return &PasswordHasher{cost: cost, dummy: dummy}
}

// Hash returns the digest of password
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether password matches the digest
func (h *PasswordHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDummy burns one comparison and always reports false
func (h *PasswordHasher) CompareDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}
