package helpers

import "golang.org/x/crypto/bcrypt"

// PasswordHasher derives and verifies bcrypt hashes. Cost is injected at
// construction; zero or out-of-range values fall back to bcrypt.DefaultCost.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes the plain text password with a per-call random salt.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares a stored hash with a plain password. An empty hash means
// the account has no password set and always verifies false.
func (h *PasswordHasher) Verify(plain string, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
