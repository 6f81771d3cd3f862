package helpers

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const resetTokenBytes = 16 // 32 hex chars

// ResetTokenIssuer mints single-use password reset tokens with a fixed TTL.
// Single use is enforced by the store's atomic consume, not here.
type ResetTokenIssuer struct {
	TTL time.Duration
}

func NewResetTokenIssuer(ttl time.Duration) *ResetTokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResetTokenIssuer{TTL: ttl}
}

// Issue returns a hex-encoded random token and its expiry timestamp.
func (i *ResetTokenIssuer) Issue() (string, time.Time, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	return hex.EncodeToString(b), time.Now().Add(i.TTL), nil
}
