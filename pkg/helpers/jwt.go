package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionManager signs and parses session tokens. The subject is the account
// id; validity is fixed at construction (2 days by default config).
type SessionManager struct {
	Secret []byte
	TTL    time.Duration
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{Secret: []byte(secret), TTL: ttl}
}

type SessionClaims struct {
	AccountID string `json:"sub_account"`
	jwt.RegisteredClaims
}

// Generate issues a signed session token for the given account id.
func (m *SessionManager) Generate(accountID string) (string, time.Time, error) {
	exp := time.Now().Add(m.TTL)
	claims := &SessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// Parse validates a session token and returns its claims.
func (m *SessionManager) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
