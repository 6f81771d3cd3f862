package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yogaswara/account-service/internal/domain/entity"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("not found")

// ErrNotMatched is returned by conditional updates whose predicate matched no
// record: the row was deleted concurrently, or the reset token is wrong or
// expired. Callers must not retry.
var ErrNotMatched = errors.New("not matched")

// ProfilePatch is a full replacement of the mutable profile fields. Nil fields
// are written as NULL, not skipped.
type ProfilePatch struct {
	DisplayName string
	Email       *string
	Address     *string
}

// AccountRepository defines the persistence contract for accounts.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByPhone(ctx context.Context, phone string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)

	// UpdateProfile atomically replaces the profile fields of the account,
	// returning the post-update record or ErrNotMatched.
	UpdateProfile(ctx context.Context, id string, p ProfilePatch) (*entity.Account, error)

	// SetPassword commits a new credential hash.
	SetPassword(ctx context.Context, id string, hash string) error

	// SetAvatar records the public URL of an uploaded avatar.
	SetAvatar(ctx context.Context, id string, url string) error

	// SetResetToken stores a pending reset token, overwriting any prior one.
	SetResetToken(ctx context.Context, id string, token string, expiresAt time.Time) error

	// ConsumeResetToken atomically matches an account whose stored token equals
	// token and whose expiry is after now, commits the new hash, clears the
	// token pair and records the completion timestamp. A wrong or expired token
	// returns ErrNotMatched; at most one of two racing calls can succeed.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, newHash string) (*entity.Account, error)

	Delete(ctx context.Context, id string) error
}
