package entity

import (
	"time"
)

// Role is an account authorization role.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Account is the aggregate root for the account domain.
//
// Optional fields are pointers so that absent and empty are distinct: a nil
// PasswordHash means the account has no password set (guest/phone-only), and
// ResetToken/ResetExpiresAt are non-nil only while a password reset is pending.
type Account struct {
	ID              string
	DisplayName     string
	Phone           *string // unique among accounts that have one
	Email           *string
	Address         *string
	Role            Role
	PasswordHash    *string
	ResetToken      *string
	ResetExpiresAt  *time.Time
	PasswordResetAt *time.Time
	AvatarURL       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether a credential hash is set.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}
