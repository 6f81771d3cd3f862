package entity

import "time"

// Order references its owning account by id. Orders are removed in bulk when
// the account is deleted.
type Order struct {
	ID         string
	AccountID  string
	Items      string
	TotalCents int64
	CreatedAt  time.Time
}
