package repository

import (
	"context"

	"github.com/yogaswara/account-service/internal/domain/entity"
)

// OrderRepository is the order-store collaborator. The account service only
// creates, lists and bulk-deletes orders; order lifecycle beyond that lives in
// another service.
type OrderRepository interface {
	Create(ctx context.Context, o *entity.Order) error
	ListByAccountID(ctx context.Context, accountID string) ([]entity.Order, error)

	// DeleteByAccountID removes every order referencing the account and
	// returns the number removed.
	DeleteByAccountID(ctx context.Context, accountID string) (int64, error)
}
