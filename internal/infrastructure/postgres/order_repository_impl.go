package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yogaswara/account-service/internal/domain/entity"
	"github.com/yogaswara/account-service/internal/domain/repository"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO orders (account_id, items, total_cents)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, o.AccountID, o.Items, o.TotalCents)

	return row.Scan(&o.ID, &o.CreatedAt)
}

func (r *OrderRepository) ListByAccountID(ctx context.Context, accountID string) ([]entity.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, items, total_cents, created_at
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Order
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Items, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) DeleteByAccountID(ctx context.Context, accountID string) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ repository.OrderRepository = (*OrderRepository)(nil)
