package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yogaswara/account-service/internal/domain/entity"
	"github.com/yogaswara/account-service/internal/domain/repository"
)

const accountColumns = `id, display_name, phone, email, address, role,
	password_hash, reset_token, reset_expires_at, password_reset_at,
	avatar_url, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	err := row.Scan(&a.ID, &a.DisplayName, &a.Phone, &a.Email, &a.Address, &a.Role,
		&a.PasswordHash, &a.ResetToken, &a.ResetExpiresAt, &a.PasswordResetAt,
		&a.AvatarURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	if a.Role == "" {
		a.Role = entity.RoleCustomer
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (display_name, phone, email, address, role, password_hash, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, a.DisplayName, a.Phone, a.Email, a.Address, a.Role, a.PasswordHash, a.AvatarURL)

	return row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id))
}

func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*entity.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE phone = $1
	`, phone))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, email))
}

// UpdateProfile replaces the profile fields in one statement; nil email or
// address is written as NULL (full replacement, not a patch).
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, p repository.ProfilePatch) (*entity.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET display_name = $1, email = $2, address = $3, updated_at = now()
		WHERE id = $4
		RETURNING `+accountColumns+`
	`, p.DisplayName, p.Email, p.Address, id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrNotMatched
	}
	return a, err
}

func (r *AccountRepository) SetPassword(ctx context.Context, id string, hash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`, hash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotMatched
	}
	return nil
}

func (r *AccountRepository) SetAvatar(ctx context.Context, id string, url string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET avatar_url = $1, updated_at = now()
		WHERE id = $2
	`, url, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotMatched
	}
	return nil
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id string, token string, expiresAt time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET reset_token = $1, reset_expires_at = $2, updated_at = now()
		WHERE id = $3
	`, token, expiresAt, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotMatched
	}
	return nil
}

// ConsumeResetToken is the single check-then-act primitive for resets: the
// token match, expiry check, hash commit and token clear happen in one UPDATE,
// so of two racing consumers only one sees a matched row.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time, newHash string) (*entity.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET password_hash = $1,
		    reset_token = NULL,
		    reset_expires_at = NULL,
		    password_reset_at = $2,
		    updated_at = now()
		WHERE reset_token = $3 AND reset_expires_at > $2
		RETURNING `+accountColumns+`
	`, newHash, now, token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrNotMatched
	}
	return a, err
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotMatched
	}
	return nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
