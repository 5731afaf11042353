package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

func (r *SQLRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.run(func() error {
		return r.db.QueryRowContext(ctx,
			`SELECT uid, email, display_name, password_hash, created_at
			 FROM accounts WHERE LOWER(email) = LOWER($1)`,
			email,
		).Scan(&account.UID, &account.Email, &account.DisplayName, &account.PasswordHash, &account.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *SQLRepository) CreateAccount(ctx context.Context, account domain.Account) error {
	err := r.run(func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO accounts (uid, email, display_name, password_hash, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			account.UID, account.Email, account.DisplayName, account.PasswordHash, account.CreatedAt,
		)
		return err
	})

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrEmailInUse
	}
	return err
}
