package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountStore struct {
	db *pgxpool.Pool
}

func NewAccountStore(db *pgxpool.Pool) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
        INSERT INTO accounts (email, name, balance)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at;
    `

	err := s.db.QueryRow(ctx, query, account.Email, account.Name, account.Balance).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	a := &models.Account{}
	err := s.db.QueryRow(ctx, `
        SELECT id, email, name, balance, created_at, updated_at
        FROM accounts
        WHERE id = $1
    `, id).Scan(&a.ID, &a.Email, &a.Name, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AccountStore) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, email, name, balance, created_at, updated_at
        FROM accounts
        ORDER BY id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes the account; its passes go with it through the
// foreign key cascade.
func (s *AccountStore) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *AccountStore) UpdateAccount(ctx context.Context, id int64, upd models.AccountUpdate, now time.Time) ([]int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE accounts
        SET email = COALESCE($2, email),
            name = COALESCE($3, name),
            balance = COALESCE($4, balance),
            updated_at = $5
        WHERE id = $1
    `, id, upd.Email, upd.Name, upd.Balance, now)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	rows, err := tx.Query(ctx, `
        UPDATE passes
        SET updated_at = $2
        WHERE owner_id = $1
        RETURNING id
    `, id, now)
	if err != nil {
		return nil, fmt.Errorf("touch passes: %w", err)
	}
	passIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("touch passes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return passIDs, nil
}
