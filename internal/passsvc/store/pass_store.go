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

var ErrDuplicatePass = errors.New("pass serial number or token already exists")

type PassStore struct {
	db *pgxpool.Pool
}

func NewPassStore(db *pgxpool.Pool) *PassStore {
	return &PassStore{db: db}
}

const passColumns = `id, serial_number, authentication_token, pass_type_id, owner_id, created_at, updated_at`

func scanPass(row pgx.Row) (*models.Pass, error) {
	p := &models.Pass{}
	err := row.Scan(
		&p.ID,
		&p.SerialNumber,
		&p.AuthenticationToken,
		&p.PassTypeID,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PassStore) CreatePass(ctx context.Context, pass *models.Pass) error {
	query := `
        INSERT INTO passes (serial_number, authentication_token, pass_type_id, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id;
    `

	err := s.db.QueryRow(ctx, query,
		pass.SerialNumber,
		pass.AuthenticationToken,
		pass.PassTypeID,
		pass.OwnerID,
		pass.CreatedAt,
		pass.UpdatedAt,
	).Scan(&pass.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePass
		}
		return fmt.Errorf("could not create pass: %w", err)
	}
	return nil
}

func (s *PassStore) GetPassByID(ctx context.Context, id int64) (*models.Pass, error) {
	return scanPass(s.db.QueryRow(ctx, `SELECT `+passColumns+` FROM passes WHERE id = $1`, id))
}

func (s *PassStore) GetPass(ctx context.Context, serialNumber, passTypeID string) (*models.Pass, error) {
	return scanPass(s.db.QueryRow(ctx, `
        SELECT `+passColumns+`
        FROM passes
        WHERE serial_number = $1 AND pass_type_id = $2
    `, serialNumber, passTypeID))
}

func (s *PassStore) GetPassesByOwner(ctx context.Context, ownerID int64) ([]*models.Pass, error) {
	return s.list(ctx, `SELECT `+passColumns+` FROM passes WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (s *PassStore) ListPasses(ctx context.Context) ([]*models.Pass, error) {
	return s.list(ctx, `SELECT `+passColumns+` FROM passes ORDER BY id`)
}

func (s *PassStore) list(ctx context.Context, query string, args ...interface{}) ([]*models.Pass, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passes []*models.Pass
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

func (s *PassStore) CountByCredentials(ctx context.Context, serialNumber, passTypeID, token string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM passes
        WHERE serial_number = $1 AND pass_type_id = $2 AND authentication_token = $3
    `, serialNumber, passTypeID, token).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PassStore) FilterUpdated(ctx context.Context, serialNumbers []string, since *time.Time) ([]string, error) {
	if len(serialNumbers) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
        SELECT serial_number
        FROM passes
        WHERE serial_number = ANY($1)
          AND ($2::timestamptz IS NULL OR updated_at IS NULL OR updated_at >= $2)
        ORDER BY serial_number
    `, serialNumbers, since)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
