package store

import (
	"context"

	"github.com/avvvet/pass-services/internal/passsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RegistrationStore struct {
	db *pgxpool.Pool
}

func NewRegistrationStore(db *pgxpool.Pool) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// InsertIfAbsent relies on the (device_id, serial_number) primary key, so two
// concurrent registrations of the same key leave exactly one row.
func (s *RegistrationStore) InsertIfAbsent(ctx context.Context, reg *models.Registration) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        INSERT INTO registrations (device_id, serial_number, push_token, pass_type_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (device_id, serial_number) DO NOTHING
    `, reg.DeviceID, reg.SerialNumber, reg.PushToken, reg.PassTypeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *RegistrationStore) Delete(ctx context.Context, key models.RegistrationKey) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        DELETE FROM registrations
        WHERE device_id = $1 AND serial_number = $2
    `, key.DeviceID, key.SerialNumber)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *RegistrationStore) Exists(ctx context.Context, key models.RegistrationKey) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM registrations WHERE device_id = $1 AND serial_number = $2
        )
    `, key.DeviceID, key.SerialNumber).Scan(&exists)
	return exists, err
}

func (s *RegistrationStore) ExistsForDevice(ctx context.Context, deviceID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM registrations WHERE device_id = $1)
    `, deviceID).Scan(&exists)
	return exists, err
}

func (s *RegistrationStore) SerialNumbersForDevice(ctx context.Context, deviceID, passTypeID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
        SELECT serial_number
        FROM registrations
        WHERE device_id = $1 AND pass_type_id = $2
        ORDER BY serial_number
    `, deviceID, passTypeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *RegistrationStore) PushTokensForSerial(ctx context.Context, serialNumber string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
        SELECT push_token
        FROM registrations
        WHERE serial_number = $1
        GROUP BY push_token
        ORDER BY MIN(created_at), push_token
    `, serialNumber)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *RegistrationStore) ListRegistrations(ctx context.Context) ([]*models.Registration, error) {
	rows, err := s.db.Query(ctx, `
        SELECT device_id, serial_number, push_token, pass_type_id, created_at
        FROM registrations
        ORDER BY created_at, device_id, serial_number
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*models.Registration
	for rows.Next() {
		r := &models.Registration{}
		if err := rows.Scan(&r.DeviceID, &r.SerialNumber, &r.PushToken, &r.PassTypeID, &r.CreatedAt); err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}
