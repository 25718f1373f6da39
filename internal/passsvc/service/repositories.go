package service

import (
	"context"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/models"
)

// PassRepository is the storage contract for passes. Missing rows are
// reported as store.ErrNotFound.
type PassRepository interface {
	CreatePass(ctx context.Context, pass *models.Pass) error
	GetPassByID(ctx context.Context, id int64) (*models.Pass, error)
	GetPass(ctx context.Context, serialNumber, passTypeID string) (*models.Pass, error)
	GetPassesByOwner(ctx context.Context, ownerID int64) ([]*models.Pass, error)
	ListPasses(ctx context.Context) ([]*models.Pass, error)
	// CountByCredentials counts passes matching all three values exactly.
	CountByCredentials(ctx context.Context, serialNumber, passTypeID, token string) (int, error)
	// FilterUpdated returns the serials in serialNumbers whose pass was
	// updated at or after since (or has no updated_at). A nil since keeps
	// every serial that has a pass.
	FilterUpdated(ctx context.Context, serialNumbers []string, since *time.Time) ([]string, error)
}

// RegistrationRepository is the storage contract for device registrations.
// InsertIfAbsent must be atomic per key.
type RegistrationRepository interface {
	InsertIfAbsent(ctx context.Context, reg *models.Registration) (bool, error)
	Delete(ctx context.Context, key models.RegistrationKey) (bool, error)
	Exists(ctx context.Context, key models.RegistrationKey) (bool, error)
	ExistsForDevice(ctx context.Context, deviceID string) (bool, error)
	SerialNumbersForDevice(ctx context.Context, deviceID, passTypeID string) ([]string, error)
	PushTokensForSerial(ctx context.Context, serialNumber string) ([]string, error)
	ListRegistrations(ctx context.Context) ([]*models.Registration, error)
}

// AccountRepository is the storage contract for pass owners.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, id int64) (bool, error)
	// UpdateAccount applies upd and sets updated_at = now on the account and
	// on every pass it owns, atomically. It returns the ids of those passes.
	UpdateAccount(ctx context.Context, id int64, upd models.AccountUpdate, now time.Time) ([]int64, error)
}
