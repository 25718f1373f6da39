package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// AccountService is the administrative side: it owns every mutation of
// pass content and triggers notifications afterwards.
type AccountService struct {
	accounts   AccountRepository
	passes     PassRepository
	notifier   *NotificationService
	passTypeID string
	now        func() time.Time
}

func NewAccountService(accounts AccountRepository, passes PassRepository,
	notifier *NotificationService, passTypeID string) *AccountService {
	return &AccountService{
		accounts:   accounts,
		passes:     passes,
		notifier:   notifier,
		passTypeID: passTypeID,
		now:        time.Now,
	}
}

// CreateAccount stores a new account and issues its pass.
func (s *AccountService) CreateAccount(ctx context.Context, email, name string, balance decimal.Decimal) (*models.Account, *models.Pass, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil, &ValidationError{Field: "name", Reason: "required"}
	}

	account := &models.Account{Email: email, Name: name, Balance: balance}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, nil, fmt.Errorf("create account: %w", err)
	}

	pass, err := s.IssuePass(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}
	return account, pass, nil
}

// IssuePass creates a pass with a fresh serial number and token for ownerID.
func (s *AccountService) IssuePass(ctx context.Context, ownerID int64) (*models.Pass, error) {
	if _, err := s.accounts.GetAccount(ctx, ownerID); err != nil {
		return nil, notFound(err, "account %d", ownerID)
	}

	serial, err := randomHex()
	if err != nil {
		return nil, err
	}
	token, err := randomHex()
	if err != nil {
		return nil, err
	}

	now := s.now()
	pass := &models.Pass{
		SerialNumber:        serial,
		AuthenticationToken: token,
		PassTypeID:          s.passTypeID,
		OwnerID:             ownerID,
		CreatedAt:           now,
		UpdatedAt:           &now,
	}
	if err := s.passes.CreatePass(ctx, pass); err != nil {
		return nil, fmt.Errorf("create pass: %w", err)
	}

	log.WithFields(log.Fields{
		"operation":     "issue-pass",
		"pass_id":       pass.ID,
		"serial_number": pass.SerialNumber,
		"owner_id":      ownerID,
	}).Info("pass issued")
	return pass, nil
}

// UpdateAccount changes the account, moves the watermark of its passes and
// pushes to every registered device. Push failures do not fail the update.
func (s *AccountService) UpdateAccount(ctx context.Context, id int64, upd models.AccountUpdate) ([]*NotifyReport, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	passIDs, err := s.accounts.UpdateAccount(ctx, id, upd, s.now())
	if err != nil {
		return nil, notFound(err, "update account %d", id)
	}

	var reports []*NotifyReport
	for _, passID := range passIDs {
		report, err := s.notifier.Notify(ctx, passID)
		if err != nil {
			log.Errorf("notify pass %d after account %d update: %v", passID, id, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, id int64) error {
	deleted, err := s.accounts.DeleteAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, notFound(err, "account %d", id)
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.accounts.ListAccounts(ctx)
}

func (s *AccountService) ListPasses(ctx context.Context) ([]*models.Pass, error) {
	return s.passes.ListPasses(ctx)
}

// OwnerForPass returns the account owning the pass identified by all three
// values. Any mismatch is ErrNotFound.
func (s *AccountService) OwnerForPass(ctx context.Context, passTypeID, serialNumber, token string) (*models.Account, error) {
	pass, err := s.passes.GetPass(ctx, serialNumber, passTypeID)
	if err != nil {
		return nil, notFound(err, "pass %s", serialNumber)
	}
	if token == "" || pass.AuthenticationToken != token {
		return nil, fmt.Errorf("pass %s: %w", serialNumber, ErrNotFound)
	}
	return s.GetAccount(ctx, pass.OwnerID)
}

// OwnerForBarcode resolves a scanned barcode message to its owner.
func (s *AccountService) OwnerForBarcode(ctx context.Context, message string) (*models.Account, error) {
	b, err := pkpass.DecodeBarcode(message)
	if err != nil {
		return nil, &ValidationError{Field: "barcode", Reason: err.Error()}
	}
	return s.OwnerForPass(ctx, b.PassTypeID, b.SerialNumber, b.AuthenticationToken)
}

// randomHex returns 16 random bytes as 32 hex characters.
func randomHex() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
