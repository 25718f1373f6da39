package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/avvvet/pass-services/internal/passsvc/store"
	log "github.com/sirupsen/logrus"
)

type PassConfig struct {
	TeamID        string
	WebServiceURL string
	SignTimeout   time.Duration
	// StagingDir, when set, receives a private directory per
	// materialization that is removed once the artifact is built.
	StagingDir string
}

// PassService materializes signed pass artifacts from current pass and
// account state.
type PassService struct {
	passes   PassRepository
	accounts AccountRepository
	template *pkpass.Template
	signer   pkpass.Signer
	cfg      PassConfig
}

func NewPassService(passes PassRepository, accounts AccountRepository,
	template *pkpass.Template, signer pkpass.Signer, cfg PassConfig) *PassService {
	return &PassService{
		passes:   passes,
		accounts: accounts,
		template: template,
		signer:   signer,
		cfg:      cfg,
	}
}

// Materialize rebuilds and signs the pass from scratch.
func (s *PassService) Materialize(ctx context.Context, serialNumber, passTypeID string) ([]byte, error) {
	pass, err := s.passes.GetPass(ctx, serialNumber, passTypeID)
	if err != nil {
		return nil, notFound(err, "pass %s", serialNumber)
	}
	return s.materialize(ctx, pass)
}

// MaterializeForAccount builds the pass of an account's first pass.
func (s *PassService) MaterializeForAccount(ctx context.Context, accountID int64) ([]byte, error) {
	passes, err := s.passes.GetPassesByOwner(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("passes of account %d: %w", accountID, err)
	}
	if len(passes) == 0 {
		return nil, fmt.Errorf("account %d has no pass: %w", accountID, ErrNotFound)
	}
	return s.materialize(ctx, passes[0])
}

func (s *PassService) materialize(ctx context.Context, pass *models.Pass) ([]byte, error) {
	bundle, err := s.Bundle(ctx, pass)
	if err != nil {
		return nil, err
	}

	if s.cfg.StagingDir != "" {
		staging, err := bundle.Stage(s.cfg.StagingDir, pass.ID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := staging.Remove(); err != nil {
				log.Warnf("remove staging %s: %v", staging.Dir, err)
			}
		}()
		if bundle, err = staging.Bundle(); err != nil {
			return nil, fmt.Errorf("read staging %s: %w", staging.Dir, err)
		}
	}

	manifest, err := bundle.Manifest()
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}

	signature, err := s.sign(ctx, manifest)
	if err != nil {
		return nil, &SigningError{Err: err}
	}

	artifact, err := bundle.Archive(manifest, signature)
	if err != nil {
		return nil, fmt.Errorf("archive pass %s: %w", pass.SerialNumber, err)
	}

	log.WithFields(log.Fields{
		"operation":     "materialize",
		"pass_id":       pass.ID,
		"serial_number": pass.SerialNumber,
	}).Infof("pass materialized (%d bytes)", len(artifact))
	return artifact, nil
}

// Bundle renders the unsigned content of pass.
func (s *PassService) Bundle(ctx context.Context, pass *models.Pass) (*pkpass.Bundle, error) {
	if s.template == nil {
		return nil, errors.New("no pass template loaded")
	}
	account, err := s.accounts.GetAccount(ctx, pass.OwnerID)
	if err != nil {
		return nil, notFound(err, "owner %d of pass %s", pass.OwnerID, pass.SerialNumber)
	}

	bundle, err := s.template.NewBundle(pkpass.Overlay{
		PassTypeID:          pass.PassTypeID,
		TeamID:              s.cfg.TeamID,
		SerialNumber:        pass.SerialNumber,
		AuthenticationToken: pass.AuthenticationToken,
		WebServiceURL:       s.cfg.WebServiceURL,
		Barcode: pkpass.BarcodePayload{
			PassTypeID:          pass.PassTypeID,
			SerialNumber:        pass.SerialNumber,
			AuthenticationToken: pass.AuthenticationToken,
		},
		Balance: account.Balance,
		Name:    account.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("render pass %s: %w", pass.SerialNumber, err)
	}
	return bundle, nil
}

func (s *PassService) sign(ctx context.Context, manifest []byte) ([]byte, error) {
	if s.signer == nil {
		return nil, errors.New("no signer configured")
	}
	if s.cfg.SignTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SignTimeout)
		defer cancel()
	}
	return s.signer.Sign(ctx, manifest)
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
