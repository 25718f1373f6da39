// Package memory holds map-backed implementations of the pass, registration
// and account repositories. They follow the same contracts as the postgres
// stores and are used by the CLI dry runs and the tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/store"
)

type Store struct {
	mu            sync.RWMutex
	nextPassID    int64
	nextAccountID int64
	passes        map[int64]*models.Pass
	accounts      map[int64]*models.Account
	registrations map[models.RegistrationKey]*models.Registration
	now           func() time.Time
}

func New() *Store {
	return &Store{
		passes:        make(map[int64]*models.Pass),
		accounts:      make(map[int64]*models.Account),
		registrations: make(map[models.RegistrationKey]*models.Registration),
		now:           time.Now,
	}
}

func copyPass(p *models.Pass) *models.Pass {
	cp := *p
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		cp.UpdatedAt = &t
	}
	return &cp
}

func copyAccount(a *models.Account) *models.Account {
	cp := *a
	return &cp
}

// passes

func (s *Store) CreatePass(ctx context.Context, pass *models.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.passes {
		if p.SerialNumber == pass.SerialNumber || p.AuthenticationToken == pass.AuthenticationToken {
			return store.ErrDuplicatePass
		}
	}
	s.nextPassID++
	pass.ID = s.nextPassID
	if pass.CreatedAt.IsZero() {
		pass.CreatedAt = s.now()
	}
	s.passes[pass.ID] = copyPass(pass)
	return nil
}

// SetUpdatedAt overwrites the watermark of a pass; nil makes it a legacy row.
func (s *Store) SetUpdatedAt(id int64, at *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.passes[id]; ok {
		p.UpdatedAt = at
	}
}

func (s *Store) GetPassByID(ctx context.Context, id int64) (*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.passes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyPass(p), nil
}

func (s *Store) GetPass(ctx context.Context, serialNumber, passTypeID string) (*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.passes {
		if p.SerialNumber == serialNumber && p.PassTypeID == passTypeID {
			return copyPass(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetPassesByOwner(ctx context.Context, ownerID int64) ([]*models.Pass, error) {
	return s.selectPasses(func(p *models.Pass) bool { return p.OwnerID == ownerID }), nil
}

func (s *Store) ListPasses(ctx context.Context) ([]*models.Pass, error) {
	return s.selectPasses(func(*models.Pass) bool { return true }), nil
}

func (s *Store) selectPasses(keep func(*models.Pass) bool) []*models.Pass {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Pass
	for _, p := range s.passes {
		if keep(p) {
			out = append(out, copyPass(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CountByCredentials(ctx context.Context, serialNumber, passTypeID, token string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.passes {
		if p.SerialNumber == serialNumber && p.PassTypeID == passTypeID && p.AuthenticationToken == token {
			count++
		}
	}
	return count, nil
}

func (s *Store) FilterUpdated(ctx context.Context, serialNumbers []string, since *time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(serialNumbers))
	for _, serial := range serialNumbers {
		wanted[serial] = true
	}

	var out []string
	for _, p := range s.passes {
		if !wanted[p.SerialNumber] {
			continue
		}
		if since == nil || p.UpdatedSince(*since) {
			out = append(out, p.SerialNumber)
		}
	}
	sort.Strings(out)
	return out, nil
}

// registrations

func (s *Store) InsertIfAbsent(ctx context.Context, reg *models.Registration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reg.Key()
	if _, ok := s.registrations[key]; ok {
		return false, nil
	}
	cp := *reg
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.registrations[key] = &cp
	return true, nil
}

func (s *Store) Delete(ctx context.Context, key models.RegistrationKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registrations[key]; !ok {
		return false, nil
	}
	delete(s.registrations, key)
	return true, nil
}

func (s *Store) Exists(ctx context.Context, key models.RegistrationKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.registrations[key]
	return ok, nil
}

func (s *Store) ExistsForDevice(ctx context.Context, deviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key := range s.registrations {
		if key.DeviceID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SerialNumbersForDevice(ctx context.Context, deviceID, passTypeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, r := range s.registrations {
		if r.DeviceID == deviceID && r.PassTypeID == passTypeID {
			out = append(out, r.SerialNumber)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) PushTokensForSerial(ctx context.Context, serialNumber string) ([]string, error) {
	regs, _ := s.ListRegistrations(ctx)

	seen := make(map[string]bool)
	var out []string
	for _, r := range regs {
		if r.SerialNumber != serialNumber || seen[r.PushToken] {
			continue
		}
		seen[r.PushToken] = true
		out = append(out, r.PushToken)
	}
	return out, nil
}

func (s *Store) ListRegistrations(ctx context.Context) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Registration, 0, len(s.registrations))
	for _, r := range s.registrations {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].DeviceID != out[j].DeviceID {
			return out[i].DeviceID < out[j].DeviceID
		}
		return out[i].SerialNumber < out[j].SerialNumber
	})
	return out, nil
}

// accounts

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccountID++
	now := s.now()
	account.ID = s.nextAccountID
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyAccount(a), nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, copyAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	delete(s.accounts, id)
	for pid, p := range s.passes {
		if p.OwnerID == id {
			delete(s.passes, pid)
		}
	}
	return true, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id int64, upd models.AccountUpdate, now time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Email != nil {
		a.Email = *upd.Email
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Balance != nil {
		a.Balance = *upd.Balance
	}
	a.UpdatedAt = now

	var ids []int64
	for pid, p := range s.passes {
		if p.OwnerID == id {
			t := now
			p.UpdatedAt = &t
			ids = append(ids, pid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
