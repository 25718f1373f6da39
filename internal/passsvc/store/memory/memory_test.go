package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store) (*models.Account, *models.Pass) {
	t.Helper()
	ctx := context.Background()

	acc := &models.Account{Name: "Ada", Balance: decimal.NewFromInt(10)}
	require.NoError(t, s.CreateAccount(ctx, acc))

	pass := &models.Pass{SerialNumber: "abc123", AuthenticationToken: "tok1", PassTypeID: "pass.demo", OwnerID: acc.ID}
	require.NoError(t, s.CreatePass(ctx, pass))
	return acc, pass
}

func TestConcurrentInsertKeepsOneRegistration(t *testing.T) {
	s := New()
	reg, err := models.NewRegistration("dev1", "pass.demo", "abc123", "push1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.InsertIfAbsent(context.Background(), reg)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	regs, _ := s.ListRegistrations(context.Background())
	assert.Len(t, regs, 1)
}

func TestDuplicatePassRejected(t *testing.T) {
	s := New()
	acc, _ := seed(t, s)

	err := s.CreatePass(context.Background(), &models.Pass{SerialNumber: "abc123", AuthenticationToken: "other", OwnerID: acc.ID})
	assert.ErrorIs(t, err, store.ErrDuplicatePass)
}

func TestFilterUpdated(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, pass := seed(t, s)

	legacy := &models.Pass{SerialNumber: "legacy", AuthenticationToken: "tok2", PassTypeID: "pass.demo", OwnerID: pass.OwnerID}
	require.NoError(t, s.CreatePass(ctx, legacy))

	at := time.Unix(1000, 0)
	s.SetUpdatedAt(pass.ID, &at)

	got, err := s.FilterUpdated(ctx, []string{"abc123", "legacy", "missing"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123", "legacy"}, got)

	since := time.Unix(1001, 0)
	got, err = s.FilterUpdated(ctx, []string{"abc123", "legacy"}, &since)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy"}, got)
}

func TestUpdateAccountTouchesPasses(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc, pass := seed(t, s)

	name := "Grace"
	now := time.Unix(5000, 0)
	ids, err := s.UpdateAccount(ctx, acc.ID, models.AccountUpdate{Name: &name}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{pass.ID}, ids)

	got, _ := s.GetPassByID(ctx, pass.ID)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(now))

	a, _ := s.GetAccount(ctx, acc.ID)
	assert.Equal(t, "Grace", a.Name)

	_, err = s.UpdateAccount(ctx, 99, models.AccountUpdate{}, now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteAccountCascadesToPasses(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc, pass := seed(t, s)
	reg, _ := models.NewRegistration("dev1", "pass.demo", pass.SerialNumber, "push1")
	_, _ = s.InsertIfAbsent(ctx, reg)

	deleted, err := s.DeleteAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetPassByID(ctx, pass.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// registrations are independent of pass validity
	ok, _ := s.Exists(ctx, reg.Key())
	assert.True(t, ok)
}

func TestPushTokensDeduplicated(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, d := range []string{"dev1", "dev2", "dev3"} {
		token := "push-a"
		if d == "dev3" {
			token = "push-b"
		}
		reg, _ := models.NewRegistration(d, "pass.demo", "abc123", token)
		_, err := s.InsertIfAbsent(ctx, reg)
		require.NoError(t, err)
	}

	tokens, err := s.PushTokensForSerial(ctx, "abc123")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"push-a", "push-b"}, tokens)
}
