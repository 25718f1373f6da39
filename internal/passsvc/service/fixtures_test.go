package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/avvvet/pass-services/internal/passsvc/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testPassJSON = `{
  "formatVersion": 1,
  "description": "Demo store card",
  "organizationName": "Demo",
  "storeCard": {
    "primaryFields": [{"key": "balance", "label": "Balance", "value": 0, "currencyCode": "USD"}],
    "secondaryFields": [{"key": "name", "label": "Name", "value": ""}]
  }
}`

type countingSigner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSigner) Sign(ctx context.Context, manifest []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("signature"), nil
}

func (s *countingSigner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingTransport fails deliveries to tokens listed in fail.
type recordingTransport struct {
	mu        sync.Mutex
	fail      map[string]bool
	delivered []push.Delivery
}

func (t *recordingTransport) Open(ctx context.Context) error { return nil }
func (t *recordingTransport) Close() error                   { return nil }

func (t *recordingTransport) Deliver(ctx context.Context, d push.Delivery) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail[d.Token] {
		return errors.New("device unreachable")
	}
	t.delivered = append(t.delivered, d)
	return nil
}

func (t *recordingTransport) Tokens() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, d := range t.delivered {
		out = append(out, d.Token)
	}
	return out
}

type fixture struct {
	store         *memory.Store
	signer        *countingSigner
	transport     *recordingTransport
	auth          *AuthService
	registrations *RegistrationService
	updates       *UpdateService
	passes        *PassService
	notifier      *NotificationService
	accounts      *AccountService
	engine        *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tmpl, err := pkpass.ParseTemplate([]byte(testPassJSON), map[string][]byte{
		"icon.png": []byte("icon-bytes"),
	})
	require.NoError(t, err)

	f := &fixture{
		store:     memory.New(),
		signer:    &countingSigner{},
		transport: &recordingTransport{fail: map[string]bool{}},
	}
	f.auth = NewAuthService(f.store)
	f.registrations = NewRegistrationService(f.store)
	f.updates = NewUpdateService(f.registrations, f.store)
	f.passes = NewPassService(f.store, f.store, tmpl, f.signer, PassConfig{
		TeamID:        "TEAM123",
		WebServiceURL: "https://passes.example.com",
		SignTimeout:   time.Second,
	})
	f.notifier = NewNotificationService(f.store, f.registrations, f.transport, time.Second)
	f.accounts = NewAccountService(f.store, f.store, f.notifier, "pass.demo")
	f.engine = NewEngine(f.auth, f.registrations, f.updates, f.passes)
	return f
}

// addPass stores an account and a pass with fixed credentials.
func (f *fixture) addPass(t *testing.T, serial, token string) *models.Pass {
	t.Helper()
	ctx := context.Background()

	acc := &models.Account{Name: "Ada", Balance: decimal.RequireFromString("12.50")}
	require.NoError(t, f.store.CreateAccount(ctx, acc))

	now := time.Now()
	pass := &models.Pass{
		SerialNumber:        serial,
		AuthenticationToken: token,
		PassTypeID:          "pass.demo",
		OwnerID:             acc.ID,
		UpdatedAt:           &now,
	}
	require.NoError(t, f.store.CreatePass(ctx, pass))
	return pass
}
