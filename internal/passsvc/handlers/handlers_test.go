package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/pass-services/internal/devicelog"
	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/avvvet/pass-services/internal/passsvc/service"
	"github.com/avvvet/pass-services/internal/passsvc/store/memory"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templateJSON = `{
  "formatVersion": 1,
  "storeCard": {
    "primaryFields": [{"key": "balance", "value": 0}],
    "secondaryFields": [{"key": "name", "value": ""}]
  }
}`

type stubSigner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSigner) Sign(ctx context.Context, manifest []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return []byte("sig"), s.err
}

type memorySink struct {
	mu      sync.Mutex
	entries []devicelog.Entry
}

func (s *memorySink) Record(ctx context.Context, entries []devicelog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

type testServer struct {
	t      *testing.T
	store  *memory.Store
	signer *stubSigner
	sink   *memorySink
	router *chi.Mux
	h      *Handler
	jwt    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpl, err := pkpass.ParseTemplate([]byte(templateJSON), nil)
	require.NoError(t, err)

	st := memory.New()
	signer := &stubSigner{}
	sink := &memorySink{}

	auth := service.NewAuthService(st)
	regs := service.NewRegistrationService(st)
	updates := service.NewUpdateService(regs, st)
	passes := service.NewPassService(st, st, tmpl, signer, service.PassConfig{TeamID: "TEAM", WebServiceURL: "https://example.com"})
	notifier := service.NewNotificationService(st, regs, push.LogTransport{}, time.Second)
	accounts := service.NewAccountService(st, st, notifier, "pass.demo")

	h := NewHandler(Services{
		Engine:        service.NewEngine(auth, regs, updates, passes),
		Accounts:      accounts,
		Passes:        passes,
		Notifier:      notifier,
		Registrations: regs,
		DeviceLog:     sink,
		DeviceLogTTL:  time.Hour,
		Port:          "8080",
	})
	h.InitAuth("test-secret")

	r := chi.NewRouter()
	h.SetRoutes(r)

	_, token, err := h.tokenAuth.Encode(map[string]interface{}{"service_id": "test"})
	require.NoError(t, err)

	return &testServer{t: t, store: st, signer: signer, sink: sink, router: r, h: h, jwt: token}
}

func (s *testServer) addPass(serial, token string) *models.Pass {
	ctx := context.Background()
	acc := &models.Account{Name: "Ada", Balance: decimal.NewFromInt(3)}
	require.NoError(s.t, s.store.CreateAccount(ctx, acc))
	now := time.Now()
	p := &models.Pass{SerialNumber: serial, AuthenticationToken: token, PassTypeID: "pass.demo", OwnerID: acc.ID, UpdatedAt: &now}
	require.NoError(s.t, s.store.CreatePass(ctx, p))
	return p
}

func (s *testServer) do(method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) admin(method, path, body string) *httptest.ResponseRecorder {
	return s.do(method, path, "Bearer "+s.jwt, body)
}

const regPath = "/v1/devices/dev1/registrations/pass.demo/abc123"

func TestProtocolScenario(t *testing.T) {
	s := newTestServer(t)
	s.addPass("abc123", "tok1")

	rec := s.do(http.MethodPost, regPath, "ApplePass tok1", `{"pushToken":"push1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, regPath, "ApplePass tok1", `{"pushToken":"push1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/v1/devices/dev1/registrations/pass.demo", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var updates service.Updates
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updates))
	assert.Equal(t, []string{"abc123"}, updates.SerialNumbers)
	assert.NotEmpty(t, updates.LastUpdated)

	rec = s.do(http.MethodDelete, regPath, "ApplePass tok1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/v1/passes/pass.demo/abc123", "ApplePass tok1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pkpass.ContentType, rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestRegisterDeviceErrors(t *testing.T) {
	s := newTestServer(t)
	s.addPass("abc123", "tok1")

	rec := s.do(http.MethodPost, regPath, "ApplePass wrong", `{"pushToken":"push1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, regPath, "Bearer tok1", `{"pushToken":"push1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, regPath, "ApplePass tok1", `{"pushToken":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, regPath, "ApplePass tok1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUpdatableStatuses(t *testing.T) {
	s := newTestServer(t)
	s.addPass("abc123", "tok1")

	rec := s.do(http.MethodGet, "/v1/devices/nobody/registrations/pass.demo", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, regPath, "ApplePass tok1", `{"pushToken":"p"}`).Code)

	rec = s.do(http.MethodGet, "/v1/devices/dev1/registrations/pass.demo?passesUpdatedSince=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	future := time.Now().Add(time.Hour).Unix()
	rec = s.do(http.MethodGet, "/v1/devices/dev1/registrations/pass.demo?passesUpdatedSince="+itoa(future), "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/v1/devices/dev1/registrations/pass.demo?passesUpdatedSince=", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnregisterWithoutRegistration(t *testing.T) {
	s := newTestServer(t)
	s.addPass("abc123", "tok1")

	rec := s.do(http.MethodDelete, regPath, "ApplePass tok1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFetchPassUnauthorized(t *testing.T) {
	s := newTestServer(t)
	s.addPass("abc123", "tok1")

	rec := s.do(http.MethodGet, "/v1/passes/pass.demo/abc123", "ApplePass nope", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEqual(t, pkpass.ContentType, rec.Header().Get("Content-Type"))
	assert.Zero(t, s.signer.calls)

	// an unknown pass looks the same as a wrong token
	rec = s.do(http.MethodGet, "/v1/passes/pass.demo/missing", "ApplePass tok1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFetchPassSigningFailure(t *testing.T) {
	s := newTestServer(t)
	s.addPass("abc123", "tok1")
	s.signer.err = errors.New("no key")

	rec := s.do(http.MethodGet, "/v1/passes/pass.demo/abc123", "ApplePass tok1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDeviceLogAlwaysOK(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/v1/log", "", `{"logs":["a","b"]}`).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/v1/log", "", `{"description":"c"}`).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/v1/log", "", ``).Code)

	require.Len(t, s.sink.entries, 3)
	assert.Equal(t, "c", s.sink.entries[2].Message)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "8080")
}

func TestAdminRequiresJWT(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/admin/accounts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.admin(http.MethodGet, "/admin/accounts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAccountLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.admin(http.MethodPost, "/admin/accounts", `{"email":"ada@example.com","name":"Ada","balance":"10.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data struct {
			Account models.Account `json:"account"`
			Pass    IssuedPass     `json:"pass"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	acc, pass := created.Data.Account, created.Data.Pass
	assert.Equal(t, "pass.demo", pass.PassTypeID)
	assert.Len(t, pass.AuthenticationToken, 32)

	// device registers with the issued credentials
	path := "/v1/devices/dev9/registrations/pass.demo/" + pass.SerialNumber
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, path, "ApplePass "+pass.AuthenticationToken, `{"pushToken":"p9"}`).Code)

	accPath := "/admin/accounts/" + itoa(acc.ID)
	rec = s.admin(http.MethodPatch, accPath, `{"balance":"42.10"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Data []PushSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.Data, 1)
	assert.Equal(t, 1, updated.Data[0].Delivered)

	rec = s.admin(http.MethodPatch, accPath, `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.admin(http.MethodGet, "/admin/passes/lookup?barcode="+url.QueryEscape(pass.Barcode), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42.1")

	rec = s.admin(http.MethodGet, "/admin/passes/pass.demo/"+pass.SerialNumber+"/"+pass.AuthenticationToken+"/owner", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.admin(http.MethodGet, "/admin/passes/pass.demo/"+pass.SerialNumber+"/wrong/owner", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.admin(http.MethodGet, accPath+"/pass.pkpass", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pkpass.ContentType, rec.Header().Get("Content-Type"))

	rec = s.admin(http.MethodPost, "/admin/passes/"+itoa(pass.ID)+"/push", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.admin(http.MethodGet, "/admin/registrations", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev9")

	rec = s.admin(http.MethodDelete, accPath, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.admin(http.MethodGet, accPath, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.admin(http.MethodPost, "/admin/accounts", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.admin(http.MethodGet, "/admin/accounts/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.admin(http.MethodPost, "/admin/passes/77/push", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.admin(http.MethodGet, "/admin/passes/lookup?barcode=junk", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
