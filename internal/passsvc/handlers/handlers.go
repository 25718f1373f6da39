package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/avvvet/pass-services/internal/devicelog"
	"github.com/avvvet/pass-services/internal/passsvc/service"
	"github.com/go-chi/jwtauth"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	engine        *service.Engine
	accounts      *service.AccountService
	passes        *service.PassService
	notifier      *service.NotificationService
	registrations *service.RegistrationService
	deviceLog     devicelog.Sink
	deviceLogTTL  time.Duration
	port          string

	tokenAuth *jwtauth.JWTAuth
	validate  *validator.Validate
	now       func() time.Time
}

// Services bundles what the handlers call into.
type Services struct {
	Engine        *service.Engine
	Accounts      *service.AccountService
	Passes        *service.PassService
	Notifier      *service.NotificationService
	Registrations *service.RegistrationService
	DeviceLog     devicelog.Sink
	DeviceLogTTL  time.Duration
	Port          string
}

func NewHandler(s Services) *Handler {
	return &Handler{
		engine:        s.Engine,
		accounts:      s.Accounts,
		passes:        s.Passes,
		notifier:      s.Notifier,
		registrations: s.Registrations,
		deviceLog:     s.DeviceLog,
		deviceLogTTL:  s.DeviceLogTTL,
		port:          s.Port,
		validate:      validator.New(),
		now:           time.Now,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (rs *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "pass service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// statusFor maps service errors to HTTP status codes. Anything not listed
// is a server error.
func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// logFailure records errors that end up as a 500.
func logFailure(fields log.Fields, err error) {
	var serr *service.SigningError
	if errors.As(err, &serr) {
		log.WithFields(fields).Errorf("signing failed: %v", serr.Err)
		return
	}
	log.WithFields(fields).Errorf("request failed: %v", err)
}

// fail writes an error response for the admin API using the JSON envelope.
func (h *Handler) fail(w http.ResponseWriter, operation string, err error) {
	code := statusFor(err)
	msg := http.StatusText(code)
	if code == http.StatusInternalServerError {
		logFailure(log.Fields{"operation": operation}, err)
	} else {
		msg = err.Error()
	}
	h.CreateResponse(w, Response{Message: operation, Code: code, Error: msg})
}
