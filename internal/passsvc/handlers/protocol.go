package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/avvvet/pass-services/internal/passsvc/service"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

const authScheme = "ApplePass "

type registerRequest struct {
	PushToken string `json:"pushToken" validate:"required"`
}

// passToken returns the token of an "ApplePass <token>" header as sent.
func passToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), authScheme)
	if !ok {
		return ""
	}
	return token
}

// protocolError answers a device request. The body is never more than the
// status text so an authorization failure says nothing about the pass.
func protocolError(w http.ResponseWriter, fields log.Fields, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logFailure(fields, err)
	}
	http.Error(w, http.StatusText(code), code)
}

func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	passTypeID := chi.URLParam(r, "passTypeID")
	serialNumber := chi.URLParam(r, "serialNumber")
	fields := log.Fields{"operation": "register", "device_id": deviceID, "serial_number": serialNumber}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "pushToken is required", http.StatusBadRequest)
		return
	}

	result, err := h.engine.RegisterDevice(r.Context(), deviceID, passTypeID, serialNumber, req.PushToken, passToken(r))
	if err != nil {
		protocolError(w, fields, err)
		return
	}

	if result == service.Registered {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ListUpdatable(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	passTypeID := chi.URLParam(r, "passTypeID")
	fields := log.Fields{"operation": "list-updatable", "device_id": deviceID, "pass_type_id": passTypeID}

	updates, err := h.engine.ListUpdatable(r.Context(), deviceID, passTypeID, r.URL.Query().Get("passesUpdatedSince"))
	if err != nil {
		protocolError(w, fields, err)
		return
	}
	if updates == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updates)
}

func (h *Handler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	passTypeID := chi.URLParam(r, "passTypeID")
	serialNumber := chi.URLParam(r, "serialNumber")
	fields := log.Fields{"operation": "unregister", "device_id": deviceID, "serial_number": serialNumber}

	if err := h.engine.UnregisterDevice(r.Context(), deviceID, passTypeID, serialNumber, passToken(r)); err != nil {
		protocolError(w, fields, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) FetchPass(w http.ResponseWriter, r *http.Request) {
	passTypeID := chi.URLParam(r, "passTypeID")
	serialNumber := chi.URLParam(r, "serialNumber")
	fields := log.Fields{"operation": "fetch-pass", "serial_number": serialNumber, "pass_type_id": passTypeID}

	artifact, err := h.engine.FetchPass(r.Context(), passTypeID, serialNumber, passToken(r))
	if err != nil {
		protocolError(w, fields, err)
		return
	}

	w.Header().Set("Content-Type", pkpass.ContentType)
	w.Header().Set("Last-Modified", h.now().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact)
}
