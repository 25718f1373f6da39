package handlers

import (
	"io"
	"net/http"

	"github.com/avvvet/pass-services/internal/devicelog"
	log "github.com/sirupsen/logrus"
)

const maxDeviceLogBody = 64 << 10

// DeviceLog accepts diagnostics from devices. It always answers 200; a
// device has no way to act on a failure here.
func (h *Handler) DeviceLog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDeviceLogBody))
	if err != nil {
		log.Warnf("read device log body: %v", err)
	}

	entries := devicelog.NewEntries(devicelog.ParseMessages(body), r.RemoteAddr, h.now(), h.deviceLogTTL)
	if len(entries) > 0 && h.deviceLog != nil {
		if err := h.deviceLog.Record(r.Context(), entries); err != nil {
			log.Errorf("store %d device log entries: %v", len(entries), err)
		}
	}
	w.WriteHeader(http.StatusOK)
}
