package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/health", h.HealthHandler)

	// wallet devices
	r.Route("/v1", func(r chi.Router) {
		r.Post("/devices/{deviceID}/registrations/{passTypeID}/{serialNumber}", h.RegisterDevice)
		r.Get("/devices/{deviceID}/registrations/{passTypeID}", h.ListUpdatable)
		r.Delete("/devices/{deviceID}/registrations/{passTypeID}/{serialNumber}", h.UnregisterDevice)
		r.Get("/passes/{passTypeID}/{serialNumber}", h.FetchPass)
		r.Post("/log", h.DeviceLog)
	})

	// Secure routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(jwtauth.Authenticator)

		r.Get("/accounts", h.ListAccounts)
		r.Post("/accounts", h.CreateAccount)
		r.Get("/accounts/{id}", h.GetAccount)
		r.Patch("/accounts/{id}", h.UpdateAccount)
		r.Delete("/accounts/{id}", h.DeleteAccount)
		r.Get("/accounts/{id}/pass.pkpass", h.DownloadPass)

		r.Get("/passes", h.ListPasses)
		r.Get("/passes/lookup", h.LookupBarcode)
		r.Post("/passes/{id}/push", h.PushPass)
		r.Get("/passes/{passTypeID}/{serialNumber}/{token}/owner", h.PassOwner)

		r.Get("/registrations", h.ListRegistrations)
	})
}

func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": "passctl",
		"exp":        expirationTime,
	})

	log.Debugf("DEBUG: admin JWT for testing expires soon : %s", tokenString)
}
