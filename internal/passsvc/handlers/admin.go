package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/avvvet/pass-services/internal/passsvc/service"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

type createAccountRequest struct {
	Email   string          `json:"email" validate:"omitempty,email"`
	Name    string          `json:"name" validate:"required"`
	Balance decimal.Decimal `json:"balance"`
}

type updateAccountRequest struct {
	Email   *string          `json:"email" validate:"omitempty,email"`
	Name    *string          `json:"name" validate:"omitempty,min=1"`
	Balance *decimal.Decimal `json:"balance"`
}

// IssuedPass is the admin view of a pass, secrets included.
type IssuedPass struct {
	ID                  int64  `json:"id"`
	SerialNumber        string `json:"serial_number"`
	AuthenticationToken string `json:"authentication_token"`
	PassTypeID          string `json:"pass_type_id"`
	Barcode             string `json:"barcode"`
}

func issuedPass(p *models.Pass) IssuedPass {
	return IssuedPass{
		ID:                  p.ID,
		SerialNumber:        p.SerialNumber,
		AuthenticationToken: p.AuthenticationToken,
		PassTypeID:          p.PassTypeID,
		Barcode: pkpass.BarcodePayload{
			PassTypeID:          p.PassTypeID,
			SerialNumber:        p.SerialNumber,
			AuthenticationToken: p.AuthenticationToken,
		}.Encode(),
	}
}

// PushSummary reports one notification fan-out.
type PushSummary struct {
	PassID    int64    `json:"pass_id"`
	Attempted int      `json:"attempted"`
	Delivered int      `json:"delivered"`
	Failed    []string `json:"failed,omitempty"`
}

func pushSummary(r *service.NotifyReport) PushSummary {
	s := PushSummary{PassID: r.PassID, Attempted: r.Attempted, Delivered: r.Delivered}
	for _, f := range r.Failures {
		s.Failed = append(s.Failed, f.Token)
	}
	return s
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func (h *Handler) decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &service.ValidationError{Field: "body", Reason: "invalid request payload"}
	}
	if err := h.validate.Struct(v); err != nil {
		return &service.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, "list accounts", err)
		return
	}
	h.CreateResponse(w, Response{Message: "accounts", Code: http.StatusOK, Data: accounts})
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, "create account", err)
		return
	}

	account, pass, err := h.accounts.CreateAccount(r.Context(), req.Email, req.Name, req.Balance)
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	h.CreateResponse(w, Response{
		Message: "account created",
		Code:    http.StatusCreated,
		Data: map[string]interface{}{
			"account": account,
			"pass":    issuedPass(pass),
		},
	})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	h.CreateResponse(w, Response{Message: "account", Code: http.StatusOK, Data: account})
}

// UpdateAccount changes the account and pushes to every device holding one
// of its passes.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, "update account", err)
		return
	}
	var req updateAccountRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, "update account", err)
		return
	}

	reports, err := h.accounts.UpdateAccount(r.Context(), id, models.AccountUpdate{
		Email:   req.Email,
		Name:    req.Name,
		Balance: req.Balance,
	})
	if err != nil {
		h.fail(w, "update account", err)
		return
	}

	summaries := make([]PushSummary, 0, len(reports))
	for _, rep := range reports {
		summaries = append(summaries, pushSummary(rep))
	}
	h.CreateResponse(w, Response{Message: "account updated", Code: http.StatusOK, Data: summaries})
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, "delete account", err)
		return
	}
	if err := h.accounts.DeleteAccount(r.Context(), id); err != nil {
		h.fail(w, "delete account", err)
		return
	}
	h.CreateResponse(w, Response{Message: "account deleted", Code: http.StatusOK})
}

func (h *Handler) DownloadPass(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, "download pass", err)
		return
	}
	artifact, err := h.passes.MaterializeForAccount(r.Context(), id)
	if err != nil {
		h.fail(w, "download pass", err)
		return
	}

	w.Header().Set("Content-Type", pkpass.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=account-%d.pkpass", id))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact)
}

func (h *Handler) ListPasses(w http.ResponseWriter, r *http.Request) {
	passes, err := h.accounts.ListPasses(r.Context())
	if err != nil {
		h.fail(w, "list passes", err)
		return
	}
	out := make([]IssuedPass, 0, len(passes))
	for _, p := range passes {
		out = append(out, issuedPass(p))
	}
	h.CreateResponse(w, Response{Message: "passes", Code: http.StatusOK, Data: out})
}

func (h *Handler) PushPass(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, "push pass", err)
		return
	}
	report, err := h.notifier.Notify(r.Context(), id)
	if err != nil {
		h.fail(w, "push pass", err)
		return
	}
	h.CreateResponse(w, Response{Message: "push sent", Code: http.StatusOK, Data: pushSummary(report)})
}

func (h *Handler) LookupBarcode(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.OwnerForBarcode(r.Context(), r.URL.Query().Get("barcode"))
	if err != nil {
		h.fail(w, "lookup barcode", err)
		return
	}
	h.CreateResponse(w, Response{Message: "owner", Code: http.StatusOK, Data: account})
}

func (h *Handler) PassOwner(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.OwnerForPass(r.Context(),
		chi.URLParam(r, "passTypeID"),
		chi.URLParam(r, "serialNumber"),
		chi.URLParam(r, "token"),
	)
	if err != nil {
		h.fail(w, "pass owner", err)
		return
	}
	h.CreateResponse(w, Response{Message: "owner", Code: http.StatusOK, Data: account})
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.List(r.Context())
	if err != nil {
		h.fail(w, "list registrations", err)
		return
	}
	h.CreateResponse(w, Response{Message: "registrations", Code: http.StatusOK, Data: regs})
}
