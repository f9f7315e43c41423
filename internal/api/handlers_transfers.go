package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

func (a *API) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req struct {
		BillID       string `json:"billId"`
		TransferType string `json:"transferType"`
		AmountCents  int64  `json:"amountCents"`
		FromUserID   string `json:"fromUserId"`
		ToUserID     string `json:"toUserId"`
		Note         string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := uuid.Parse(req.BillID); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "billId must be a UUID")
		return
	}

	t, err := a.transfers.Create(r.Context(), actor, ledger.CreateTransferParams{
		BillID:      req.BillID,
		Type:        models.TransferType(req.TransferType),
		AmountCents: req.AmountCents,
		FromUserID:  req.FromUserID,
		ToUserID:    req.ToUserID,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) handleConfirmTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	t, err := a.transfers.Confirm(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	t, err := a.transfers.Cancel(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := a.transfers.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	billID := r.URL.Query().Get("billId")
	if billID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "billId query parameter is required")
		return
	}

	limit, offset := pagination(r)
	transfers, err := a.transfers.ListByBill(r.Context(), billID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if transfers == nil {
		transfers = []*models.PaymentTransfer{}
	}
	writeJSON(w, http.StatusOK, transfers)
}

// pagination reads limit/offset query parameters; unset or malformed
// values fall back to the store defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
