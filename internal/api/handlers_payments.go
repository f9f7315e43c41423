package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

func (a *API) handleCaptureOffline(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req struct {
		BillID        string `json:"billId"`
		AmountCents   int64  `json:"amountCents"`
		PaymentMethod string `json:"paymentMethod"`
		DeviceID      string `json:"deviceId"`
		CapturedAt    int64  `json:"capturedAt"`
		Note          string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := uuid.Parse(req.BillID); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "billId must be a UUID")
		return
	}

	op, err := a.reconciler.Capture(r.Context(), actor, ledger.CaptureParams{
		BillID:        req.BillID,
		AmountCents:   req.AmountCents,
		PaymentMethod: req.PaymentMethod,
		DeviceID:      req.DeviceID,
		CapturedAt:    req.CapturedAt,
		Note:          req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

func (a *API) handleListOffline(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	ops, err := a.reconciler.List(r.Context(), ledger.OfflinePaymentFilter{
		BillID:     r.URL.Query().Get("billId"),
		SyncStatus: models.SyncStatus(r.URL.Query().Get("syncStatus")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if ops == nil {
		ops = []*models.OfflinePayment{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (a *API) handleListPendingSync(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	ops, err := a.reconciler.List(r.Context(), ledger.OfflinePaymentFilter{
		BillID:     r.URL.Query().Get("billId"),
		SyncStatus: models.SyncPending,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if ops == nil {
		ops = []*models.OfflinePayment{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req struct {
		TransactionID string `json:"transactionId"`
		Receipt       string `json:"receipt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, payment, err := a.reconciler.Sync(r.Context(), actor, mux.Vars(r)["id"], req.TransactionID, req.Receipt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"offlinePayment": op,
		"payment":        payment,
	})
}

func (a *API) handleSyncFailed(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req struct {
		FailureReason string `json:"failureReason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, err := a.reconciler.MarkSyncFailed(r.Context(), actor, mux.Vars(r)["id"], req.FailureReason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (a *API) handleRetrySync(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	op, err := a.reconciler.RetrySync(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}
