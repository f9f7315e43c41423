package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roomledger/roomledger/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps a ledger error to its client-facing status. Expected
// kinds carry their message through (it names the current state, so
// clients can refresh instead of retrying blindly); anything else is an
// internal failure surfaced generically.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidArgument):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInvalidState):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInvariantViolation):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrBusy):
		writeErrorMessage(w, http.StatusServiceUnavailable, "ledger busy, retry with backoff")
	default:
		slog.Error("internal error", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
