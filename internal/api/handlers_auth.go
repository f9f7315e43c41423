package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roomledger/roomledger/internal/auth"
)

type authResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.DisplayName == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email and displayName are required")
		return
	}

	user, err := a.authn.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrEmailExists):
			writeErrorMessage(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("register failed", "error", err)
			writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	token, err := a.jwt.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErrorMessage(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	token, err := a.jwt.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
