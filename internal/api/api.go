// Package api exposes the ledger over REST.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/roomledger/roomledger/internal/auth"
	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/metrics"
)

// API wires the HTTP surface to the ledger services.
type API struct {
	router     *mux.Router
	store      ledger.Store
	transfers  *ledger.TransferService
	reconciler *ledger.Reconciler
	authn      *auth.PasswordAuthenticator
	jwt        *auth.JWTManager
	metrics    *metrics.Metrics
}

// New builds the router. The metrics handle may be nil.
func New(
	store ledger.Store,
	transfers *ledger.TransferService,
	reconciler *ledger.Reconciler,
	authn *auth.PasswordAuthenticator,
	jwtManager *auth.JWTManager,
	m *metrics.Metrics,
) *API {
	api := &API{
		router:     mux.NewRouter(),
		store:      store,
		transfers:  transfers,
		reconciler: reconciler,
		authn:      authn,
		jwt:        jwtManager,
		metrics:    m,
	}
	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Registered with Use so mux.CurrentRoute can resolve the route
	// template for the metric label.
	a.router.Use(a.metricsMiddleware)

	// Unauthenticated endpoints
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	a.router.HandleFunc("/auth/register", a.handleRegister).Methods("POST")
	a.router.HandleFunc("/auth/login", a.handleLogin).Methods("POST")

	// Everything below requires a valid bearer token
	protected := a.router.NewRoute().Subrouter()
	protected.Use(a.authMiddleware)

	// Payment transfers
	protected.HandleFunc("/payment-transfers", a.handleCreateTransfer).Methods("POST")
	protected.HandleFunc("/payment-transfers", a.handleListTransfers).Methods("GET")
	protected.HandleFunc("/payment-transfers/{id}", a.handleGetTransfer).Methods("GET")
	protected.HandleFunc("/payment-transfers/{id}/confirm", a.handleConfirmTransfer).Methods("POST")
	protected.HandleFunc("/payment-transfers/{id}/cancel", a.handleCancelTransfer).Methods("POST")

	// Offline payments and reconciliation
	protected.HandleFunc("/payments/offline", a.handleCaptureOffline).Methods("POST")
	protected.HandleFunc("/payments/offline", a.handleListOffline).Methods("GET")
	protected.HandleFunc("/payments/offline/pending-sync", a.handleListPendingSync).Methods("GET")
	protected.HandleFunc("/payments/{id}/sync", a.handleSync).Methods("POST")
	protected.HandleFunc("/payments/{id}/sync-failed", a.handleSyncFailed).Methods("PATCH")
	protected.HandleFunc("/payments/{id}/retry-sync", a.handleRetrySync).Methods("POST")

	// Rooms and bills
	protected.HandleFunc("/rooms", a.handleCreateRoom).Methods("POST")
	protected.HandleFunc("/rooms/{id}/members", a.handleAddRoomMembers).Methods("POST")
	protected.HandleFunc("/bills", a.handleCreateBill).Methods("POST")
	protected.HandleFunc("/bills/{id}", a.handleGetBill).Methods("GET")
	protected.HandleFunc("/bills/{id}/close", a.handleCloseBill).Methods("POST")
	protected.HandleFunc("/bills/{id}/covered", a.handleBillCovered).Methods("GET")
	protected.HandleFunc("/bills/{id}/split-suggestion", a.handleSplitSuggestion).Methods("GET")
}

// Handler returns the fully wrapped HTTP handler.
func (a *API) Handler() http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.loggingMiddleware(a.router))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
