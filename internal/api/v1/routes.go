// Package v1 provides the REST handlers for fleet control.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gaeaops/fleetkeeper/internal/fleet"
)

// defaultLogLimit is how many log lines the logs endpoint returns when no
// limit is given
const defaultLogLimit = 100

// LogProvider serves the tail of the process log.
type LogProvider interface {
	Tail(limit int) []string
}

// SuccessResponse is the envelope for successful responses
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorResponse is the envelope for failed responses
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// CountResponse reports how many accounts an operation affected
type CountResponse struct {
	Count int `json:"count"`
}

// SyncRequest is the body of the account sync endpoint
type SyncRequest struct {
	Accounts []*fleet.Account `json:"accounts"`
}

// Routes defines the routes for the fleet control API with dependency injection
type Routes struct {
	service fleet.Service
	logs    LogProvider
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc fleet.Service, logs LogProvider) *Routes {
	return &Routes{
		service: svc,
		logs:    logs,
	}
}

// Router creates a new router for the fleet control API
func Router(svc fleet.Service, logs LogProvider) http.Handler {
	routes := NewRoutes(svc, logs)

	r := chi.NewRouter()

	r.Get("/status", routes.getStatus)
	r.Get("/logs", routes.getLogs)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", routes.listAccounts)
		r.Post("/", routes.addAccount)
		r.Post("/sync", routes.syncAccounts)
		r.Delete("/{id}", routes.removeAccount)
	})

	r.Post("/start/{id}", routes.startAccount)
	r.Post("/stop/{id}", routes.stopAccount)
	r.Post("/start-all", routes.startAllAccounts)
	r.Post("/stop-all", routes.stopAllAccounts)

	return r
}

// getStatus handles GET /status
func (rr *Routes) getStatus(w http.ResponseWriter, _ *http.Request) {
	rr.writeJSONResponse(w, rr.service.GetSnapshot())
}

// listAccounts handles GET /accounts
func (rr *Routes) listAccounts(w http.ResponseWriter, _ *http.Request) {
	rr.writeJSONResponse(w, rr.service.GetSnapshot().Accounts)
}

// addAccount handles POST /accounts
func (rr *Routes) addAccount(w http.ResponseWriter, r *http.Request) {
	var acct fleet.Account
	if err := json.NewDecoder(r.Body).Decode(&acct); err != nil {
		rr.writeErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := rr.service.AddAccount(&acct); err != nil {
		if errors.Is(err, fleet.ErrInvalidAccount) {
			rr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to add account", "error", err)
		rr.writeErrorResponse(w, "failed to add account", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, nil)
}

// syncAccounts handles POST /accounts/sync
func (rr *Routes) syncAccounts(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rr.writeErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Accounts == nil {
		rr.writeErrorResponse(w, "missing accounts", http.StatusBadRequest)
		return
	}

	count, err := rr.service.SyncAccounts(req.Accounts)
	if err != nil {
		if errors.Is(err, fleet.ErrInvalidAccount) {
			rr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to sync accounts", "error", err)
		rr.writeErrorResponse(w, "failed to sync accounts", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, CountResponse{Count: count})
}

// removeAccount handles DELETE /accounts/{id}
func (rr *Routes) removeAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !rr.service.RemoveAccount(id) {
		rr.writeErrorResponse(w, "account not found", http.StatusNotFound)
		return
	}
	rr.writeJSONResponse(w, nil)
}

// startAccount handles POST /start/{id}
func (rr *Routes) startAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !rr.service.StartAccount(id) {
		rr.writeErrorResponse(w, "account not found or already running", http.StatusConflict)
		return
	}
	rr.writeJSONResponse(w, nil)
}

// stopAccount handles POST /stop/{id}
func (rr *Routes) stopAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !rr.service.StopAccount(id) {
		rr.writeErrorResponse(w, "account not running", http.StatusConflict)
		return
	}
	rr.writeJSONResponse(w, nil)
}

// startAllAccounts handles POST /start-all
func (rr *Routes) startAllAccounts(w http.ResponseWriter, _ *http.Request) {
	rr.writeJSONResponse(w, CountResponse{Count: rr.service.StartAllAccounts()})
}

// stopAllAccounts handles POST /stop-all
func (rr *Routes) stopAllAccounts(w http.ResponseWriter, _ *http.Request) {
	rr.writeJSONResponse(w, CountResponse{Count: rr.service.StopAllAccounts()})
}

// getLogs handles GET /logs. Log reads are best-effort: an absent provider
// yields an empty list, never an error.
func (rr *Routes) getLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			rr.writeErrorResponse(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	lines := []string{}
	if rr.logs != nil {
		lines = rr.logs.Tail(limit)
	}
	rr.writeJSONResponse(w, lines)
}

// writeJSONResponse writes a success envelope
func (rr *Routes) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: data}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes an error envelope with the given status code
func (rr *Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: message}); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
