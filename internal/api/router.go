package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultclub/vault-api/internal/auth"
	"github.com/vaultclub/vault-api/internal/repos/accesslogs"
)

// RouterConfig carries the cross-cutting pieces the router wires around
// the vault handlers.
type RouterConfig struct {
	Service        VaultService
	Verifier       auth.Verifier
	ServiceAPIKey  string
	AllowedOrigins []string
	AccessLogs     accesslogs.AccessLogs
}

// NewRouter constructs the HTTP routing tree with all endpoints and
// middleware registered.
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewHandler(cfg.Service)
	r := chi.NewRouter()

	// Top level so preflight requests and 404/405 responses still carry
	// the CORS headers.
	r.Use(cors(cfg.AllowedOrigins))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(accessLog(cfg.AccessLogs))
		r.Use(requireAPIKey(cfg.ServiceAPIKey))
		r.Use(requireAuth(cfg.Verifier))

		r.Get("/vault-balance", h.BalanceHandler)
		r.Post("/vault-create", h.CreateHandler)
		r.Post("/vault-join", h.JoinHandler)

		// Mutations that replay on a repeated key.
		r.Group(func(r chi.Router) {
			r.Use(requireIdempotencyKey)

			r.Post("/vault-deposit", h.DepositHandler)
			r.Post("/vault-harvest", h.HarvestHandler)
		})
	})

	return r
}
