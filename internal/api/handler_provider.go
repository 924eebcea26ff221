package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultclub/vault-api/internal/repos/memberships"
	"github.com/vaultclub/vault-api/internal/repos/subclubs"
	"github.com/vaultclub/vault-api/internal/repos/vaultstates"
	"github.com/vaultclub/vault-api/internal/services/vault"
)

// VaultService is the slice of the vault service the handlers need.
type VaultService interface {
	Create(ctx context.Context, userID uuid.UUID, in vault.CreateInput) (vault.CreateResult, error)
	Join(ctx context.Context, userID, subclubID uuid.UUID) (vault.JoinResult, error)
	Deposit(ctx context.Context, userID, subclubID uuid.UUID, amount decimal.Decimal, idemKey string) (vault.DepositResult, error)
	Harvest(ctx context.Context, userID, subclubID uuid.UUID, idemKey string) (vault.HarvestResult, error)
	Balance(ctx context.Context, userID, subclubID uuid.UUID) (vault.BalanceResult, error)
}

// HandlerProvider wraps the vault service and exposes HTTP handlers.
type HandlerProvider struct {
	svc VaultService
}

func NewHandler(svc VaultService) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Empty request body")
			return false
		}

		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}

	return true
}

func parseSubclubID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: subclub_id")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid subclub_id")
		return uuid.Nil, false
	}

	return id, true
}

// mapVaultError converts domain errors to the status codes of the API
// contract; anything unrecognized is a 500 without internals leaking.
func mapVaultError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vault.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vault.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Amount must be positive")
	case errors.Is(err, memberships.ErrNotAMember):
		writeError(w, http.StatusForbidden, "User is not a member of this subclub")
	case errors.Is(err, memberships.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "User is already a member of this subclub")
	case errors.Is(err, subclubs.ErrSubClubNotFound):
		writeError(w, http.StatusNotFound, "Subclub not found")
	case errors.Is(err, vaultstates.ErrStateNotFound):
		writeError(w, http.StatusNotFound, "Vault state not found")
	default:
		slog.Error("vault operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// --- Handlers ---

type createRequest struct {
	Name       string `json:"name"`
	Rigor      string `json:"rigor"`
	LockMonths int    `json:"lock_months"`
}

// CreateHandler handles POST /vault-create.
func (h *HandlerProvider) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rigor, err := vault.ParseRigor(req.Rigor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rigor. Must be LIGHT, MEDIUM, or HEAVY")
		return
	}

	res, err := h.svc.Create(r.Context(), user.ID, vault.CreateInput{
		Name:       req.Name,
		Rigor:      rigor,
		LockMonths: req.LockMonths,
	})
	if err != nil {
		mapVaultError(w, err)
		return
	}

	writeData(w, res)
}

type joinRequest struct {
	SubclubID string `json:"subclub_id"`
}

// JoinHandler handles POST /vault-join.
func (h *HandlerProvider) JoinHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}

	subclubID, ok := parseSubclubID(w, req.SubclubID)
	if !ok {
		return
	}

	res, err := h.svc.Join(r.Context(), user.ID, subclubID)
	if err != nil {
		mapVaultError(w, err)
		return
	}

	writeData(w, res)
}

type depositRequest struct {
	SubclubID  string          `json:"subclub_id"`
	AmountUSDC decimal.Decimal `json:"amount_usdc"`
}

// DepositHandler handles POST /vault-deposit.
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}

	subclubID, ok := parseSubclubID(w, req.SubclubID)
	if !ok {
		return
	}

	idemKey := r.Header.Get("x-idempotency-key")

	res, err := h.svc.Deposit(r.Context(), user.ID, subclubID, req.AmountUSDC, idemKey)
	if err != nil {
		mapVaultError(w, err)
		return
	}

	writeData(w, res)
}

type harvestRequest struct {
	SubclubID string `json:"subclub_id"`
}

// HarvestHandler handles POST /vault-harvest.
func (h *HandlerProvider) HarvestHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	var req harvestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	subclubID, ok := parseSubclubID(w, req.SubclubID)
	if !ok {
		return
	}

	idemKey := r.Header.Get("x-idempotency-key")

	res, err := h.svc.Harvest(r.Context(), user.ID, subclubID, idemKey)
	if err != nil {
		mapVaultError(w, err)
		return
	}

	writeData(w, res)
}

// BalanceHandler handles GET /vault-balance?subclub_id=...
func (h *HandlerProvider) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	subclubID, ok := parseSubclubID(w, r.URL.Query().Get("subclub_id"))
	if !ok {
		return
	}

	res, err := h.svc.Balance(r.Context(), user.ID, subclubID)
	if err != nil {
		mapVaultError(w, err)
		return
	}

	writeData(w, res)
}
