/*
handlers.go - HTTP API handlers for accounts and transactions

PURPOSE:
  Exposes the banking services via REST. Handles HTTP request/response
  and JSON serialization; every business rule lives in package banking.

ENDPOINTS:
  Accounts:
    POST   /1.0/accounts/account               Create account (body: IBAN)
    GET    /1.0/accounts/account/{iban}        Check account exists (true/false)
    GET    /1.0/accounts/account/{iban}/balance Current balance (integer minor units)
    PUT    /1.0/accounts/account/{iban}/balance Overwrite balance (body: 10050 or "100.50")

  Transactions:
    POST   /1.0/transactions/transaction       Post a transaction
    POST   /1.0/transactions/query             Paginated history
    POST   /1.0/transactions/status            Status by channel

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown account
  - 409: Duplicate reference or IBAN
  - 422: Business rule rejection (fee > amount, balance below 0)
  - 500: Internal errors

  An unknown reference on /status is not an error: 200 with status INVALID.
  /health answers 503 when the store does not respond to Ping.

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: jwttoken cookie check
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mybank/corebusiness/banking"
)

// maxBodyBytes bounds request bodies; every payload here is tiny.
const maxBodyBytes = 1 << 20

const healthTimeout = 2 * time.Second

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *banking.Service
	Logger  *slog.Logger
	Pinger  Pinger // optional, checked by /health
}

// NewHandler creates a new handler over the given services.
func NewHandler(svc *banking.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Logger: logger}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount registers a new account with balance 0.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	iban := decodeIban(body)
	if err := h.Service.Accounts.CreateAccount(r.Context(), iban); err != nil {
		h.writeServiceError(w, r, "Bank account NOT created", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateAccountRequest{Iban: banking.NormalizeIban(iban)})
}

// CheckAccount returns true if the account exists.
func (h *Handler) CheckAccount(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Service.Accounts.CheckAccount(r.Context(), chi.URLParam(r, "iban"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to check account", err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// GetBalance returns the account balance as a bare integer in minor units.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Service.Accounts.GetBalance(r.Context(), chi.URLParam(r, "iban"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// SetBalance overwrites the account balance. The body is an integer in
// minor units (10050) or a decimal string in major units ("100.50").
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	balance, err := decodeAmount(raw)
	if err != nil {
		if banking.IsValidation(err) {
			h.writeServiceError(w, r, "Invalid balance", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body (expected integer minor units or decimal string)", err)
		return
	}
	if err := h.Service.Accounts.SetBalance(r.Context(), chi.URLParam(r, "iban"), balance); err != nil {
		h.writeServiceError(w, r, "Balance not updated", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// CreateTransaction posts a transaction and returns its reference.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx banking.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ref, err := h.Service.Transactions.CreateTransaction(r.Context(), tx)
	if err != nil {
		h.writeServiceError(w, r, "Invalid transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateTransactionResponse{Reference: ref})
}

// QueryTransactions returns one page of an account's transactions.
func (h *Handler) QueryTransactions(w http.ResponseWriter, r *http.Request) {
	var q banking.TransactionQuery
	if err := decodeJSON(w, r, &q); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	txs, err := h.Service.Query.QueryTransactions(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, "Invalid request", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// GetTransactionStatus classifies a transaction for the requesting channel.
func (h *Handler) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req banking.StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.Service.Status.GetStatus(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "Invalid status request", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(resp))
}

// Health reports liveness, and store reachability when a Pinger is set.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.Pinger.Ping(ctx); err != nil {
			h.Logger.Warn("health check failed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// decodeAmount accepts a JSON integer (minor units) or a JSON string
// holding a decimal in major units.
func decodeAmount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return banking.ParseMajorUnits(s)
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// decodeIban accepts {"iban": "..."}, a JSON string, or the raw IBAN text.
func decodeIban(body []byte) string {
	body = bytes.TrimSpace(body)
	var req CreateAccountRequest
	if err := json.Unmarshal(body, &req); err == nil {
		return req.Iban
	}
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(body))
}

// writeServiceError maps banking error categories to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case banking.IsValidation(err):
		writeCodedError(w, http.StatusBadRequest, "validation", message, err)
	case banking.IsNotFound(err):
		writeCodedError(w, http.StatusNotFound, "not_found", message, err)
	case banking.IsConflict(err):
		writeCodedError(w, http.StatusConflict, "conflict", message, err)
	case banking.IsRejected(err):
		writeCodedError(w, http.StatusUnprocessableEntity, "rejected", message, err)
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// client went away; nothing useful to send
		return
	default:
		h.Logger.Error(message,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		writeCodedError(w, http.StatusInternalServerError, "internal", message, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeCodedError(w, status, "", message, err)
}

func writeCodedError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
