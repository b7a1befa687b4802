package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AgenticDao/CryptoA2A/internal/api/middleware"
	"github.com/AgenticDao/CryptoA2A/internal/metrics"
	"github.com/AgenticDao/CryptoA2A/internal/models"
	"github.com/AgenticDao/CryptoA2A/internal/store"
	"github.com/AgenticDao/CryptoA2A/internal/tx"
)

// CreateTransaction builds a transaction in the created state and
// persists it.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	transaction, err := h.manager.Create(req, agent.ID.String())
	if err != nil {
		if tx.IsCode(err, tx.CodeInvalidRequest) {
			h.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	if err := h.pg.SaveTransaction(r.Context(), transaction); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to persist transaction")
		return
	}

	metrics.TransactionsCreated.Inc()
	h.JSON(w, http.StatusCreated, transaction)
}

// SignTransaction signs a created transaction with the gateway wallet.
func (h *Handler) SignTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, ok := h.loadOwnTransaction(w, r)
	if !ok {
		return
	}

	signed, err := h.manager.Sign(r.Context(), transaction, h.signer)
	if err != nil {
		switch {
		case tx.IsCode(err, tx.CodeAlreadySigned):
			h.Error(w, http.StatusConflict, err.Error())
		case tx.IsCode(err, tx.CodeSigningUnavailable):
			h.Error(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.Error(w, http.StatusInternalServerError, "signing failed")
		}
		return
	}

	if err := h.pg.SaveTransaction(r.Context(), signed); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to persist transaction")
		return
	}

	h.JSON(w, http.StatusOK, signed)
}

// SubmitTransaction broadcasts a signed transaction and records the
// hash and pending status.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, ok := h.loadOwnTransaction(w, r)
	if !ok {
		return
	}

	resp, err := h.manager.Submit(r.Context(), transaction, h.broadcaster)
	if err != nil {
		if tx.IsCode(err, tx.CodeNotSigned) {
			h.Error(w, http.StatusConflict, err.Error())
			return
		}
		h.Error(w, http.StatusBadGateway, "broadcast failed")
		return
	}

	if err := h.pg.SaveTransaction(r.Context(), transaction); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to persist transaction")
		return
	}

	metrics.TransactionsSubmitted.Inc()
	h.JSON(w, http.StatusOK, resp)
}

// GetTransaction returns a transaction, refreshing a non-terminal
// status from the chain-status collaborator.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, ok := h.loadOwnTransaction(w, r)
	if !ok {
		return
	}

	if transaction.Hash != "" && !transaction.Status.Terminal() {
		status, err := h.manager.PollStatus(r.Context(), transaction.Hash, h.statusQuery)
		if err != nil {
			if tx.IsCode(err, tx.CodeInconsistentState) {
				metrics.TransactionStatusPolls.WithLabelValues("inconsistent").Inc()
				h.Error(w, http.StatusConflict, err.Error())
				return
			}
			// Status refresh is best effort; serve the stored record.
			metrics.TransactionStatusPolls.WithLabelValues("error").Inc()
		} else if status != transaction.Status {
			if err := h.pg.UpdateTransactionStatus(r.Context(), transaction.ID, status); err != nil && !errors.Is(err, store.ErrStatusConflict) {
				h.Error(w, http.StatusInternalServerError, "failed to persist status")
				return
			}
			transaction.Status = status
			metrics.TransactionStatusPolls.WithLabelValues(string(status)).Inc()
		} else {
			metrics.TransactionStatusPolls.WithLabelValues(string(status)).Inc()
		}
	}

	h.JSON(w, http.StatusOK, transaction)
}

// ListTransactions returns the authenticated agent's recent
// transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	txs, err := h.pg.ListTransactionsByAgent(r.Context(), agent.ID.String(), 50)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	h.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// loadOwnTransaction fetches the path transaction and enforces that it
// belongs to the authenticated agent.
func (h *Handler) loadOwnTransaction(w http.ResponseWriter, r *http.Request) (*models.Transaction, bool) {
	agent := middleware.AgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	transaction, err := h.pg.GetTransaction(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	if transaction == nil {
		h.Error(w, http.StatusNotFound, "transaction not found")
		return nil, false
	}
	if transaction.From != agent.ID.String() {
		h.Error(w, http.StatusForbidden, "transaction belongs to another agent")
		return nil, false
	}
	return transaction, true
}
