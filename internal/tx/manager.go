// Package tx owns the transaction lifecycle state machine:
// created -> signed -> submitted -> {confirmed, failed}. Signing,
// broadcasting and status queries are delegated to collaborator
// capabilities; the manager's own job is guarding transitions and
// keeping observed status monotonic.
package tx

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AgenticDao/CryptoA2A/internal/crypto"
	"github.com/AgenticDao/CryptoA2A/internal/models"
	"github.com/AgenticDao/CryptoA2A/internal/wallet"
)

// BroadcastResult is what a broadcaster returns on acceptance. The
// manager never fabricates a hash; it always comes from here.
type BroadcastResult struct {
	Hash       string
	AcceptedAt time.Time
}

// Broadcaster submits a signed transaction to a ledger.
type Broadcaster interface {
	Submit(ctx context.Context, tx *models.Transaction) (BroadcastResult, error)
}

// StatusQuery reports the ledger's raw status vocabulary for a hash.
type StatusQuery interface {
	GetStatus(ctx context.Context, hash string) (string, error)
}

// Manager creates transactions and drives them through the lifecycle.
// It memoizes the last known status per hash so terminal states can
// never regress.
type Manager struct {
	chain string

	mu       sync.Mutex
	statuses map[string]models.TransactionStatus
	// poisoned marks hashes whose collaborator reported a regression;
	// further polls for them fail immediately.
	poisoned map[string]bool
}

// NewManager creates a manager for the given chain. An empty chain
// defaults to ethereum.
func NewManager(chain string) *Manager {
	if chain == "" {
		chain = crypto.ChainEthereum
	}
	return &Manager{
		chain:    chain,
		statuses: make(map[string]models.TransactionStatus),
		poisoned: make(map[string]bool),
	}
}

// Create validates the request and returns a fresh transaction in the
// created state. Status stays empty until submission.
func (m *Manager) Create(req models.TransactionRequest, fromAgent string) (*models.Transaction, error) {
	if !crypto.VerifyAddress(req.To, m.chain) {
		return nil, newError(CodeInvalidRequest, "destination address is not valid for chain "+m.chain, nil)
	}
	value := req.Value
	if value == "" {
		value = "0"
	}
	return &models.Transaction{
		ID:        crypto.NewUUIDv7().String(),
		From:      fromAgent,
		To:        req.To,
		Value:     value,
		Data:      req.Data,
		GasLimit:  req.GasLimit,
		GasPrice:  req.GasPrice,
		Nonce:     req.Nonce,
		Chain:     m.chain,
		CreatedAt: time.Now(),
	}, nil
}

// Sign delegates to the signer capability and attaches the returned
// signature. A disconnected signer is a hard precondition failure; the
// transaction is left unchanged on any error.
func (m *Manager) Sign(ctx context.Context, transaction *models.Transaction, signer wallet.Provider) (*models.Transaction, error) {
	if transaction.Signed {
		return nil, newError(CodeAlreadySigned, "transaction is already signed", nil)
	}
	if signer == nil || !signer.IsConnected() {
		return nil, newError(CodeSigningUnavailable, "signer capability is not connected", nil)
	}
	signature, err := signer.SignTransaction(ctx, transaction)
	if err != nil {
		return nil, newError(CodeSigningUnavailable, "delegated signing failed", err)
	}
	signed := *transaction
	signed.Signed = true
	signed.Signature = signature
	return &signed, nil
}

// Submit delegates to the broadcaster, records the returned hash, and
// moves the transaction to the externally observable pending state.
func (m *Manager) Submit(ctx context.Context, signedTx *models.Transaction, broadcaster Broadcaster) (*models.TransactionResponse, error) {
	if !signedTx.Signed {
		return nil, newError(CodeNotSigned, "transaction must be signed before submission", nil)
	}
	result, err := broadcaster.Submit(ctx, signedTx)
	if err != nil {
		return nil, err
	}

	signedTx.Hash = result.Hash
	signedTx.Status = models.StatusPending

	m.mu.Lock()
	m.statuses[result.Hash] = models.StatusPending
	m.mu.Unlock()

	return &models.TransactionResponse{
		Hash:      result.Hash,
		From:      signedTx.From,
		To:        signedTx.To,
		Value:     signedTx.Value,
		Status:    models.StatusPending,
		Timestamp: result.AcceptedAt.UnixMilli(),
	}, nil
}

// PollStatus asks the status-query collaborator for the transaction's
// raw status and maps it onto the protocol vocabulary. Once a terminal
// state was observed, a collaborator reporting anything else is an
// INCONSISTENT_STATE failure and the hash is no longer trusted.
func (m *Manager) PollStatus(ctx context.Context, hash string, query StatusQuery) (models.TransactionStatus, error) {
	m.mu.Lock()
	if m.poisoned[hash] {
		m.mu.Unlock()
		return "", newError(CodeInconsistentState, "status tracking for "+hash+" was invalidated by a prior regression", nil)
	}
	m.mu.Unlock()

	raw, err := query.GetStatus(ctx, hash)
	if err != nil {
		return "", err
	}
	status, ok := MapRawStatus(raw)
	if !ok {
		return "", newError(CodeUnknownStatus, "collaborator reported unknown status "+raw, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-read under the lock: an overlapping poll may have memoized a
	// terminal state while the collaborator call was in flight.
	if m.poisoned[hash] {
		return "", newError(CodeInconsistentState, "status tracking for "+hash+" was invalidated by a prior regression", nil)
	}
	known := m.statuses[hash]
	if known.Terminal() && status != known {
		m.poisoned[hash] = true
		return "", newError(CodeInconsistentState, "collaborator reported "+string(status)+" after terminal "+string(known), nil)
	}
	m.statuses[hash] = status
	return status, nil
}

// LastKnownStatus returns the memoized status for a hash, if any.
func (m *Manager) LastKnownStatus(hash string) (models.TransactionStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[hash]
	return s, ok
}

// MapRawStatus maps a collaborator's free-form status vocabulary onto
// the protocol's three states.
func MapRawStatus(raw string) (models.TransactionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "submitted", "queued", "included", "in_mempool":
		return models.StatusPending, true
	case "confirmed", "success", "finalized", "mined":
		return models.StatusConfirmed, true
	case "failed", "reverted", "dropped", "rejected":
		return models.StatusFailed, true
	default:
		return "", false
	}
}
