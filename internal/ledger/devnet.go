// Package ledger provides development implementations of the
// broadcaster and status-query capabilities the lifecycle manager
// delegates to. Production deployments swap in a real chain client.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/AgenticDao/CryptoA2A/internal/models"
	"github.com/AgenticDao/CryptoA2A/internal/tx"
	"github.com/AgenticDao/CryptoA2A/internal/wallet"
)

// DevLedger is an in-memory ledger: it accepts any signed transaction,
// derives a deterministic hash from the canonical encoding, and
// confirms after a fixed delay. It implements both tx.Broadcaster and
// tx.StatusQuery.
type DevLedger struct {
	confirmAfter time.Duration

	mu       sync.Mutex
	accepted map[string]time.Time
}

// NewDevLedger creates a dev ledger that confirms transactions
// confirmAfter after acceptance. Zero means immediate confirmation.
func NewDevLedger(confirmAfter time.Duration) *DevLedger {
	return &DevLedger{
		confirmAfter: confirmAfter,
		accepted:     make(map[string]time.Time),
	}
}

// Submit accepts a signed transaction and returns its hash.
func (l *DevLedger) Submit(_ context.Context, transaction *models.Transaction) (tx.BroadcastResult, error) {
	sum := sha256.Sum256(wallet.CanonicalTxBytes(transaction))
	hash := "0x" + hex.EncodeToString(sum[:])

	now := time.Now()
	l.mu.Lock()
	if _, ok := l.accepted[hash]; !ok {
		l.accepted[hash] = now
	}
	l.mu.Unlock()

	return tx.BroadcastResult{Hash: hash, AcceptedAt: now}, nil
}

// GetStatus reports pending until the confirmation delay has elapsed.
// Unknown hashes are reported as dropped.
func (l *DevLedger) GetStatus(_ context.Context, hash string) (string, error) {
	l.mu.Lock()
	acceptedAt, ok := l.accepted[hash]
	l.mu.Unlock()

	if !ok {
		return "dropped", nil
	}
	if time.Since(acceptedAt) >= l.confirmAfter {
		return "confirmed", nil
	}
	return "pending", nil
}
