package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AgenticDao/CryptoA2A/internal/models"
)

// ErrStatusConflict is returned when a status update would regress a
// terminal transaction status. Guarded in SQL so concurrent writers
// cannot race past it.
var ErrStatusConflict = errors.New("store: transaction status is terminal")

// ErrTransactionNotFound is returned when a status update targets an id
// with no stored transaction.
var ErrTransactionNotFound = errors.New("store: transaction not found")

// DataStore defines the interface for persistent storage of agents and
// transactions. Both PostgresStore and SQLiteStore implement this
// interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Agent operations
	CreateAgent(ctx context.Context, publicKey, name, chain, address string) (*models.Agent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	GetAgentByPublicKey(ctx context.Context, publicKey string) (*models.Agent, error)
	CountAgents(ctx context.Context) (int64, error)

	// Transaction operations
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByHash(ctx context.Context, hash string) (*models.Transaction, error)
	ListTransactionsByAgent(ctx context.Context, from string, limit int) ([]models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) error
}
