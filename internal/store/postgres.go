package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AgenticDao/CryptoA2A/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateAgent creates a new agent record.
func (s *PostgresStore) CreateAgent(ctx context.Context, publicKey, name, chain, address string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO agents (public_key, name, chain, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, public_key, name, chain, address, created_at, updated_at
	`, publicKey, name, chain, address).Scan(
		&agent.ID,
		&agent.PublicKey,
		&agent.Name,
		&agent.Chain,
		&agent.Address,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// GetAgentByID retrieves an agent by ID.
func (s *PostgresStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, public_key, name, chain, address, created_at, updated_at
		FROM agents WHERE id = $1
	`, id).Scan(
		&agent.ID,
		&agent.PublicKey,
		&agent.Name,
		&agent.Chain,
		&agent.Address,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetAgentByPublicKey retrieves an agent by public key.
func (s *PostgresStore) GetAgentByPublicKey(ctx context.Context, publicKey string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, public_key, name, chain, address, created_at, updated_at
		FROM agents WHERE public_key = $1
	`, publicKey).Scan(
		&agent.ID,
		&agent.PublicKey,
		&agent.Name,
		&agent.Chain,
		&agent.Address,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// CountAgents returns the total number of registered agents.
func (s *PostgresStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// SaveTransaction inserts or updates a transaction record.
func (s *PostgresStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET signed = EXCLUDED.signed,
		    signature = EXCLUDED.signature,
		    hash = EXCLUDED.hash,
		    status = EXCLUDED.status
	`, tx.ID, tx.From, tx.To, tx.Value, tx.Data, tx.Chain, tx.Signed, tx.Signature, tx.Hash, string(tx.Status), tx.CreatedAt)
	return err
}

// GetTransaction retrieves a transaction by ID.
func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.scanTransaction(s.pool.QueryRow(ctx, `
		SELECT id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at
		FROM transactions WHERE id = $1
	`, id))
}

// GetTransactionByHash retrieves a transaction by its ledger hash.
func (s *PostgresStore) GetTransactionByHash(ctx context.Context, hash string) (*models.Transaction, error) {
	return s.scanTransaction(s.pool.QueryRow(ctx, `
		SELECT id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at
		FROM transactions WHERE hash = $1
	`, hash))
}

func (s *PostgresStore) scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var status string
	err := row.Scan(
		&tx.ID,
		&tx.From,
		&tx.To,
		&tx.Value,
		&tx.Data,
		&tx.Chain,
		&tx.Signed,
		&tx.Signature,
		&tx.Hash,
		&status,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	tx.Status = models.TransactionStatus(status)
	return tx, nil
}

// ListTransactionsByAgent returns the most recent transactions created
// by an agent.
func (s *PostgresStore) ListTransactionsByAgent(ctx context.Context, from string, limit int) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at
		FROM transactions
		WHERE from_agent = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx := models.Transaction{}
		var status string
		if err := rows.Scan(
			&tx.ID, &tx.From, &tx.To, &tx.Value, &tx.Data, &tx.Chain,
			&tx.Signed, &tx.Signature, &tx.Hash, &status, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		tx.Status = models.TransactionStatus(status)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// UpdateTransactionStatus sets a transaction's status. Terminal
// statuses are guarded in SQL: a row already confirmed or failed only
// accepts a no-op write of the same status.
func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET status = $2
		WHERE id = $1 AND (status NOT IN ('confirmed', 'failed') OR status = $2)
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)
		`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTransactionNotFound
		}
		return ErrStatusConflict
	}
	return nil
}
