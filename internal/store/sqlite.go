package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/AgenticDao/CryptoA2A/internal/crypto"
	"github.com/AgenticDao/CryptoA2A/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the
// development-mode DataStore; production runs Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/a2a.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/a2a.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		public_key TEXT UNIQUE NOT NULL,
		name TEXT DEFAULT '',
		chain TEXT DEFAULT '',
		address TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		from_agent TEXT NOT NULL,
		to_address TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '0',
		data TEXT DEFAULT '',
		chain TEXT NOT NULL,
		signed INTEGER NOT NULL DEFAULT 0,
		signature TEXT DEFAULT '',
		hash TEXT DEFAULT '',
		status TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_agent, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_hash ON transactions(hash);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAgent creates a new agent record.
func (s *SQLiteStore) CreateAgent(ctx context.Context, publicKey, name, chain, address string) (*models.Agent, error) {
	id := crypto.NewUUIDv7()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, public_key, name, chain, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id.String(), publicKey, name, chain, address, now, now)
	if err != nil {
		return nil, err
	}
	return &models.Agent{
		ID:        id,
		PublicKey: publicKey,
		Name:      name,
		Chain:     chain,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetAgentByID retrieves an agent by ID.
func (s *SQLiteStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT id, public_key, name, chain, address, created_at, updated_at
		FROM agents WHERE id = ?
	`, id.String()))
}

// GetAgentByPublicKey retrieves an agent by public key.
func (s *SQLiteStore) GetAgentByPublicKey(ctx context.Context, publicKey string) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT id, public_key, name, chain, address, created_at, updated_at
		FROM agents WHERE public_key = ?
	`, publicKey))
}

func (s *SQLiteStore) scanAgent(row *sql.Row) (*models.Agent, error) {
	agent := &models.Agent{}
	var idStr string
	err := row.Scan(&idStr, &agent.PublicKey, &agent.Name, &agent.Chain, &agent.Address, &agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	agent.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// CountAgents returns the total number of registered agents.
func (s *SQLiteStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// SaveTransaction inserts or updates a transaction record.
func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET signed = excluded.signed,
		    signature = excluded.signature,
		    hash = excluded.hash,
		    status = excluded.status
	`, tx.ID, tx.From, tx.To, tx.Value, tx.Data, tx.Chain, tx.Signed, tx.Signature, tx.Hash, string(tx.Status), tx.CreatedAt)
	return err
}

// GetTransaction retrieves a transaction by ID.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at
		FROM transactions WHERE id = ?
	`, id))
}

// GetTransactionByHash retrieves a transaction by its ledger hash.
func (s *SQLiteStore) GetTransactionByHash(ctx context.Context, hash string) (*models.Transaction, error) {
	return s.scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at
		FROM transactions WHERE hash = ?
	`, hash))
}

func (s *SQLiteStore) scanTransaction(row *sql.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var status string
	err := row.Scan(
		&tx.ID, &tx.From, &tx.To, &tx.Value, &tx.Data, &tx.Chain,
		&tx.Signed, &tx.Signature, &tx.Hash, &status, &tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	tx.Status = models.TransactionStatus(status)
	return tx, nil
}

// ListTransactionsByAgent returns the most recent transactions created
// by an agent.
func (s *SQLiteStore) ListTransactionsByAgent(ctx context.Context, from string, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_agent, to_address, value, data, chain, signed, signature, hash, status, created_at
		FROM transactions
		WHERE from_agent = ?
		ORDER BY created_at DESC
		LIMIT ?
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

// UpdateTransactionStatus sets a transaction's status with the same
// terminal-state guard as the Postgres store.
func (s *SQLiteStore) UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?
		WHERE id = ? AND (status NOT IN ('confirmed', 'failed') OR status = ?)
	`, string(status), id, string(status))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM transactions WHERE id = ?)
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
