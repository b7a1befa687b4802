package models

import "time"

// TransactionStatus is the externally observable status of a submitted
// transaction. PENDING is set at submission; CONFIRMED and FAILED are
// terminal.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether no further status transition is valid.
func (s TransactionStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// TransactionRequest describes an intended value transfer before the
// lifecycle manager takes ownership of it.
type TransactionRequest struct {
	To       string `json:"to"`
	Value    string `json:"value,omitempty"`
	Data     string `json:"data,omitempty"`
	GasLimit string `json:"gas_limit,omitempty"`
	GasPrice string `json:"gas_price,omitempty"`
	Nonce    *int64 `json:"nonce,omitempty"`
}

// Transaction is a value transfer owned by the lifecycle manager.
// Once Signed is true the record is immutable except for Status.
type Transaction struct {
	ID        string            `json:"id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Value     string            `json:"value"`
	Data      string            `json:"data,omitempty"`
	GasLimit  string            `json:"gas_limit,omitempty"`
	GasPrice  string            `json:"gas_price,omitempty"`
	Nonce     *int64            `json:"nonce,omitempty"`
	Chain     string            `json:"chain"`
	Signed    bool              `json:"signed"`
	Signature string            `json:"signature,omitempty"`
	Hash      string            `json:"hash,omitempty"`
	Status    TransactionStatus `json:"status,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TransactionResponse is the read-only projection a counterparty
// observes after submission.
type TransactionResponse struct {
	Hash        string            `json:"hash"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	Value       string            `json:"value"`
	Status      TransactionStatus `json:"status"`
	BlockNumber *int64            `json:"block_number,omitempty"`
	Timestamp   int64             `json:"ts,omitempty"`
}
