package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent represents a registered autonomous agent identified by an
// Ed25519 public key.
type Agent struct {
	ID        uuid.UUID `json:"id"`
	PublicKey string    `json:"public_key"`
	Name      string    `json:"name,omitempty"`
	Chain     string    `json:"chain,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
