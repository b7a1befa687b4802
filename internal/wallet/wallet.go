// Package wallet defines the signer capability the protocol core
// delegates to, plus a factory for concrete providers. The core never
// touches key material directly; it asks a Provider to sign.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AgenticDao/CryptoA2A/internal/models"
)

var (
	// ErrNotConnected is the hard precondition failure for any signing
	// attempt against a disconnected wallet.
	ErrNotConnected = errors.New("wallet: not connected")

	// ErrUnsupportedProvider is returned by the factory for an unknown
	// provider kind.
	ErrUnsupportedProvider = errors.New("wallet: unsupported provider type")
)

// Provider is the capability interface a wallet collaborator exposes.
// New chain families are supported by implementing this interface and
// registering the kind with the factory, not by subclassing anything.
type Provider interface {
	GetAddress(ctx context.Context) (string, error)
	SignMessage(ctx context.Context, message []byte) (string, error)
	SignTransaction(ctx context.Context, tx *models.Transaction) (string, error)
	IsConnected() bool
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Config carries provider construction options.
type Config struct {
	Chain string
	// Seed is the base64 Ed25519 seed for the local provider. Empty
	// means generate a fresh keypair on Connect.
	Seed string
}

// NewProvider builds a provider for the given kind. Kind is matched
// case-insensitively.
func NewProvider(kind string, cfg Config) (Provider, error) {
	switch strings.ToLower(kind) {
	case "local", "ed25519":
		return NewLocalProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, kind)
	}
}
