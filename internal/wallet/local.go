package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/AgenticDao/CryptoA2A/internal/crypto"
	"github.com/AgenticDao/CryptoA2A/internal/models"
)

// LocalProvider signs with an in-process Ed25519 key. It is the
// reference Provider implementation; hardware and remote wallets plug
// in behind the same interface.
type LocalProvider struct {
	mu        sync.Mutex
	chain     string
	seed      []byte
	priv      ed25519.PrivateKey
	pub       ed25519.PublicKey
	connected bool
}

// NewLocalProvider creates a local provider. The key is not loaded
// until Connect.
func NewLocalProvider(cfg Config) (*LocalProvider, error) {
	p := &LocalProvider{chain: cfg.Chain}
	if p.chain == "" {
		p.chain = crypto.ChainEthereum
	}
	if cfg.Seed != "" {
		seed, err := base64.StdEncoding.DecodeString(cfg.Seed)
		if err != nil {
			return nil, err
		}
		if len(seed) != ed25519.SeedSize {
			return nil, crypto.ErrInvalidPublicKey
		}
		p.seed = seed
	}
	return p, nil
}

// Connect loads or generates the keypair and marks the wallet usable.
func (p *LocalProvider) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}
	if p.seed != nil {
		p.priv = ed25519.NewKeyFromSeed(p.seed)
	} else {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		p.priv = priv
	}
	p.pub = p.priv.Public().(ed25519.PublicKey)
	p.connected = true
	return nil
}

// Disconnect drops the key material.
func (p *LocalProvider) Disconnect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	p.priv = nil
	p.pub = nil
	return nil
}

// IsConnected reports whether the wallet can sign.
func (p *LocalProvider) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// PublicKey returns the base64-encoded Ed25519 public key, or "" when
// disconnected.
func (p *LocalProvider) PublicKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ""
	}
	return base64.StdEncoding.EncodeToString(p.pub)
}

// GetAddress derives the chain address for the wallet key. For the
// ethereum family this is 0x plus the last 20 bytes of the key digest.
func (p *LocalProvider) GetAddress(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return "", ErrNotConnected
	}
	digest := sha256.Sum256(p.pub)
	return "0x" + hex.EncodeToString(digest[len(digest)-20:]), nil
}

// SignMessage signs arbitrary bytes and returns the base64 signature.
func (p *LocalProvider) SignMessage(_ context.Context, message []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return "", ErrNotConnected
	}
	sig := ed25519.Sign(p.priv, message)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignTransaction signs the canonical encoding of the transaction's
// immutable fields.
func (p *LocalProvider) SignTransaction(ctx context.Context, tx *models.Transaction) (string, error) {
	return p.SignMessage(ctx, CanonicalTxBytes(tx))
}

// CanonicalTxBytes is the byte encoding a transaction signature binds
// to. Mutable fields (status, hash, signature) are excluded.
func CanonicalTxBytes(tx *models.Transaction) []byte {
	b, _ := json.Marshal(struct {
		ID    string `json:"id"`
		From  string `json:"from"`
		To    string `json:"to"`
		Value string `json:"value"`
		Data  string `json:"data,omitempty"`
		Nonce *int64 `json:"nonce,omitempty"`
		Chain string `json:"chain"`
	}{tx.ID, tx.From, tx.To, tx.Value, tx.Data, tx.Nonce, tx.Chain})
	return b
}
