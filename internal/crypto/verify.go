// Package crypto provides the signature and address verification
// primitives shared by the protocol core. All functions are pure and
// safe on untrusted input.
package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/AgenticDao/CryptoA2A/internal/models"
)

var (
	ErrInvalidPublicKey = errors.New("invalid Ed25519 public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Chain identifiers with structural address rules known to the
// verifier. Unknown chains always fail address validation.
const (
	ChainEthereum = "ethereum"
	ChainBitcoin  = "bitcoin"
)

var (
	ethAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	btcAddressRe = regexp.MustCompile(`^[13][a-km-zA-HJ-NP-Z1-9]{25,34}$`)
)

// ValidatePublicKey checks that a base64-encoded string is a valid
// Ed25519 public key and returns it decoded.
func ValidatePublicKey(pubkeyB64 string) (ed25519.PublicKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(pubkeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidPublicKey)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidPublicKey, ed25519.PublicKeySize, len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}

// VerifySignature checks that signatureB64 is a valid Ed25519 signature
// over message by the key pubkeyB64. It returns false for any
// structural defect rather than an error: callers at the protocol
// boundary only need the predicate.
func VerifySignature(message []byte, signatureB64, pubkeyB64 string) bool {
	pubkey, err := ValidatePublicKey(pubkeyB64)
	if err != nil {
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubkey, message, signature)
}

// CheckSignature is the error-returning form of VerifySignature, used
// where callers want the cause for logging.
func CheckSignature(message []byte, signatureB64, pubkeyB64 string) error {
	pubkey, err := ValidatePublicKey(pubkeyB64)
	if err != nil {
		return err
	}
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 encoding", ErrInvalidSignature)
	}
	if !ed25519.Verify(pubkey, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyAddress reports whether address is structurally valid for the
// given chain. Unknown chains return false, never an error.
func VerifyAddress(address, chain string) bool {
	if address == "" {
		return false
	}
	switch strings.ToLower(chain) {
	case ChainEthereum:
		return ethAddressRe.MatchString(address)
	case ChainBitcoin:
		return btcAddressRe.MatchString(address)
	default:
		return false
	}
}

// VerifyTransaction runs the structural sanity check on a transaction:
// the destination must be present and well-formed for the transaction's
// chain. This is a necessary, not sufficient, validity condition.
func VerifyTransaction(tx *models.Transaction) bool {
	if tx == nil {
		return false
	}
	return VerifyAddress(tx.To, tx.Chain)
}
