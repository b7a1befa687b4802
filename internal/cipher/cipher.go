// Package cipher encrypts and decrypts protocol payloads. The symmetric
// mode seals a payload under a shared 32-byte key; the sealed-box mode
// in sealed.go encrypts to a recipient's Ed25519 identity key.
package cipher

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the symmetric key length in bytes.
const KeySize = chacha20poly1305.KeySize

const nonceSize = chacha20poly1305.NonceSize

// CodeInvalidDataOrKey is the single failure class decryption exposes:
// wrong key and corrupted ciphertext are indistinguishable by design.
const CodeInvalidDataOrKey = "INVALID_DATA_OR_KEY"

// CipherError is the typed failure for encryption and decryption.
type CipherError struct {
	Code    string
	Message string
}

func (e *CipherError) Error() string {
	return fmt.Sprintf("cipher: %s: %s", e.Code, e.Message)
}

// IsDecryptError reports whether err is a CipherError with the
// INVALID_DATA_OR_KEY code.
func IsDecryptError(err error) bool {
	var ce *CipherError
	return errors.As(err, &ce) && ce.Code == CodeInvalidDataOrKey
}

// GenerateKey returns a fresh random 32-byte symmetric key.
func GenerateKey() []byte {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

// Encrypt serializes payload as JSON and seals it under key with
// ChaCha20-Poly1305. The result is base64(nonce || ciphertext).
func Encrypt(payload any, key []byte) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("cipher: marshal payload: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", &CipherError{Code: CodeInvalidDataOrKey, Message: "invalid key length"}
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	wire := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(wire), nil
}

// Decrypt opens a ciphertext produced by Encrypt and returns the JSON
// plaintext. A wrong key or tampered data fails with
// INVALID_DATA_OR_KEY; no partial plaintext is ever returned.
func Decrypt(ciphertextB64 string, key []byte) (json.RawMessage, error) {
	wire, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "invalid base64 ciphertext"}
	}
	if len(wire) < nonceSize+chacha20poly1305.Overhead {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "ciphertext too short"}
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "invalid key length"}
	}

	plaintext, err := aead.Open(nil, wire[:nonceSize], wire[nonceSize:], nil)
	if err != nil {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "wrong key or tampered ciphertext"}
	}
	return plaintext, nil
}

// DecryptInto decrypts and unmarshals the plaintext into v.
func DecryptInto(ciphertextB64 string, key []byte, v any) error {
	plaintext, err := Decrypt(ciphertextB64, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return &CipherError{Code: CodeInvalidDataOrKey, Message: "plaintext is not valid JSON"}
	}
	return nil
}

// Hash returns the hex-encoded SHA-256 digest of value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
