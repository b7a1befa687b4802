package cipher

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Sealed-box mode: encrypt a payload to an agent's Ed25519 identity key
// without a prior key exchange. The sender generates an ephemeral
// X25519 keypair, derives a shared key via HKDF-SHA256, and seals with
// ChaCha20-Poly1305.
//
// Wire format: ephemeral_pk[32] || nonce[12] || ciphertext[N+16].

const sealedContext = "a2a-sealed-v1"

const (
	ephemeralPKSize = 32
	minSealedLen    = ephemeralPKSize + nonceSize + chacha20poly1305.Overhead
)

// ed25519PubToX25519 converts an Ed25519 public key to its X25519 form.
func ed25519PubToX25519(edPub ed25519.PublicKey) ([]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return nil, err
	}
	return p.BytesMontgomery(), nil
}

// ed25519SeedToX25519Private converts an Ed25519 seed to an X25519
// private scalar (RFC 7748 clamping).
func ed25519SeedToX25519Private(seed []byte) []byte {
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32]
}

func deriveSealedKey(sharedSecret, ephemeralPK, recipientPK []byte) ([]byte, error) {
	salt := make([]byte, 0, len(ephemeralPK)+len(recipientPK))
	salt = append(salt, ephemeralPK...)
	salt = append(salt, recipientPK...)

	r := hkdf.New(sha256.New, sharedSecret, salt, []byte(sealedContext))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SealFor encrypts plaintext to the holder of the given base64-encoded
// Ed25519 public key and returns the base64 wire ciphertext.
func SealFor(plaintext []byte, recipientPubB64 string) (string, error) {
	recipientEd, err := base64.StdEncoding.DecodeString(recipientPubB64)
	if err != nil || len(recipientEd) != ed25519.PublicKeySize {
		return "", &CipherError{Code: CodeInvalidDataOrKey, Message: "invalid recipient public key"}
	}

	recipientX, err := ed25519PubToX25519(ed25519.PublicKey(recipientEd))
	if err != nil {
		return "", &CipherError{Code: CodeInvalidDataOrKey, Message: "recipient key is not a valid curve point"}
	}

	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return "", err
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return "", err
	}

	sharedSecret, err := curve25519.X25519(ephPriv[:], recipientX)
	if err != nil {
		return "", err
	}

	key, err := deriveSealedKey(sharedSecret, ephPub, recipientX)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	wire := make([]byte, 0, len(ephPub)+nonceSize+len(ciphertext))
	wire = append(wire, ephPub...)
	wire = append(wire, nonce...)
	wire = append(wire, ciphertext...)

	return base64.StdEncoding.EncodeToString(wire), nil
}

// OpenWith decrypts a sealed-box ciphertext using the recipient's
// Ed25519 private key.
func OpenWith(ciphertextB64 string, privateKey ed25519.PrivateKey) ([]byte, error) {
	wire, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "invalid base64 ciphertext"}
	}
	if len(wire) < minSealedLen {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "ciphertext too short"}
	}

	ephPK := wire[:ephemeralPKSize]
	nonce := wire[ephemeralPKSize : ephemeralPKSize+nonceSize]
	ciphertext := wire[ephemeralPKSize+nonceSize:]

	ownPriv := ed25519SeedToX25519Private(privateKey.Seed())
	ownPub, err := curve25519.X25519(ownPriv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	sharedSecret, err := curve25519.X25519(ownPriv, ephPK)
	if err != nil {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "invalid ephemeral key"}
	}

	key, err := deriveSealedKey(sharedSecret, ephPK, ownPub)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &CipherError{Code: CodeInvalidDataOrKey, Message: "wrong key or tampered ciphertext"}
	}
	return plaintext, nil
}
