package cipher

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := GenerateKey()
	payload := map[string]any{
		"amount":  "1000000",
		"memo":    "invoice 42",
		"unicode": "héllo ☕",
	}

	ciphertext, err := Encrypt(payload, key)
	if err != nil {
		t.Fatal(err)
	}
	if ciphertext == "" {
		t.Fatal("ciphertext is empty")
	}

	var got map[string]any
	if err := DecryptInto(ciphertext, key, &got); err != nil {
		t.Fatal(err)
	}
	if got["amount"] != "1000000" || got["memo"] != "invoice 42" || got["unicode"] != "héllo ☕" {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestEncryptNondeterministic(t *testing.T) {
	key := GenerateKey()
	a, err := Encrypt("same payload", key)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt("same payload", key)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two encryptions of the same payload must differ")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	ciphertext, err := Encrypt("secret", GenerateKey())
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(ciphertext, GenerateKey())
	if !IsDecryptError(err) {
		t.Fatalf("expected INVALID_DATA_OR_KEY, got %v", err)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	key := GenerateKey()
	ciphertext, err := Encrypt("secret", key)
	if err != nil {
		t.Fatal(err)
	}

	wire, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	wire[len(wire)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(wire)

	if _, err := Decrypt(tampered, key); !IsDecryptError(err) {
		t.Fatalf("expected INVALID_DATA_OR_KEY, got %v", err)
	}
}

func TestDecryptGarbageInput(t *testing.T) {
	key := GenerateKey()
	for _, input := range []string{"", "not base64 !!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := Decrypt(input, key); !IsDecryptError(err) {
			t.Fatalf("expected INVALID_DATA_OR_KEY for %q, got %v", input, err)
		}
	}
}

func TestEncryptInvalidKeyLength(t *testing.T) {
	if _, err := Encrypt("secret", []byte("too short")); !IsDecryptError(err) {
		t.Fatal("short key must be rejected")
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey()
	b := GenerateKey()
	if len(a) != KeySize || len(b) != KeySize {
		t.Fatalf("key sizes %d, %d; want %d", len(a), len(b), KeySize)
	}
	if bytes.Equal(a, b) {
		t.Fatal("keys must be unique")
	}
}

func TestHash(t *testing.T) {
	// SHA-256 of the empty string, a fixed vector.
	if got := Hash(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("Hash(\"\") = %s", got)
	}
	if Hash("a2a") != Hash("a2a") {
		t.Fatal("hash must be deterministic")
	}
	if Hash("a2a") == Hash("a2b") {
		t.Fatal("distinct inputs collided")
	}
}

func TestSealedBoxRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	pubB64 := base64.StdEncoding.EncodeToString(pub)

	plaintext := []byte(`{"kind":"payment","amount":"5"}`)
	sealed, err := SealFor(plaintext, pubB64)
	if err != nil {
		t.Fatal(err)
	}

	opened, err := OpenWith(sealed, priv)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("opened = %q, want %q", opened, plaintext)
	}
}

func TestSealedBoxWrongRecipient(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := SealFor([]byte("for your eyes only"), base64.StdEncoding.EncodeToString(pub))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := OpenWith(sealed, otherPriv); !IsDecryptError(err) {
		t.Fatalf("expected INVALID_DATA_OR_KEY, got %v", err)
	}
}

func TestSealForInvalidRecipient(t *testing.T) {
	if _, err := SealFor([]byte("x"), "not base64 !!!"); !IsDecryptError(err) {
		t.Fatal("malformed recipient key must be rejected")
	}
	if _, err := SealFor([]byte("x"), base64.StdEncoding.EncodeToString([]byte("short"))); !IsDecryptError(err) {
		t.Fatal("undersized recipient key must be rejected")
	}
}
