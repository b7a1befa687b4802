package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("test-signing-key-needs-length-32")

func generateTestKeypair(t *testing.T) (ed25519.PrivateKey, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return priv, base64.StdEncoding.EncodeToString(pub)
}

func TestNewChallengeUnpredictable(t *testing.T) {
	svc := New(0)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		c := svc.NewChallenge()
		if !strings.HasPrefix(c, "challenge-") {
			t.Fatalf("challenge %q has unexpected shape", c)
		}
		if seen[c] {
			t.Fatalf("duplicate challenge %q", c)
		}
		seen[c] = true
	}
}

func TestVerifyChallengeResponse(t *testing.T) {
	svc := New(0)
	priv, pubB64 := generateTestKeypair(t)
	challenge := svc.NewChallenge()
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(challenge)))

	if !svc.VerifyChallengeResponse(challenge, sig, pubB64) {
		t.Fatal("valid challenge response should verify")
	}
	if svc.VerifyChallengeResponse(challenge, "", pubB64) {
		t.Fatal("empty signature should be rejected")
	}
	if svc.VerifyChallengeResponse(challenge, base64.StdEncoding.EncodeToString([]byte("tiny")), pubB64) {
		t.Fatal("undersized signature should be rejected")
	}
	if svc.VerifyChallengeResponse(svc.NewChallenge(), sig, pubB64) {
		t.Fatal("signature over a different challenge should be rejected")
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	svc := New(time.Hour)
	token, err := svc.IssueToken("agent-123", testKey, map[string]any{"role": "payer"})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := svc.VerifyToken(token, testKey)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub != "agent-123" {
		t.Fatalf("sub = %q, err = %v", sub, err)
	}
	if claims["role"] != "payer" {
		t.Fatalf("custom claim lost: %v", claims["role"])
	}
	if _, ok := claims["exp"]; !ok {
		t.Fatal("token must be self-contained with exp")
	}
	if _, ok := claims["iat"]; !ok {
		t.Fatal("token must carry iat")
	}
}

func TestIssueTokenPreconditions(t *testing.T) {
	svc := New(0)
	if _, err := svc.IssueToken("", testKey, nil); err == nil {
		t.Fatal("empty subject should be rejected")
	}
	if _, err := svc.IssueToken("agent", nil, nil); err == nil {
		t.Fatal("empty signing key should be rejected")
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	svc := New(0)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "agent-123",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	token, err := expired.SignedString(testKey)
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.VerifyToken(token, testKey)
	if !IsCode(err, CodeExpired) {
		t.Fatalf("expected EXPIRED, got %v", err)
	}
}

func TestVerifyTokenWrongKey(t *testing.T) {
	svc := New(time.Hour)
	token, err := svc.IssueToken("agent-123", testKey, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.VerifyToken(token, []byte("a-completely-different-hmac-key!"))
	if !IsCode(err, CodeInvalidSignature) {
		t.Fatalf("expected INVALID_SIGNATURE, got %v", err)
	}
}

func TestVerifyTokenMalformed(t *testing.T) {
	svc := New(0)
	for _, garbage := range []string{"", "not a token", "a.b", "a.b.c"} {
		_, err := svc.VerifyToken(garbage, testKey)
		if !IsCode(err, CodeMalformed) {
			t.Fatalf("expected MALFORMED for %q, got %v", garbage, err)
		}
	}
}

func TestVerifyTokenRejectsNoneAlg(t *testing.T) {
	svc := New(0)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "agent-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.VerifyToken(token, testKey); err == nil {
		t.Fatal("unsigned token must not verify")
	}
}

func TestAttemptStateMachine(t *testing.T) {
	svc := New(0)
	priv, pubB64 := generateTestKeypair(t)

	attempt := NewAttempt("agent-123", svc.NewChallenge())
	if attempt.State() != AttemptIssued {
		t.Fatalf("fresh attempt state = %q", attempt.State())
	}

	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(attempt.Challenge)))
	state, err := attempt.Present(svc, sig, pubB64)
	if err != nil {
		t.Fatal(err)
	}
	if state != AttemptAccepted {
		t.Fatalf("state = %q, want accepted", state)
	}

	// Terminal states admit no further transition.
	if _, err := attempt.Present(svc, sig, pubB64); err != ErrAttemptSettled {
		t.Fatalf("expected ErrAttemptSettled, got %v", err)
	}
	if attempt.State() != AttemptAccepted {
		t.Fatal("settled state must not change")
	}
}

func TestAttemptRejected(t *testing.T) {
	svc := New(0)
	_, pubB64 := generateTestKeypair(t)

	attempt := NewAttempt("agent-123", svc.NewChallenge())
	state, err := attempt.Present(svc, base64.StdEncoding.EncodeToString(make([]byte, 64)), pubB64)
	if err != nil {
		t.Fatal(err)
	}
	if state != AttemptRejected {
		t.Fatalf("state = %q, want rejected", state)
	}
}
