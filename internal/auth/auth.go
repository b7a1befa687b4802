// Package auth issues and verifies the credentials agents use to prove
// identity: single-use challenges answered with an Ed25519 signature,
// and self-contained bearer tokens carrying their own expiry.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	a2acrypto "github.com/AgenticDao/CryptoA2A/internal/crypto"
)

// DefaultTokenTTL is the token lifetime used when the service is not
// configured with one.
const DefaultTokenTTL = time.Hour

// challengeEntropy is the number of random bytes in a challenge.
const challengeEntropy = 16

// ErrorCode classifies token verification failures.
type ErrorCode string

const (
	CodeExpired          ErrorCode = "EXPIRED"
	CodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	CodeMalformed        ErrorCode = "MALFORMED"
)

// AuthError is the typed failure returned for untrusted token input.
// Verification never panics and never returns an untyped error for
// adversarial tokens.
type AuthError struct {
	Code  ErrorCode
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth: %s: %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("auth: %s", e.Code)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// IsCode reports whether err is an AuthError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == code
}

// Service is a stateless auth service. Challenge correlation and
// single-use enforcement live with the caller (the gateway uses Redis).
type Service struct {
	tokenTTL time.Duration
}

// New creates an auth service. A non-positive ttl selects
// DefaultTokenTTL.
func New(tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{tokenTTL: tokenTTL}
}

// NewChallenge returns a fresh unpredictable challenge string. The
// embedded timestamp makes challenges self-describing for TTL policies.
func (s *Service) NewChallenge() string {
	buf := make([]byte, challengeEntropy)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process cannot operate safely.
		panic(err)
	}
	return fmt.Sprintf("challenge-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// VerifyChallengeResponse checks that signatureB64 is a valid signature
// over the challenge by publicKeyB64. Empty and undersized signatures
// are rejected before any cryptographic work.
func (s *Service) VerifyChallengeResponse(challenge, signatureB64, publicKeyB64 string) bool {
	if challenge == "" || signatureB64 == "" {
		return false
	}
	return a2acrypto.VerifySignature([]byte(challenge), signatureB64, publicKeyB64)
}

// IssueToken creates a signed HS256 token for subject with the given
// extra claims. The token is self-contained: sub, iat and exp are set
// so verification needs nothing beyond the signing key.
func (s *Service) IssueToken(subject string, signingKey []byte, claims map[string]any) (string, error) {
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}
	if len(signingKey) == 0 {
		return "", errors.New("auth: signing key is required")
	}

	now := time.Now()
	mapped := jwt.MapClaims{}
	for k, v := range claims {
		mapped[k] = v
	}
	mapped["sub"] = subject
	mapped["iat"] = now.Unix()
	mapped["exp"] = now.Add(s.tokenTTL).Unix()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, mapped).SignedString(signingKey)
}

// VerifyToken validates a bearer token and returns its claims. All
// failure paths return an *AuthError: EXPIRED past exp,
// INVALID_SIGNATURE on a bad binding, MALFORMED for anything
// unparseable.
func (s *Service) VerifyToken(token string, signingKey []byte) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &AuthError{Code: CodeExpired, Cause: err}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, &AuthError{Code: CodeInvalidSignature, Cause: err}
		default:
			return nil, &AuthError{Code: CodeMalformed, Cause: err}
		}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, &AuthError{Code: CodeMalformed}
	}
	return claims, nil
}
