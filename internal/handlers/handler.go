package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/AgenticDao/CryptoA2A/internal/auth"
	"github.com/AgenticDao/CryptoA2A/internal/store"
	"github.com/AgenticDao/CryptoA2A/internal/tx"
	"github.com/AgenticDao/CryptoA2A/internal/wallet"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	pg           store.DataStore
	redis        *store.RedisStore
	auth         *auth.Service
	signingKey   []byte
	manager      *tx.Manager
	signer       wallet.Provider
	broadcaster  tx.Broadcaster
	statusQuery  tx.StatusQuery
	challengeTTL time.Duration
}

// Deps bundles the collaborators a Handler needs.
type Deps struct {
	DataStore    store.DataStore
	Redis        *store.RedisStore
	Auth         *auth.Service
	SigningKey   []byte
	Manager      *tx.Manager
	Signer       wallet.Provider
	Broadcaster  tx.Broadcaster
	StatusQuery  tx.StatusQuery
	ChallengeTTL time.Duration
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(d Deps) *Handler {
	if d.ChallengeTTL <= 0 {
		d.ChallengeTTL = 2 * time.Minute
	}
	return &Handler{
		pg:           d.DataStore,
		redis:        d.Redis,
		auth:         d.Auth,
		signingKey:   d.SigningKey,
		manager:      d.Manager,
		signer:       d.Signer,
		broadcaster:  d.Broadcaster,
		statusQuery:  d.StatusQuery,
		challengeTTL: d.ChallengeTTL,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing
// control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
