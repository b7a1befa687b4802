package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AgenticDao/CryptoA2A/internal/crypto"
	"github.com/AgenticDao/CryptoA2A/internal/metrics"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	PublicKey string `json:"public_key"`
	Name      string `json:"name"`
	Chain     string `json:"chain,omitempty"`
	Address   string `json:"address,omitempty"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	ID         string `json:"id"`
	ProfileURL string `json:"profile_url"`
}

// Register handles agent registration. Registration is idempotent by
// public key.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.PublicKey == "" {
		h.Error(w, http.StatusBadRequest, "public_key is required")
		return
	}
	if _, err := crypto.ValidatePublicKey(req.PublicKey); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid public_key: must be base64-encoded Ed25519 public key (32 bytes)")
		return
	}

	// A ledger address is optional at registration, but when given it
	// must be structurally valid for the declared chain.
	if req.Address != "" && !crypto.VerifyAddress(req.Address, req.Chain) {
		h.Error(w, http.StatusBadRequest, "address is not valid for chain "+req.Chain)
		return
	}

	name := sanitizeName(req.Name)

	existing, err := h.pg.GetAgentByPublicKey(r.Context(), req.PublicKey)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if existing != nil {
		h.JSON(w, http.StatusOK, RegisterResponse{
			ID:         existing.ID.String(),
			ProfileURL: "/agents/" + existing.ID.String(),
		})
		return
	}

	agent, err := h.pg.CreateAgent(r.Context(), req.PublicKey, name, req.Chain, req.Address)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	metrics.AgentsRegistered.Inc()
	h.JSON(w, http.StatusCreated, RegisterResponse{
		ID:         agent.ID.String(),
		ProfileURL: "/agents/" + agent.ID.String(),
	})
}
