package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/AgenticDao/CryptoA2A/internal/metrics"
	"github.com/AgenticDao/CryptoA2A/internal/store"
)

// ChallengeRequest asks for a fresh auth challenge.
type ChallengeRequest struct {
	AgentID string `json:"agent_id"`
}

// ChallengeResponse carries the issued challenge.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

// Challenge issues a single-use challenge for an agent. Issuing a new
// challenge invalidates any unconsumed one.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent_id")
		return
	}
	agent, err := h.pg.GetAgentByID(r.Context(), agentID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	challenge := h.auth.NewChallenge()
	if err := h.redis.PutChallenge(r.Context(), agent.ID.String(), challenge, h.challengeTTL); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store challenge")
		return
	}

	metrics.ChallengesIssued.Inc()
	h.JSON(w, http.StatusOK, ChallengeResponse{
		Challenge: challenge,
		ExpiresIn: int64(h.challengeTTL.Seconds()),
	})
}

// TokenRequest exchanges a signed challenge for a bearer token.
type TokenRequest struct {
	AgentID   string `json:"agent_id"`
	Signature string `json:"signature"` // base64 Ed25519 signature over the challenge
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// Token verifies a challenge response and issues a bearer token. The
// challenge is consumed whether or not verification succeeds, so a
// failed attempt cannot be retried against the same challenge.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent_id")
		return
	}
	agent, err := h.pg.GetAgentByID(r.Context(), agentID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	challenge, err := h.redis.ConsumeChallenge(r.Context(), agent.ID.String())
	if err != nil {
		if errors.Is(err, store.ErrChallengeNotFound) {
			metrics.AuthFailures.WithLabelValues("no_challenge").Inc()
			h.Error(w, http.StatusUnauthorized, "no active challenge; request one first")
			return
		}
		h.Error(w, http.StatusInternalServerError, "challenge store error")
		return
	}

	if !h.auth.VerifyChallengeResponse(challenge, req.Signature, agent.PublicKey) {
		metrics.AuthFailures.WithLabelValues("challenge_rejected").Inc()
		h.Error(w, http.StatusUnauthorized, "challenge signature verification failed")
		return
	}

	token, err := h.auth.IssueToken(agent.ID.String(), h.signingKey, map[string]any{
		"pub": agent.PublicKey,
	})
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	metrics.TokensIssued.Inc()
	h.JSON(w, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer"})
}
