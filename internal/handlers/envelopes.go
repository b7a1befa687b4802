package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/AgenticDao/CryptoA2A/internal/api/middleware"
	"github.com/AgenticDao/CryptoA2A/internal/metrics"
	"github.com/AgenticDao/CryptoA2A/internal/protocol"
)

// PostEnvelope accepts an outbound envelope from the authenticated
// agent and enqueues it for the recipient. Invalid envelopes are
// rejected here with a status code rather than silently dropped: the
// silent-drop policy applies to the receiving session, not to the
// sender's own submission.
func (h *Handler) PostEnvelope(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var env protocol.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !protocol.Validate(&env) {
		metrics.EnvelopesDropped.WithLabelValues("invalid").Inc()
		h.Error(w, http.StatusBadRequest, "envelope failed validation")
		return
	}
	if env.Sender != agent.ID.String() {
		h.Error(w, http.StatusForbidden, "envelope sender must match authenticated agent")
		return
	}

	if err := h.redis.EnqueueEnvelope(r.Context(), &env); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to enqueue envelope")
		return
	}

	metrics.EnvelopesRelayed.WithLabelValues(string(env.Kind)).Inc()
	h.JSON(w, http.StatusAccepted, map[string]string{"id": env.ID})
}

// EnvelopesResponse is the drain response for an agent's inbox.
type EnvelopesResponse struct {
	Envelopes []protocol.Envelope `json:"envelopes"`
	Remaining int64               `json:"remaining"`
}

// GetEnvelopes drains the authenticated agent's inbox in arrival
// order.
func (h *Handler) GetEnvelopes(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	envs, err := h.redis.DrainInbox(r.Context(), agent.ID.String(), limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to read inbox")
		return
	}

	remaining, err := h.redis.InboxDepth(r.Context(), agent.ID.String())
	if err != nil {
		remaining = 0
	}

	if envs == nil {
		envs = []protocol.Envelope{}
	}
	h.JSON(w, http.StatusOK, EnvelopesResponse{Envelopes: envs, Remaining: remaining})
}
