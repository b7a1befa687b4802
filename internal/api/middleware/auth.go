package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AgenticDao/CryptoA2A/internal/auth"
	"github.com/AgenticDao/CryptoA2A/internal/metrics"
	"github.com/AgenticDao/CryptoA2A/internal/models"
	"github.com/AgenticDao/CryptoA2A/internal/store"
)

type contextKey string

// AgentContextKey holds the authenticated *models.Agent.
const AgentContextKey contextKey = "agent"

// AuthMiddleware verifies bearer tokens on authenticated endpoints.
// Tokens come from the challenge/response exchange at /auth/token.
type AuthMiddleware struct {
	svc        *auth.Service
	signingKey []byte
	pg         store.DataStore
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(svc *auth.Service, signingKey []byte, pg store.DataStore) *AuthMiddleware {
	return &AuthMiddleware{svc: svc, signingKey: signingKey, pg: pg}
}

// RequireAuth verifies the Authorization header and loads the agent
// into the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			metrics.AuthFailures.WithLabelValues("missing_token").Inc()
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := m.svc.VerifyToken(token, m.signingKey)
		if err != nil {
			reason := "malformed"
			switch {
			case auth.IsCode(err, auth.CodeExpired):
				reason = "expired"
			case auth.IsCode(err, auth.CodeInvalidSignature):
				reason = "invalid_signature"
			}
			metrics.AuthFailures.WithLabelValues(reason).Inc()
			jsonError(w, http.StatusUnauthorized, "invalid token: "+reason)
			return
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			metrics.AuthFailures.WithLabelValues("malformed").Inc()
			jsonError(w, http.StatusUnauthorized, "token has no subject")
			return
		}

		agentID, err := uuid.Parse(subject)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("malformed").Inc()
			jsonError(w, http.StatusUnauthorized, "invalid agent id in token")
			return
		}

		agent, err := m.pg.GetAgentByID(r.Context(), agentID)
		if err != nil || agent == nil {
			metrics.AuthFailures.WithLabelValues("unknown_agent").Inc()
			jsonError(w, http.StatusUnauthorized, "agent not found")
			return
		}

		ctx := context.WithValue(r.Context(), AgentContextKey, agent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AgentFromContext returns the authenticated agent, if any.
func AgentFromContext(ctx context.Context) *models.Agent {
	agent, _ := ctx.Value(AgentContextKey).(*models.Agent)
	return agent
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
