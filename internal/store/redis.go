package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AgenticDao/CryptoA2A/internal/protocol"
)

const (
	// inboxTTL bounds how long undrained envelopes wait for their
	// recipient.
	inboxTTL = 24 * time.Hour

	// inboxMaxLen caps a recipient's queue so one slow agent cannot
	// grow Redis without bound.
	inboxMaxLen = 1000
)

// ErrChallengeNotFound is returned when a challenge was never issued,
// already consumed, or expired.
var ErrChallengeNotFound = errors.New("store: challenge not found or already used")

// RedisStore handles Redis operations: single-use auth challenges,
// envelope inboxes and rate-limit counters.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client for middleware that shares the
// connection.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func challengeKey(agentID string) string {
	return fmt.Sprintf("auth:challenge:%s", agentID)
}

func inboxKey(agentID string) string {
	return fmt.Sprintf("inbox:%s", agentID)
}

// PutChallenge stores the active challenge for an agent. Issuing a new
// challenge replaces any unconsumed one.
func (s *RedisStore) PutChallenge(ctx context.Context, agentID, challenge string, ttl time.Duration) error {
	return s.client.Set(ctx, challengeKey(agentID), challenge, ttl).Err()
}

// ConsumeChallenge atomically fetches and deletes the agent's
// challenge, enforcing single use.
func (s *RedisStore) ConsumeChallenge(ctx context.Context, agentID string) (string, error) {
	challenge, err := s.client.GetDel(ctx, challengeKey(agentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", err
	}
	return challenge, nil
}

// EnqueueEnvelope appends an envelope to the recipient's inbox.
// RPUSH/LPOP keeps FIFO order per recipient.
func (s *RedisStore) EnqueueEnvelope(ctx context.Context, env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	key := inboxKey(env.Recipient)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -inboxMaxLen, -1)
	pipe.Expire(ctx, key, inboxTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// DrainInbox pops up to limit envelopes from an agent's inbox in
// arrival order.
func (s *RedisStore) DrainInbox(ctx context.Context, agentID string, limit int) ([]protocol.Envelope, error) {
	if limit <= 0 {
		limit = 100
	}

	raw, err := s.client.LPopCount(ctx, inboxKey(agentID), limit).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	envs := make([]protocol.Envelope, 0, len(raw))
	for _, item := range raw {
		var env protocol.Envelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			// Skip corrupt entries rather than wedging the inbox.
			continue
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// InboxDepth returns how many envelopes are queued for an agent.
func (s *RedisStore) InboxDepth(ctx context.Context, agentID string) (int64, error) {
	return s.client.LLen(ctx, inboxKey(agentID)).Result()
}
