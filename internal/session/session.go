// Package session implements the agent-facing protocol façade. A
// session owns one local agent identity, tracks which remote agents it
// is connected to, wraps outbound payloads in envelopes, and dispatches
// inbound envelopes to the registered handler one at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AgenticDao/CryptoA2A/internal/protocol"
)

// ErrNotConnected is returned by Send when the recipient has no active
// connection record.
var ErrNotConnected = errors.New("session: not connected to recipient")

// ErrClosed is returned for operations on a closed session.
var ErrClosed = errors.New("session: closed")

// inboxSize bounds how many envelopes may queue for the handler before
// Receive blocks.
const inboxSize = 256

// Handler processes one inbound envelope. Handlers run to completion
// before the next envelope for the same session is dispatched.
type Handler func(ctx context.Context, env *protocol.Envelope) error

// Transport delivers an outbound envelope toward its recipient. It is
// the only suspension point the session has.
type Transport interface {
	Deliver(ctx context.Context, env *protocol.Envelope) error
}

// ConnectOptions carries optional connect metadata.
type ConnectOptions struct {
	Metadata map[string]string
}

// connection is the per-remote-agent record owned by the session.
type connection struct {
	connected  bool
	lastSeenAt time.Time
}

// Session is the protocol façade for one local agent identity.
// Sessions are independent; multiple sessions run fully concurrently.
type Session struct {
	id        string
	transport Transport
	logger    zerolog.Logger

	mu          sync.Mutex
	connections map[string]*connection
	handler     Handler
	closed      bool

	inbox chan *protocol.Envelope
	done  chan struct{}
	wg    sync.WaitGroup
}

// New creates a session for the given agent id and starts its dispatch
// loop.
func New(agentID string, transport Transport, logger zerolog.Logger) *Session {
	s := &Session{
		id:          agentID,
		transport:   transport,
		logger:      logger.With().Str("agent", agentID).Logger(),
		connections: make(map[string]*connection),
		inbox:       make(chan *protocol.Envelope, inboxSize),
		done:        make(chan struct{}),
	}
	s.wg.Add(1)
	go s.dispatchLoop()
	return s
}

// ID returns the local agent identity.
func (s *Session) ID() string { return s.id }

// RegisterHandler installs the message handler. At most one handler is
// registered per session; a second registration replaces the first.
func (s *Session) RegisterHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Connect sends a connect envelope to the target and records the
// connection. Connecting twice is a no-op refresh of lastSeenAt.
func (s *Session) Connect(ctx context.Context, targetID string, opts *ConnectOptions) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	meta := map[string]string{}
	if opts != nil && opts.Metadata != nil {
		meta = opts.Metadata
	}
	payload, err := protocol.MarshalPayload(protocol.ConnectPayload{Version: protocol.Version, Metadata: meta})
	if err != nil {
		return err
	}
	env := protocol.NewEnvelope(protocol.KindConnect, s.id, targetID, payload)
	if err := s.transport.Deliver(ctx, env); err != nil {
		return err
	}

	s.mu.Lock()
	s.connections[targetID] = &connection{connected: true, lastSeenAt: time.Now()}
	s.mu.Unlock()
	return nil
}

// Disconnect sends a disconnect envelope and clears the connection
// record. Disconnecting an unknown target is a no-op.
func (s *Session) Disconnect(ctx context.Context, targetID string) error {
	s.mu.Lock()
	conn, ok := s.connections[targetID]
	if !ok || !conn.connected {
		s.mu.Unlock()
		return nil
	}
	delete(s.connections, targetID)
	s.mu.Unlock()

	env := protocol.NewEnvelope(protocol.KindDisconnect, s.id, targetID, nil)
	return s.transport.Deliver(ctx, env)
}

// Connected reports whether a connection record exists for the target.
func (s *Session) Connected(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.connections[targetID]
	return ok && conn.connected
}

// LastSeen returns the last activity timestamp for a connected target.
func (s *Session) LastSeen(targetID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.connections[targetID]
	if !ok {
		return time.Time{}, false
	}
	return conn.lastSeenAt, true
}

// Send delivers an outbound envelope. The recipient must be connected.
// Deliveries to one recipient preserve program order; no cross-recipient
// ordering is guaranteed.
func (s *Session) Send(ctx context.Context, env *protocol.Envelope) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	conn, ok := s.connections[env.Recipient]
	if !ok || !conn.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.mu.Unlock()
	return s.transport.Deliver(ctx, env)
}

// SendPayload wraps a typed payload in an envelope of the given kind
// and sends it.
func (s *Session) SendPayload(ctx context.Context, kind protocol.Kind, recipient string, payload any) (*protocol.Envelope, error) {
	raw, err := protocol.MarshalPayload(payload)
	if err != nil {
		return nil, err
	}
	env := protocol.NewEnvelope(kind, s.id, recipient, raw)
	if err := s.Send(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

// Receive accepts an inbound envelope. Invalid envelopes and envelopes
// not addressed to this agent are dropped with no response, so
// malformed floods are never amplified. Valid envelopes are enqueued
// for serial dispatch in arrival order.
func (s *Session) Receive(env *protocol.Envelope) {
	if !protocol.Validate(env) {
		s.logger.Debug().Msg("dropping invalid envelope")
		return
	}
	if env.Recipient != s.id {
		s.logger.Debug().Str("recipient", env.Recipient).Msg("dropping misaddressed envelope")
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// Any valid envelope from a connected peer counts as a heartbeat.
	if conn, ok := s.connections[env.Sender]; ok && conn.connected {
		conn.lastSeenAt = time.Now()
	}
	s.mu.Unlock()

	select {
	case s.inbox <- env:
	case <-s.done:
	}
}

// dispatchLoop runs handlers one envelope at a time. A handler runs to
// completion before the next queued envelope is dispatched.
func (s *Session) dispatchLoop() {
	defer s.wg.Done()
	for {
		select {
		case env := <-s.inbox:
			s.dispatch(env)
		case <-s.done:
			// Drain whatever was already enqueued.
			for {
				select {
				case env := <-s.inbox:
					s.dispatch(env)
				default:
					return
				}
			}
		}
	}
}

func (s *Session) dispatch(env *protocol.Envelope) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		s.logger.Warn().Str("envelope", env.ID).Msg("no message handler registered")
		return
	}
	if err := handler(context.Background(), env); err != nil {
		s.logger.Error().Err(err).Str("envelope", env.ID).Str("kind", string(env.Kind)).Msg("handler failed")
	}
}

// Close stops the dispatch loop after draining the inbox. Connection
// records are discarded without notifying peers.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	s.wg.Wait()
}
