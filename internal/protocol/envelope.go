// Package protocol defines the A2A wire envelope and its validation
// rules. An envelope is immutable after creation; responses and errors
// are new envelopes derived from the original.
package protocol

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Version is the protocol version agents advertise on connect.
const Version = "1.0.0"

// ClockDriftTolerance is how far into the future an envelope timestamp
// may sit before validation rejects it.
const ClockDriftTolerance = 5000 * time.Millisecond

// Kind is the closed set of envelope types.
type Kind string

const (
	KindConnect     Kind = "connect"
	KindDisconnect  Kind = "disconnect"
	KindTransaction Kind = "transaction"
	KindQuery       Kind = "query"
	KindResponse    Kind = "response"
	KindError       Kind = "error"
)

// Valid reports whether k is a member of the closed kind enumeration.
func (k Kind) Valid() bool {
	switch k {
	case KindConnect, KindDisconnect, KindTransaction, KindQuery, KindResponse, KindError:
		return true
	}
	return false
}

// Envelope is the addressed, optionally signed message unit exchanged
// between agents. Payload is kept opaque at this layer; a nil Payload
// means the field was absent, which is distinct from an empty payload.
type Envelope struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"type"`
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature,omitempty"`
}

// EmptyPayload is what senders use when an envelope carries no data.
var EmptyPayload = json.RawMessage("{}")

// NewEnvelope builds an envelope with a fresh time-ordered ID and the
// current timestamp. A nil payload is normalized to EmptyPayload so the
// result always validates.
func NewEnvelope(kind Kind, sender, recipient string, payload json.RawMessage) *Envelope {
	if payload == nil {
		payload = EmptyPayload
	}
	return &Envelope{
		ID:        ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Kind:      kind,
		Sender:    sender,
		Recipient: recipient,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// Validate reports whether e is a structurally and temporally valid
// envelope. It is a pure predicate: no side effects, never panics.
func Validate(e *Envelope) bool {
	if e == nil {
		return false
	}
	if e.ID == "" || e.Sender == "" || e.Recipient == "" || e.Timestamp == 0 {
		return false
	}
	if e.Payload == nil {
		return false
	}
	if !e.Kind.Valid() {
		return false
	}
	// Reject timestamps from the future beyond clock drift tolerance.
	// No lower bound: staleness policy belongs to the transport layer.
	if e.Timestamp > time.Now().Add(ClockDriftTolerance).UnixMilli() {
		return false
	}
	return true
}

// NewResponse derives a response envelope from the original: addressing
// is swapped and the ID is prefixed so the response is traceable to the
// envelope it answers.
func NewResponse(original *Envelope, payload json.RawMessage) *Envelope {
	if payload == nil {
		payload = EmptyPayload
	}
	return &Envelope{
		ID:        "response-" + original.ID,
		Kind:      KindResponse,
		Sender:    original.Recipient,
		Recipient: original.Sender,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// NewError derives an error envelope from the original with the same
// addressing swap as NewResponse.
func NewError(original *Envelope, detail string) *Envelope {
	payload, _ := json.Marshal(ErrorPayload{Error: detail})
	return &Envelope{
		ID:        "error-" + original.ID,
		Kind:      KindError,
		Sender:    original.Recipient,
		Recipient: original.Sender,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}
