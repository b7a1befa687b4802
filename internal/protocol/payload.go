package protocol

import "encoding/json"

// Closed payload schemas, one per envelope kind. Senders marshal these;
// receivers decode the raw payload into the schema matching the kind
// instead of working with open-ended maps.

// ConnectPayload accompanies a connect envelope.
type ConnectPayload struct {
	Version  string            `json:"version"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TransactionPayload carries a signed transaction between agents.
type TransactionPayload struct {
	TransactionID string `json:"transaction_id"`
	Chain         string `json:"chain"`
	From          string `json:"from"`
	To            string `json:"to"`
	Value         string `json:"value"`
	Signature     string `json:"signature"`
	// Encrypted holds the ciphertext when the sender sealed the
	// transaction body for the recipient; the clear fields above are
	// omitted in that case.
	Encrypted string `json:"encrypted,omitempty"`
}

// QueryPayload asks the counterparty a question about prior state.
type QueryPayload struct {
	Subject string `json:"subject"`
	Ref     string `json:"ref,omitempty"`
}

// ResponsePayload answers a query or acknowledges a transaction.
type ResponsePayload struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
}

// ErrorPayload reports a protocol-level failure to the sender.
type ErrorPayload struct {
	Error string `json:"error"`
}

// MarshalPayload is a convenience wrapper used by sessions when
// building envelopes from a typed payload.
func MarshalPayload(v any) (json.RawMessage, error) {
	if v == nil {
		return EmptyPayload, nil
	}
	return json.Marshal(v)
}
