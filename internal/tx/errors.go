package tx

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the lifecycle manager.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeSigningUnavailable = "SIGNING_UNAVAILABLE"
	CodeNotSigned          = "NOT_SIGNED"
	CodeAlreadySigned      = "ALREADY_SIGNED"
	CodeUnknownStatus      = "UNKNOWN_STATUS"
	CodeInconsistentState  = "INCONSISTENT_STATE"
)

// Error is a code-carrying lifecycle error. Precondition failures leave
// the transaction unchanged; INCONSISTENT_STATE is fatal to tracking of
// that transaction.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tx: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("tx: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err is a lifecycle Error with the given code.
func IsCode(err error, code string) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == code
}
