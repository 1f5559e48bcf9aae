package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportNotReady is returned when a send is attempted while the
	// transport reports itself unavailable. The engine never retries.
	ErrTransportNotReady = errors.New("transport not ready")

	// ErrUnknownCustomer is returned by ledger appends for a phone that was
	// never ensured.
	ErrUnknownCustomer = errors.New("unknown customer")

	// ErrNotFound is returned by lookups on a nonexistent phone.
	ErrNotFound = errors.New("not found")

	// ErrTemplatesUnsupported is returned for template sends over a transport
	// without the template capability.
	ErrTemplatesUnsupported = errors.New("transport does not support template messages")
)

// SendError wraps a transport-reported delivery failure.
type SendError struct {
	Phone string
	Cause error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed: %v", e.Phone, e.Cause)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}
