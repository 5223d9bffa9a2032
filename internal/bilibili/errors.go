package bilibili

import (
	"errors"
	"fmt"
)

// CodeNetwork is the sentinel code for transport-layer failures: timeouts,
// connection errors, unreadable bodies, and the upstream rate limiter.
// Callers treat it as transient; any other non-zero code is a definitive
// rejection by the upstream (room or user not found).
const CodeNetwork = -418

// APIError is a failed API call, carrying the upstream error code.
type APIError struct {
	Code  int
	Op    string
	cause error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("bilibili %s (code %d): %v", e.Op, e.Code, e.cause)
	}
	return fmt.Sprintf("bilibili %s rejected with code %d", e.Op, e.Code)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Transient reports whether the failure is worth retrying.
func (e *APIError) Transient() bool {
	return e.Code == CodeNetwork
}

// IsTransient reports whether err is a transient (network-layer) API
// failure. A false return for a non-nil error means the upstream
// definitively rejected the request.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient()
}
