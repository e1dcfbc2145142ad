package sword

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exported errors
var (
	// ErrServiceUnavailable means the request never got a usable answer:
	// the connection failed, timed out, or the server returned an error
	// when asked for the service document.
	ErrServiceUnavailable = errors.New("SWORD service unavailable")

	// ErrNotAuthorized means the server rejected the credentials.
	// Retrying with the same credentials will not help.
	ErrNotAuthorized = errors.New("Access Denied")

	// ErrMalformedServiceDocument means scanning the service document
	// stopped at a collection lacking a title or a zip accept element.
	// Collections found before that point are still returned.
	ErrMalformedServiceDocument = errors.New("malformed service document")

	// ErrDepositRejected is matched by every *RejectedError.
	ErrDepositRejected = errors.New("deposit rejected")
)

// A RejectedError is returned when the server answers a deposit with a
// non-success status. Body holds the server's response verbatim.
type RejectedError struct {
	StatusCode int
	Body       []byte
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("deposit rejected: received status %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrDepositRejected) match.
func (e *RejectedError) Is(target error) bool {
	return target == ErrDepositRejected
}

// A TransportError means a request could not be completed. It matches
// ErrServiceUnavailable and unwraps to the underlying cause.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return ErrServiceUnavailable.Error() + ": " + e.URL + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrServiceUnavailable) match.
func (e *TransportError) Is(target error) bool {
	return target == ErrServiceUnavailable
}
