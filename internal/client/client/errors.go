package client

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrUnavailable is a transient transport failure: no route, timeout,
	// gateway errors. Retry on the next tick.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is a definitive auth rejection (401/403).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is a request the server refused to accept as sent.
	ErrValidation = errors.New("rejected by server")
	// ErrServer is any other server-side failure.
	ErrServer = errors.New("server error")

	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// APIError carries what the server said about a failed request.
// It unwraps to one of the sentinel errors above.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string

	kind error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)", e.kind, e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(&b, "; %s: %s", k, e.Fields[k])
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.kind }

// NewValidationError reports a request refused before it left the client.
func NewValidationError(message string, fields map[string]string) *APIError {
	return &APIError{Message: message, Fields: fields, kind: ErrValidation}
}

// IsTransient reports whether err is worth retrying later as is.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
