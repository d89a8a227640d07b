package sparql

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

var (
	// ErrEmptyName is returned for an empty entity name
	ErrEmptyName = errors.New("entity name must be non-empty")

	// ErrInvalidName is returned when a name cannot form a resource reference
	ErrInvalidName = errors.New("entity name cannot form a resource reference")

	// ErrMalformedResponse is returned when the endpoint answer is not a results document
	ErrMalformedResponse = errors.New("malformed SPARQL response")
)

// StatusError reports a non-2xx answer from the endpoint
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// IsRetryable reports whether a failed lookup may succeed when repeated:
// server errors, rate limiting, timeouts and dropped connections
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	if errors.Is(err, ErrEmptyName) || errors.Is(err, ErrInvalidName) || errors.Is(err, ErrMalformedResponse) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "timeout")
}
