package openlibrary

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout is returned when the upstream does not answer within the
// client timeout.
var ErrTimeout = errors.New("openlibrary: request timed out")

// ErrMalformed is returned when a success response is not a JSON document
// of the expected shape.
var ErrMalformed = errors.New("openlibrary: malformed response")

// UpstreamError is a non-success HTTP status returned by the upstream API.
type UpstreamError struct {
	Path      string
	Status    int
	Retriable bool
	Body      string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// transient reports whether status is likely temporary and worth a retry.
func transient(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsMalformed reports whether the upstream answered with an unreadable body.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status
	}
	return 0
}
