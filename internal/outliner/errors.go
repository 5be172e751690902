package outliner

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the target node or save location does not
	// exist upstream. During daily-note resolution this triggers the one-shot
	// recreation recovery; everywhere else it propagates directly.
	ErrNotFound = errors.New("node not found")

	// ErrUnauthorized is returned when the API key is rejected upstream.
	ErrUnauthorized = errors.New("api key rejected")

	// ErrRateLimited is returned when the service throttles the caller.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned when an upstream call exceeds its deadline.
	ErrTimeout = errors.New("upstream timeout")
)

// APIError carries the upstream status for errors that need no special
// handling beyond classification.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("outliner api error %d: %s", e.Status, e.Message)
}

// ErrorFromStatus maps an upstream HTTP status to the typed error classes.
func ErrorFromStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Status: status, Message: body}
	}
}

// IsServerError reports whether err is an upstream 5xx.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 500
}
