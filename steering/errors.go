package steering

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a completion carries no choices.
var ErrEmptyResponse = errors.New("backend returned no choices")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("steering backend returned status %d: %s", e.StatusCode, e.Body)
}
