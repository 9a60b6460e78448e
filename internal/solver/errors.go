package solver

import (
	"errors"
	"fmt"
)

// ErrEmptyProblem is returned without contacting the service when the
// problem text is empty after trimming.
var ErrEmptyProblem = errors.New("word problem is empty")

// NetworkError reports that no attempt produced an expression.
type NetworkError struct {
	Attempts int
	Err      error // failure from the last attempt
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("word problem request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx reply from the completion service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("completion service returned %d: %s", e.StatusCode, e.Body)
}

// ErrMalformedResponse is returned when a reply lacks the expected
// candidates[0].content.parts[0].text path.
var ErrMalformedResponse = errors.New("invalid response structure from completion service")
