package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsuccessful indicates the resolver answered without a success status
	ErrUnsuccessful = errors.New("resolver returned no media")

	// ErrForbidden indicates the resolver rejected the session cookie twice
	ErrForbidden = errors.New("resolver rejected session cookie")
)

// StatusError indicates a non-200 resolver response
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("resolver http status=%d", e.StatusCode)
}
