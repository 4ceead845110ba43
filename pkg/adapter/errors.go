package adapter

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is matched by every *NotFoundError.
var ErrRecordNotFound = errors.New("record not found")

// NotFoundError reports a record that does not exist remotely, or an empty id.
type NotFoundError struct {
	Resource string
	ID       string
	// Err is the transport error of the 404 response, if any.
	Err error
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s without id", ErrRecordNotFound, e.Resource)
	}
	return fmt.Sprintf("%s: %s %q", ErrRecordNotFound, e.Resource, e.ID)
}

// Is makes errors.Is(err, ErrRecordNotFound) succeed.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// Unwrap returns the underlying transport error.
func (e *NotFoundError) Unwrap() error {
	return e.Err
}
