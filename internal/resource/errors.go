package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the targeted document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidFilter is returned for list filters on anything but plain top-level fields.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrConfiguration marks calls to a capability the resource was not configured with.
	ErrConfiguration = errors.New("resource configuration error")
	// ErrHistoryDisabled is returned by history queries on a resource without history.
	ErrHistoryDisabled = fmt.Errorf("%w: history is not enabled", ErrConfiguration)
)

// StoreError wraps a failure of the underlying persistence layer.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStoreError returns nil for a nil err, otherwise a *StoreError.
func WrapStoreError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Collection: collection, Err: err}
}

// IsStoreError reports whether err carries a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
