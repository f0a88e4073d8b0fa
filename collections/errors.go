package collections

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCollection is returned when popping from an empty set or list.
	ErrEmptyCollection = errors.New("collections: collection is empty")
	// ErrIndexOutOfRange is returned for an integer index outside the list.
	ErrIndexOutOfRange = errors.New("collections: index out of range")
	// ErrUnsupportedKeyType is returned when a Key is neither an Index nor a
	// Slice, or when a Slice is used where only an Index is accepted.
	ErrUnsupportedKeyType = errors.New("collections: unsupported key type")
	// ErrUnsupportedOperation is matched by every *UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("collections: unsupported operation")
	// ErrValueNotFound is returned by Remove and Index when the value is absent.
	ErrValueNotFound = errors.New("collections: value not found")
	// ErrInvalidArgument is returned when a forwarded command receives
	// arguments it cannot use.
	ErrInvalidArgument = errors.New("collections: invalid argument")
	// ErrKeyExists is returned by Copy when the target key is already in use.
	ErrKeyExists = errors.New("collections: key already exists")
)

// UnsupportedOperationError indicates that an operation is outside what a
// collection kind allows: a command name missing from the kind's allow-list,
// or an argument shape the adapter deliberately rejects.
type UnsupportedOperationError struct {
	Kind      Kind
	Operation string
	Reason    string // optional
}

func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.Kind, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.Kind, e.Operation)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}
