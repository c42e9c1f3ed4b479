package passstyle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPassable is the root of every classification failure.
	ErrNotPassable = errors.New("passstyle: value is not passable")

	// ErrFrozen is returned when mutating a hardened object.
	ErrFrozen = errors.New("passstyle: object is frozen")

	// ErrAlreadyRegistered is returned when registering an object twice.
	ErrAlreadyRegistered = errors.New("passstyle: object already registered")

	// ErrNotRemotable is returned when registering an object whose shape
	// cannot be passed by reference.
	ErrNotRemotable = errors.New("passstyle: object is not remotable")
)

// ClassifyError describes why a value was rejected by the classifier.
type ClassifyError struct {
	Reason string
	Value  any
}

func (e *ClassifyError) Error() string {
	return "passstyle: " + e.Reason
}

func (e *ClassifyError) Unwrap() error {
	return ErrNotPassable
}

func reject(v any, format string, args ...any) error {
	return &ClassifyError{Reason: fmt.Sprintf(format, args...), Value: v}
}
