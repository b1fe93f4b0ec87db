package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when statistics are requested on an empty set.
	ErrEmptyInput = errors.New("empty input")

	// ErrDivisionByZero is returned when a ratio's denominator collapses to zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrIndexOutOfRange is matched by every IndexOutOfRangeError.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNoSeriesLoaded is returned by playback operations before any prediction is loaded.
	ErrNoSeriesLoaded = errors.New("no prediction series loaded")

	// ErrInvalidSeries is returned for prediction series that break the ordering invariant.
	ErrInvalidSeries = errors.New("invalid prediction series")
)

// IndexOutOfRangeError reports a seek outside [0, Len).
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
