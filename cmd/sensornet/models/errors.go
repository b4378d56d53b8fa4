package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSensorNotFound is returned when the requested id has no identity,
	// profile or cache record, depending on the operation.
	ErrSensorNotFound = errors.New("sensor not found")

	// ErrNameConflict is returned when a creation reuses an existing name.
	ErrNameConflict = errors.New("sensor with same name already registered")
)

// PartialWriteError marks a fan-out step that failed after earlier steps
// already mutated other stores. There is no automatic rollback; the step log
// carries enough context for manual reconciliation.
type PartialWriteError struct {
	Err      error
	Store    string
	Step     string
	SensorID int64
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: step %s on %s failed for sensor %d: %s", e.Step, e.Store, e.SensorID, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// DownstreamError wraps a failure of a backing store before anything was
// written on its behalf.
type DownstreamError struct {
	Err   error
	Store string
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s store unavailable: %s", e.Store, e.Err)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

// MalformedQueryError marks input that cannot be turned into a valid query
// for the target store.
type MalformedQueryError struct {
	Err error
}

func (e *MalformedQueryError) Error() string { return "malformed query: " + e.Err.Error() }

func (e *MalformedQueryError) Unwrap() error { return e.Err }
