package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResults is the terminal error of a batch run in which every query failed.
	ErrNoResults = errors.New("no results obtained")

	// ErrAlreadyRunning is returned when a batch run is requested while one is in flight.
	ErrAlreadyRunning = errors.New("batch run already in progress")

	// ErrSuperseded is returned to an on-demand caller whose query was replaced by a newer one.
	ErrSuperseded = errors.New("query superseded by a newer request")
)

// TransportError reports a network failure or a non-success HTTP status from
// the scoring service. StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("scoring transport: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("scoring transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a success response whose body could not be
// decoded or lacked the canonical index.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed scoring response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
