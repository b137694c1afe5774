package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown participants, exchanges or stored records.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateParticipant is returned when a name is registered twice.
	ErrDuplicateParticipant = errors.New("participant already registered")
	// ErrInvalidParticipant is returned for empty names or negative holdings.
	ErrInvalidParticipant = errors.New("invalid participant")
	// ErrFinalized is returned for operations attempted after EndSimulation.
	ErrFinalized = errors.New("simulation already finalized")
	// ErrUnknownResource is returned when an item is outside the simulation's catalog.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrInvalidOffer is returned for malformed offers (empty sides, self trades, bad quantities).
	ErrInvalidOffer = errors.New("invalid offer")
	// ErrAlreadyResolved is returned when an exchange outcome has already left pending.
	ErrAlreadyResolved = errors.New("exchange outcome already resolved")
	// ErrNotSettleable is returned when settlement is requested for a non-successful or settled exchange.
	ErrNotSettleable = errors.New("exchange cannot be settled")
	// ErrInsufficientResources is returned when settlement would drive a holding negative.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrInvalidSimulationID is returned for empty identifiers or identifiers containing path separators.
	ErrInvalidSimulationID = errors.New("invalid simulation id")

	// ErrCapability is the category sentinel matched by every *CapabilityError.
	ErrCapability = errors.New("capability failure")
	// ErrPersistence is the category sentinel matched by every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
)

// CapabilityError reports a failed language-model call. It is recoverable:
// the orchestrator records it on the affected exchange and continues.
type CapabilityError struct {
	Op  string // facilitator, responder, summary, ...
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the category sentinel and the cause.
func (e *CapabilityError) Unwrap() []error { return []error{ErrCapability, e.Err} }

// PersistenceError reports a failure to write a simulation record.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persist record: %v", e.Err)
	}
	return fmt.Sprintf("persist record %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the category sentinel and the cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }
