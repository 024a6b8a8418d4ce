package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTripNotFound    = errors.New("trip not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrDriverNotFound  = errors.New("driver not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyManifest   = errors.New("trip manifest needs at least one cargo line")
)

// ValidationError is returned when a field is malformed or out of range.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Rule)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// PlateConflictError is returned when a vehicle plate code is already in use.
type PlateConflictError struct {
	PlateCode string
}

func (e *PlateConflictError) Error() string {
	return fmt.Sprintf("plate code %q is already in use", e.PlateCode)
}

// MissingSupervisorError is returned when a trip is requested for a driver
// without a team, since the trip supervisor is derived from the team.
type MissingSupervisorError struct {
	DriverID string
}

func (e *MissingSupervisorError) Error() string {
	return fmt.Sprintf("driver %q has no team, so no supervisor can be derived", e.DriverID)
}

// DuplicateCargoLineError is returned when a manifest repeats a
// (product, price tier) pair.
type DuplicateCargoLineError struct {
	ProductID   string
	PriceTierID string
}

func (e *DuplicateCargoLineError) Error() string {
	return fmt.Sprintf("duplicate cargo line for product %q with price tier %q", e.ProductID, e.PriceTierID)
}

// InvalidPriceTierError is returned when a manifest references a price tier
// that does not belong to the referenced product, typically a stale price list.
type InvalidPriceTierError struct {
	ProductID   string
	PriceTierID string
}

func (e *InvalidPriceTierError) Error() string {
	return fmt.Sprintf("price tier %q does not belong to product %q", e.PriceTierID, e.ProductID)
}

// ResourceUnavailableError is returned when a vehicle or driver is not
// eligible for trip assignment.
type ResourceUnavailableError struct {
	Resource string // "vehicle", "driver" or "product"
	ID       string
	Reason   string
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("%s %q is unavailable: %s", e.Resource, e.ID, e.Reason)
}

// IncompleteReconciliationError is returned when a closing request does not
// cover every line item of the trip.
type IncompleteReconciliationError struct {
	MissingLineIDs []string
}

func (e *IncompleteReconciliationError) Error() string {
	return fmt.Sprintf("closing request is missing line items: %s", strings.Join(e.MissingLineIDs, ", "))
}

// UnknownLineItemError is returned when a closing request names a line item
// that does not belong to the trip.
type UnknownLineItemError struct {
	LineItemID string
}

func (e *UnknownLineItemError) Error() string {
	return fmt.Sprintf("line item %q does not belong to the trip", e.LineItemID)
}

// NegativeClosingQuantityError is returned when a closing quantity is below zero.
type NegativeClosingQuantityError struct {
	ProductName string
	Quantity    int
}

func (e *NegativeClosingQuantityError) Error() string {
	return fmt.Sprintf("closing quantity %d for product %q is negative", e.Quantity, e.ProductName)
}

// ClosingExceedsOpeningError is returned when a closing quantity exceeds the
// line's opening quantity.
type ClosingExceedsOpeningError struct {
	ProductName string
	Closing     int
	Opening     int
}

func (e *ClosingExceedsOpeningError) Error() string {
	return fmt.Sprintf("closing quantity %d for product %q exceeds opening quantity %d", e.Closing, e.ProductName, e.Opening)
}

// AlreadyFinishedError is returned when a close is attempted on a finished
// trip. It is not retryable: resubmitting a close indicates a caller bug.
type AlreadyFinishedError struct {
	TripID string
}

func (e *AlreadyFinishedError) Error() string {
	return fmt.Sprintf("trip %q is already finished", e.TripID)
}

// ConcurrentModificationError is returned when an optimistic-concurrency
// check fails, e.g. two callers racing to dispatch the same vehicle. The
// caller may retry after refetching state.
type ConcurrentModificationError struct {
	Entity string
	ID     string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %q was modified concurrently, refetch and retry", e.Entity, e.ID)
}

// InvalidRangeError is returned when a report date range has from after to.
type InvalidRangeError struct {
	From string
	To   string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: from %s is after to %s", e.From, e.To)
}
