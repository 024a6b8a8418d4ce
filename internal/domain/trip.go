package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a vehicle, driver, or trip.
// The three entities share one status space; each has its own transition table.
type Status string

const (
	// Vehicle and driver states.
	StatusAvailable      Status = "available"
	StatusOnTrip         Status = "on_trip"
	StatusMaintenance    Status = "maintenance"
	StatusBusy           Status = "busy"
	StatusLicenseExpired Status = "license_expired"
	StatusRetired        Status = "retired"

	// Trip states.
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Event represents an action that triggers a state transition or is
// published to the event queue when a trip changes state.
type Event string

const (
	EventDispatch          Event = "dispatch"
	EventRelease           Event = "release"
	EventSendToMaintenance Event = "send_to_maintenance"
	EventReturnToService   Event = "return_to_service"
	EventExpireLicense     Event = "expire_license"
	EventRenewLicense      Event = "renew_license"
	EventRetire            Event = "retire"
	EventClose             Event = "close"

	// Published domain events.
	EventTripOpened Event = "trip_opened"
	EventTripClosed Event = "trip_closed"
)

// Transition defines a valid state change: an event moves an entity from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// VehicleTransitions defines all valid vehicle state changes.
// Retirement is terminal; no transition leaves the retired state.
// This is domain knowledge consumed by the FSM adapter.
var VehicleTransitions = []Transition{
	{Event: EventDispatch, Src: StatusAvailable, Dst: StatusOnTrip},
	{Event: EventRelease, Src: StatusOnTrip, Dst: StatusAvailable},
	{Event: EventSendToMaintenance, Src: StatusAvailable, Dst: StatusMaintenance},
	{Event: EventReturnToService, Src: StatusMaintenance, Dst: StatusAvailable},
	{Event: EventRetire, Src: StatusAvailable, Dst: StatusRetired},
	{Event: EventRetire, Src: StatusMaintenance, Dst: StatusRetired},
	{Event: EventRetire, Src: StatusOnTrip, Dst: StatusRetired},
}

// DriverTransitions defines all valid driver state changes.
var DriverTransitions = []Transition{
	{Event: EventDispatch, Src: StatusAvailable, Dst: StatusBusy},
	{Event: EventRelease, Src: StatusBusy, Dst: StatusAvailable},
	{Event: EventExpireLicense, Src: StatusAvailable, Dst: StatusLicenseExpired},
	{Event: EventRenewLicense, Src: StatusLicenseExpired, Dst: StatusAvailable},
	{Event: EventRetire, Src: StatusAvailable, Dst: StatusRetired},
	{Event: EventRetire, Src: StatusBusy, Dst: StatusRetired},
	{Event: EventRetire, Src: StatusLicenseExpired, Dst: StatusRetired},
}

// TripTransitions defines all valid trip state changes. A finished trip
// is terminal; there is no reopening.
var TripTransitions = []Transition{
	{Event: EventClose, Src: StatusInProgress, Dst: StatusFinished},
}

// CargoLine is one entry of a trip-opening manifest as supplied by the caller.
type CargoLine struct {
	ProductID   string
	PriceTierID string
	OpeningQty  int
}

// FinalQuantity reports the remaining quantity of one line at trip close.
type FinalQuantity struct {
	LineItemID string
	ClosingQty int
}

// TripLine is one priced cargo line of a trip. ProductName, TierLabel and
// UnitPrice are snapshotted from the catalog at open time so later price or
// name changes never affect the trip.
type TripLine struct {
	ID          string
	ProductID   string
	PriceTierID string
	ProductName string
	TierLabel   string
	UnitPrice   decimal.Decimal
	OpeningQty  int
	ClosingQty  *int
	Revenue     *decimal.Decimal
}

// UnitsSold returns opening minus closing quantity, or zero while the
// line is still open.
func (l TripLine) UnitsSold() int {
	if l.ClosingQty == nil {
		return 0
	}
	return l.OpeningQty - *l.ClosingQty
}

// Trip is the central aggregate: one dispatch cycle of a vehicle and driver
// carrying priced cargo, from open to close. Version is a monotonic counter
// used for optimistic concurrency at the store boundary.
type Trip struct {
	ID           string
	VehicleID    string
	DriverID     string
	SupervisorID string
	Status       Status
	StartedAt    time.Time
	EndedAt      *time.Time
	TotalRevenue *decimal.Decimal
	Version      int64
	Lines        []TripLine
}

// NewTrip creates a trip in the in_progress state with the given line
// snapshots. Lines must already be validated and priced.
func NewTrip(id, vehicleID, driverID, supervisorID string, lines []TripLine) Trip {
	return Trip{
		ID:           id,
		VehicleID:    vehicleID,
		DriverID:     driverID,
		SupervisorID: supervisorID,
		Status:       StatusInProgress,
		StartedAt:    time.Now().UTC(),
		Version:      1,
		Lines:        lines,
	}
}

// ValidateManifest checks the whole cargo manifest before any line is
// accepted: it must be non-empty, every opening quantity must be a positive
// integer, and every (product, price tier) pair must be unique.
func ValidateManifest(cargo []CargoLine) error {
	if len(cargo) == 0 {
		return ErrEmptyManifest
	}

	type pair struct{ productID, tierID string }
	seen := make(map[pair]struct{}, len(cargo))

	for _, line := range cargo {
		if line.OpeningQty <= 0 {
			return &ValidationError{Field: "openingQuantity", Rule: "must be a positive integer"}
		}
		p := pair{productID: line.ProductID, tierID: line.PriceTierID}
		if _, dup := seen[p]; dup {
			return &DuplicateCargoLineError{ProductID: line.ProductID, PriceTierID: line.PriceTierID}
		}
		seen[p] = struct{}{}
	}

	return nil
}

// DeriveSupervisor resolves the supervisor for a trip from the driver's
// team. The supervisor id is never caller-supplied; it must be recomputed
// on every driver change so a stale value is never submitted.
func DeriveSupervisor(driver Driver, team *Team) (string, error) {
	if driver.TeamID == nil || team == nil {
		return "", &MissingSupervisorError{DriverID: driver.ID}
	}
	return team.SupervisorID, nil
}

// Reconcile closes the trip in memory: it checks that finals cover exactly
// the trip's line items and that every closing quantity is within bounds,
// then computes per-line and total revenue with exact decimal arithmetic
// and moves the trip to the finished state.
//
// It is all-or-nothing: on any error the trip is left unmodified.
func (t *Trip) Reconcile(finals []FinalQuantity, now time.Time) error {
	if t.Status == StatusFinished {
		return &AlreadyFinishedError{TripID: t.ID}
	}

	lineIDs := make(map[string]struct{}, len(t.Lines))
	for _, l := range t.Lines {
		lineIDs[l.ID] = struct{}{}
	}

	byLine := make(map[string]int, len(finals))
	for _, f := range finals {
		if _, ok := lineIDs[f.LineItemID]; !ok {
			return &UnknownLineItemError{LineItemID: f.LineItemID}
		}
		byLine[f.LineItemID] = f.ClosingQty
	}

	var missing []string
	for _, l := range t.Lines {
		if _, ok := byLine[l.ID]; !ok {
			missing = append(missing, l.ID)
		}
	}
	if len(missing) > 0 {
		return &IncompleteReconciliationError{MissingLineIDs: missing}
	}

	for _, l := range t.Lines {
		closing := byLine[l.ID]
		if closing < 0 {
			return &NegativeClosingQuantityError{ProductName: l.ProductName, Quantity: closing}
		}
		if closing > l.OpeningQty {
			return &ClosingExceedsOpeningError{ProductName: l.ProductName, Closing: closing, Opening: l.OpeningQty}
		}
	}

	// All lines validated; apply the close.
	total := decimal.Zero
	for i := range t.Lines {
		closing := byLine[t.Lines[i].ID]
		unitsSold := t.Lines[i].OpeningQty - closing
		revenue := t.Lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(unitsSold)))

		t.Lines[i].ClosingQty = &closing
		t.Lines[i].Revenue = &revenue
		total = total.Add(revenue)
	}

	endedAt := now.UTC()
	if endedAt.Before(t.StartedAt) {
		endedAt = t.StartedAt
	}

	t.Status = StatusFinished
	t.EndedAt = &endedAt
	t.TotalRevenue = &total

	return nil
}
