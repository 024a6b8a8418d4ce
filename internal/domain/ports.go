package domain

import "context"

// TripRepository is the Trip State Store: the authoritative, append-mostly
// record of trips. Open and Close are single atomic transitions; they also
// flip the assigned vehicle and driver, and enforce the one-active-trip-per-
// resource invariant and the version checks at the store boundary.
type TripRepository interface {
	// Open persists a new in-progress trip, moves its vehicle to on_trip
	// and its driver to busy. Fails with ConcurrentModificationError when
	// another caller grabbed the vehicle or driver first.
	Open(ctx context.Context, trip Trip) error
	// Close persists a reconciled trip and releases its vehicle and driver.
	// The trip's version is compared-and-swapped.
	Close(ctx context.Context, trip Trip) error
	GetByID(ctx context.Context, id string) (Trip, error)
	ListActive(ctx context.Context) ([]Trip, error)
	SearchFinished(ctx context.Context, filter TripFilter, page PageRequest) (Page[Trip], error)
}

// VehicleRepository defines the persistence contract for vehicles.
type VehicleRepository interface {
	CreateVehicle(ctx context.Context, v Vehicle) error
	GetVehicle(ctx context.Context, id string) (Vehicle, error)
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	// UpdateVehicle compares-and-swaps on the vehicle version.
	UpdateVehicle(ctx context.Context, v Vehicle) error
}

// DriverRepository defines the persistence contract for drivers.
type DriverRepository interface {
	CreateDriver(ctx context.Context, d Driver) error
	GetDriver(ctx context.Context, id string) (Driver, error)
	ListDrivers(ctx context.Context) ([]Driver, error)
	UpdateDriver(ctx context.Context, d Driver) error
}

// TeamRepository defines the persistence contract for teams.
type TeamRepository interface {
	CreateTeam(ctx context.Context, t Team) error
	GetTeam(ctx context.Context, id string) (Team, error)
	ListTeams(ctx context.Context) ([]Team, error)
	UpdateTeam(ctx context.Context, t Team) error
}

// ProductRepository defines the persistence contract for products and their
// price tiers.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	AddProductPrice(ctx context.Context, price ProductPrice) error
}

// ReportStore reads the finished-trip log for the reporting aggregator.
// All methods are read-only projections; recomputing them never mutates
// the log.
type ReportStore interface {
	// FinishedLines returns every reconciled line of trips closed within
	// the query range, optionally scoped to one supervisor.
	FinishedLines(ctx context.Context, q ReportQuery) ([]ReconciledLine, error)
	// ActiveTripCount counts trips currently in progress, unscoped by date.
	ActiveTripCount(ctx context.Context) (int, error)
	// AuditTrail returns one page of finished line items with their trip,
	// driver, vehicle and team context.
	AuditTrail(ctx context.Context, q ReportQuery, page PageRequest) (Page[AuditRow], error)
}

// EventPublisher defines the contract for emitting trip domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, trip Trip) error
}

// TransitionValidator checks lifecycle transitions against a transition
// table and returns the destination state.
type TransitionValidator interface {
	Apply(ctx context.Context, table []Transition, current Status, event Event) (Status, error)
}
