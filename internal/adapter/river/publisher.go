package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/beverloop/tripledger/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries the data needed to process a trip event asynchronously.
// River serializes this as JSON into its job queue table. It includes a snapshot
// of the trip at the time the event was published, so the worker never needs
// to query the database.
type EventJobArgs struct {
	Event        string `json:"event"`
	TripID       string `json:"trip_id"`
	VehicleID    string `json:"vehicle_id"`
	DriverID     string `json:"driver_id"`
	SupervisorID string `json:"supervisor_id"`
	Status       string `json:"status"`
	TotalRevenue string `json:"total_revenue,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "trip.lifecycle" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a trip lifecycle event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, trip domain.Trip) error {
	args := EventJobArgs{
		Event:        string(event),
		TripID:       trip.ID,
		VehicleID:    trip.VehicleID,
		DriverID:     trip.DriverID,
		SupervisorID: trip.SupervisorID,
		Status:       string(trip.Status),
	}
	if trip.TotalRevenue != nil {
		args.TotalRevenue = trip.TotalRevenue.StringFixed(2)
	}

	if _, err := p.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
