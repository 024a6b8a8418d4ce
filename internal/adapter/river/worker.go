package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// EventWorker processes trip lifecycle event jobs from the River queue.
// For now it logs the event; future versions will dispatch to
// webhooks, settlement exports, or notification systems.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing trip event",
		"event", job.Args.Event,
		"trip_id", job.Args.TripID,
		"vehicle_id", job.Args.VehicleID,
		"driver_id", job.Args.DriverID,
		"total_revenue", job.Args.TotalRevenue,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
