package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/beverloop/tripledger/internal/domain"
)

const tracerName = "github.com/beverloop/tripledger/internal/adapter/otel"

// TracingRepository wraps a domain.TripRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.TripRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.TripRepository.
var _ domain.TripRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.TripRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Open(ctx context.Context, trip domain.Trip) error {
	ctx, span := r.tracer.Start(ctx, "TripRepository.Open",
		trace.WithAttributes(
			attribute.String("trip.id", trip.ID),
			attribute.String("trip.vehicle_id", trip.VehicleID),
			attribute.String("trip.driver_id", trip.DriverID),
			attribute.Int("trip.line_count", len(trip.Lines)),
		),
	)
	defer span.End()

	err := r.next.Open(ctx, trip)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) Close(ctx context.Context, trip domain.Trip) error {
	ctx, span := r.tracer.Start(ctx, "TripRepository.Close",
		trace.WithAttributes(
			attribute.String("trip.id", trip.ID),
			attribute.String("trip.vehicle_id", trip.VehicleID),
			attribute.String("trip.driver_id", trip.DriverID),
		),
	)
	defer span.End()

	if trip.TotalRevenue != nil {
		span.SetAttributes(attribute.String("trip.total_revenue", trip.TotalRevenue.StringFixed(2)))
	}

	err := r.next.Close(ctx, trip)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	ctx, span := r.tracer.Start(ctx, "TripRepository.GetByID",
		trace.WithAttributes(attribute.String("trip.id", id)),
	)
	defer span.End()

	trip, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return trip, err
}

func (r *TracingRepository) ListActive(ctx context.Context) ([]domain.Trip, error) {
	ctx, span := r.tracer.Start(ctx, "TripRepository.ListActive")
	defer span.End()

	trips, err := r.next.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(trips)))
	}
	return trips, err
}

func (r *TracingRepository) SearchFinished(ctx context.Context, filter domain.TripFilter, page domain.PageRequest) (domain.Page[domain.Trip], error) {
	ctx, span := r.tracer.Start(ctx, "TripRepository.SearchFinished",
		trace.WithAttributes(
			attribute.Int("page.number", page.Page),
			attribute.Int("page.size", page.Size),
		),
	)
	defer span.End()

	if filter.SupervisorID != nil {
		span.SetAttributes(attribute.String("filter.supervisor_id", *filter.SupervisorID))
	}

	result, err := r.next.SearchFinished(ctx, filter, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(result.Content)))
	}
	return result, err
}
