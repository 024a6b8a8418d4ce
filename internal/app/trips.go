package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beverloop/tripledger/internal/domain"
)

// TripService orchestrates the trip lifecycle: it builds and validates
// trip-opening commands, reconciles closes, and reads trips back.
type TripService struct {
	trips     domain.TripRepository
	vehicles  domain.VehicleRepository
	drivers   domain.DriverRepository
	teams     domain.TeamRepository
	products  domain.ProductRepository
	publisher domain.EventPublisher
}

// NewTripService creates a service with the given adapters.
func NewTripService(
	trips domain.TripRepository,
	vehicles domain.VehicleRepository,
	drivers domain.DriverRepository,
	teams domain.TeamRepository,
	products domain.ProductRepository,
	publisher domain.EventPublisher,
) *TripService {
	return &TripService{
		trips:     trips,
		vehicles:  vehicles,
		drivers:   drivers,
		teams:     teams,
		products:  products,
		publisher: publisher,
	}
}

// Open validates a trip-opening request as a whole and, if every check
// passes, dispatches the vehicle and driver and persists the new trip in a
// single atomic store transition. On any validation failure nothing is
// written.
func (s *TripService) Open(ctx context.Context, vehicleID, driverID string, cargo []domain.CargoLine) (domain.Trip, error) {
	if err := domain.ValidateManifest(cargo); err != nil {
		return domain.Trip{}, err
	}

	vehicle, err := s.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		return domain.Trip{}, err
	}
	driver, err := s.drivers.GetDriver(ctx, driverID)
	if err != nil {
		return domain.Trip{}, err
	}

	supervisorID, err := s.deriveSupervisor(ctx, driver)
	if err != nil {
		return domain.Trip{}, err
	}

	now := time.Now().UTC()
	if vehicle.Status != domain.StatusAvailable {
		return domain.Trip{}, &domain.ResourceUnavailableError{
			Resource: "vehicle", ID: vehicle.ID,
			Reason: fmt.Sprintf("in state %q, needs to be available", vehicle.Status),
		}
	}
	if driver.Status != domain.StatusAvailable {
		return domain.Trip{}, &domain.ResourceUnavailableError{
			Resource: "driver", ID: driver.ID,
			Reason: fmt.Sprintf("in state %q, needs to be available", driver.Status),
		}
	}
	if !driver.LicenseValidAt(now) {
		return domain.Trip{}, &domain.ResourceUnavailableError{
			Resource: "driver", ID: driver.ID,
			Reason: fmt.Sprintf("license expired on %s", driver.LicenseExpiry.Format(domain.DateFormat)),
		}
	}

	lines, err := s.buildLines(ctx, cargo)
	if err != nil {
		return domain.Trip{}, err
	}

	trip := domain.NewTrip(newID(), vehicle.ID, driver.ID, supervisorID, lines)

	if err := s.trips.Open(ctx, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("opening trip: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventTripOpened, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("publishing open event: %w", err)
	}

	return trip, nil
}

// deriveSupervisor recomputes the supervisor from the driver's team; it is
// never taken from the caller.
func (s *TripService) deriveSupervisor(ctx context.Context, driver domain.Driver) (string, error) {
	if driver.TeamID == nil {
		return domain.DeriveSupervisor(driver, nil)
	}
	team, err := s.teams.GetTeam(ctx, *driver.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return domain.DeriveSupervisor(driver, nil)
		}
		return "", err
	}
	return domain.DeriveSupervisor(driver, &team)
}

// buildLines resolves each cargo line against the product catalog and
// snapshots the product name, tier label and unit price into trip lines.
func (s *TripService) buildLines(ctx context.Context, cargo []domain.CargoLine) ([]domain.TripLine, error) {
	byID := make(map[string]domain.Product)

	lines := make([]domain.TripLine, 0, len(cargo))
	for _, c := range cargo {
		product, ok := byID[c.ProductID]
		if !ok {
			var err error
			product, err = s.products.GetProduct(ctx, c.ProductID)
			if err != nil {
				return nil, err
			}
			byID[c.ProductID] = product
		}

		if !product.Active {
			return nil, &domain.ResourceUnavailableError{
				Resource: "product", ID: product.ID, Reason: "product is inactive",
			}
		}

		tier, ok := product.Tier(c.PriceTierID)
		if !ok {
			return nil, &domain.InvalidPriceTierError{ProductID: c.ProductID, PriceTierID: c.PriceTierID}
		}

		lines = append(lines, domain.TripLine{
			ID:          newID(),
			ProductID:   product.ID,
			PriceTierID: tier.ID,
			ProductName: product.Name,
			TierLabel:   tier.Label,
			UnitPrice:   tier.Value,
			OpeningQty:  c.OpeningQty,
		})
	}

	return lines, nil
}

// Close reconciles an in-progress trip against the reported final
// quantities, computes revenue, and applies the finished state atomically.
// It is deliberately not idempotent: closing an already-finished trip fails
// with AlreadyFinishedError so a retry can never double-release resources.
func (s *TripService) Close(ctx context.Context, tripID string, finals []domain.FinalQuantity) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}

	if err := trip.Reconcile(finals, time.Now()); err != nil {
		return domain.Trip{}, err
	}

	if err := s.trips.Close(ctx, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("closing trip: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventTripClosed, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("publishing close event: %w", err)
	}

	return trip, nil
}

// GetByID returns a trip with its line items.
func (s *TripService) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	return s.trips.GetByID(ctx, id)
}

// ListActive returns all trips currently in progress.
func (s *TripService) ListActive(ctx context.Context) ([]domain.Trip, error) {
	return s.trips.ListActive(ctx)
}

// SearchFinished returns one page of finished trips matching the filter.
func (s *TripService) SearchFinished(ctx context.Context, filter domain.TripFilter, page domain.PageRequest) (domain.Page[domain.Trip], error) {
	if err := page.Validate(); err != nil {
		return domain.Page[domain.Trip]{}, err
	}
	return s.trips.SearchFinished(ctx, filter, page)
}
