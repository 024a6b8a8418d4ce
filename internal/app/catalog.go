package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beverloop/tripledger/internal/domain"
)

// CatalogService manages the master data the trip engine consumes:
// vehicles, drivers, teams, and products with their price tiers.
type CatalogService struct {
	vehicles  domain.VehicleRepository
	drivers   domain.DriverRepository
	teams     domain.TeamRepository
	products  domain.ProductRepository
	validator domain.TransitionValidator
}

// NewCatalogService creates a service with the given adapters.
func NewCatalogService(
	vehicles domain.VehicleRepository,
	drivers domain.DriverRepository,
	teams domain.TeamRepository,
	products domain.ProductRepository,
	validator domain.TransitionValidator,
) *CatalogService {
	return &CatalogService{
		vehicles:  vehicles,
		drivers:   drivers,
		teams:     teams,
		products:  products,
		validator: validator,
	}
}

// --- Vehicles ---

// CreateVehicle registers a new available vehicle.
func (s *CatalogService) CreateVehicle(ctx context.Context, plateCode, model string) (domain.Vehicle, error) {
	vehicle, err := domain.NewVehicle(newID(), plateCode, model)
	if err != nil {
		return domain.Vehicle{}, err
	}
	if err := s.vehicles.CreateVehicle(ctx, vehicle); err != nil {
		return domain.Vehicle{}, fmt.Errorf("creating vehicle: %w", err)
	}
	return vehicle, nil
}

// ListVehicles returns all vehicles.
func (s *CatalogService) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return s.vehicles.ListVehicles(ctx)
}

// TransitionVehicle applies an operator lifecycle event to a vehicle, e.g.
// sending it to maintenance or retiring it. Dispatch and release are driven
// by the trip lifecycle, not by this method.
func (s *CatalogService) TransitionVehicle(ctx context.Context, id string, event domain.Event) (domain.Vehicle, error) {
	vehicle, err := s.vehicles.GetVehicle(ctx, id)
	if err != nil {
		return domain.Vehicle{}, err
	}

	if event == domain.EventDispatch || event == domain.EventRelease {
		return domain.Vehicle{}, &domain.TransitionError{Event: event, Current: vehicle.Status}
	}

	next, err := s.validator.Apply(ctx, domain.VehicleTransitions, vehicle.Status, event)
	if err != nil {
		return domain.Vehicle{}, err
	}

	vehicle.Status = next
	if err := s.vehicles.UpdateVehicle(ctx, vehicle); err != nil {
		return domain.Vehicle{}, fmt.Errorf("updating vehicle: %w", err)
	}
	vehicle.Version++

	return vehicle, nil
}

// --- Drivers ---

// DriverSummary is a driver flattened with its team and supervisor names
// for listing.
type DriverSummary struct {
	domain.Driver
	TeamName       string
	SupervisorName string
}

// CreateDriver registers a new available driver, optionally assigned to a team.
func (s *CatalogService) CreateDriver(ctx context.Context, name, nationalID string, licenseExpiry time.Time, teamID *string) (domain.Driver, error) {
	driver, err := domain.NewDriver(newID(), name, nationalID, licenseExpiry)
	if err != nil {
		return domain.Driver{}, err
	}

	if teamID != nil {
		if _, err := s.teams.GetTeam(ctx, *teamID); err != nil {
			return domain.Driver{}, err
		}
		driver.TeamID = teamID
	}

	if err := s.drivers.CreateDriver(ctx, driver); err != nil {
		return domain.Driver{}, fmt.Errorf("creating driver: %w", err)
	}
	return driver, nil
}

// AssignDriverTeam moves a driver to a team, or removes the assignment when
// teamID is nil. Trips already opened under the previous team's supervisor
// keep that supervisor.
func (s *CatalogService) AssignDriverTeam(ctx context.Context, driverID string, teamID *string) (domain.Driver, error) {
	driver, err := s.drivers.GetDriver(ctx, driverID)
	if err != nil {
		return domain.Driver{}, err
	}

	if teamID != nil {
		if _, err := s.teams.GetTeam(ctx, *teamID); err != nil {
			return domain.Driver{}, err
		}
	}

	driver.TeamID = teamID
	if err := s.drivers.UpdateDriver(ctx, driver); err != nil {
		return domain.Driver{}, fmt.Errorf("updating driver: %w", err)
	}
	return driver, nil
}

// TransitionDriver applies an operator lifecycle event to a driver, e.g.
// marking a license as expired or retiring the driver.
func (s *CatalogService) TransitionDriver(ctx context.Context, id string, event domain.Event) (domain.Driver, error) {
	driver, err := s.drivers.GetDriver(ctx, id)
	if err != nil {
		return domain.Driver{}, err
	}

	if event == domain.EventDispatch || event == domain.EventRelease {
		return domain.Driver{}, &domain.TransitionError{Event: event, Current: driver.Status}
	}

	next, err := s.validator.Apply(ctx, domain.DriverTransitions, driver.Status, event)
	if err != nil {
		return domain.Driver{}, err
	}

	driver.Status = next
	if err := s.drivers.UpdateDriver(ctx, driver); err != nil {
		return domain.Driver{}, fmt.Errorf("updating driver: %w", err)
	}

	return driver, nil
}

// ListDrivers returns all drivers flattened with team and supervisor names.
func (s *CatalogService) ListDrivers(ctx context.Context) ([]DriverSummary, error) {
	drivers, err := s.drivers.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}

	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	out := make([]DriverSummary, len(drivers))
	for i, d := range drivers {
		out[i] = DriverSummary{Driver: d}
		if d.TeamID != nil {
			if team, ok := byID[*d.TeamID]; ok {
				out[i].TeamName = team.Name
				out[i].SupervisorName = team.SupervisorName
			}
		}
	}
	return out, nil
}

// --- Teams ---

// CreateTeam registers a team with its supervising user.
func (s *CatalogService) CreateTeam(ctx context.Context, name, supervisorID, supervisorName string) (domain.Team, error) {
	team, err := domain.NewTeam(newID(), name, supervisorID, supervisorName)
	if err != nil {
		return domain.Team{}, err
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return domain.Team{}, fmt.Errorf("creating team: %w", err)
	}
	return team, nil
}

// ReassignSupervisor changes a team's supervising user. Trips opened under
// the previous supervisor are not rewritten.
func (s *CatalogService) ReassignSupervisor(ctx context.Context, teamID, supervisorID, supervisorName string) (domain.Team, error) {
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return domain.Team{}, err
	}

	team.SupervisorID = supervisorID
	team.SupervisorName = supervisorName
	if err := s.teams.UpdateTeam(ctx, team); err != nil {
		return domain.Team{}, fmt.Errorf("updating team: %w", err)
	}
	return team, nil
}

// ListTeams returns all teams.
func (s *CatalogService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	return s.teams.ListTeams(ctx)
}

// --- Products ---

// PriceTierInput is one price tier of a product creation request.
type PriceTierInput struct {
	Label string
	Value decimal.Decimal
}

// CreateProduct registers an active product with its initial price tiers.
func (s *CatalogService) CreateProduct(ctx context.Context, name string, tiers []PriceTierInput) (domain.Product, error) {
	productID := newID()
	prices := make([]domain.ProductPrice, len(tiers))
	for i, t := range tiers {
		prices[i] = domain.ProductPrice{
			ID:        newID(),
			ProductID: productID,
			Label:     t.Label,
			Value:     t.Value,
			Position:  i,
		}
	}

	product, err := domain.NewProduct(productID, name, prices)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("creating product: %w", err)
	}
	return product, nil
}

// AddPriceTier appends a price tier to an existing product.
func (s *CatalogService) AddPriceTier(ctx context.Context, productID, label string, value decimal.Decimal) (domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if label == "" {
		return domain.Product{}, &domain.ValidationError{Field: "label", Rule: "must not be empty"}
	}
	if !value.IsPositive() {
		return domain.Product{}, &domain.ValidationError{Field: "value", Rule: "must be a positive decimal"}
	}
	if value.Exponent() < -2 {
		return domain.Product{}, &domain.ValidationError{Field: "value", Rule: "must have at most two decimal places"}
	}

	price := domain.ProductPrice{
		ID:        newID(),
		ProductID: product.ID,
		Label:     label,
		Value:     value,
		Position:  len(product.Prices),
	}
	if err := s.products.AddProductPrice(ctx, price); err != nil {
		return domain.Product{}, fmt.Errorf("adding price tier: %w", err)
	}

	product.Prices = append(product.Prices, price)
	return product, nil
}

// DeactivateProduct soft-deletes a product while keeping its price history.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	product.Deactivate()
	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("updating product: %w", err)
	}
	return product, nil
}

// ReactivateProduct makes a soft-deleted product sellable again.
func (s *CatalogService) ReactivateProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	product.Reactivate()
	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("updating product: %w", err)
	}
	return product, nil
}

// ListProducts returns products with their price tiers, optionally only
// active ones.
func (s *CatalogService) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	return s.products.ListProducts(ctx, activeOnly)
}
