package domain

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var (
	plateCodePattern  = regexp.MustCompile(`^[A-Z0-9]{6,10}$`)
	nationalIDPattern = regexp.MustCompile(`^[0-9]{7,15}$`)
)

// Vehicle is a dispatchable delivery vehicle. Version is a monotonic
// counter used for optimistic concurrency at the store boundary.
type Vehicle struct {
	ID        string
	PlateCode string
	Model     string
	Status    Status
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewVehicle creates an available vehicle. The plate code must be uppercase
// alphanumeric, 6 to 10 characters.
func NewVehicle(id, plateCode, model string) (Vehicle, error) {
	if !plateCodePattern.MatchString(plateCode) {
		return Vehicle{}, &ValidationError{Field: "plateCode", Rule: "must be uppercase alphanumeric, 6-10 characters"}
	}
	if model == "" {
		return Vehicle{}, &ValidationError{Field: "model", Rule: "must not be empty"}
	}

	now := time.Now().UTC()
	return Vehicle{
		ID:        id,
		PlateCode: plateCode,
		Model:     model,
		Status:    StatusAvailable,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Driver is a person eligible to be dispatched on trips. TeamID is nil for
// drivers not yet assigned to a team; such drivers cannot start a trip
// because the trip supervisor is derived from the team.
type Driver struct {
	ID            string
	Name          string
	NationalID    string
	LicenseExpiry time.Time
	TeamID        *string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDriver creates an available driver. The national id must be a numeric
// string of 7 to 15 digits and the license expiry strictly in the future.
func NewDriver(id, name, nationalID string, licenseExpiry time.Time) (Driver, error) {
	if name == "" {
		return Driver{}, &ValidationError{Field: "name", Rule: "must not be empty"}
	}
	if !nationalIDPattern.MatchString(nationalID) {
		return Driver{}, &ValidationError{Field: "nationalId", Rule: "must be a numeric string of 7-15 digits"}
	}
	if !licenseExpiry.After(time.Now().UTC()) {
		return Driver{}, &ValidationError{Field: "licenseExpiry", Rule: "must be strictly in the future"}
	}

	now := time.Now().UTC()
	return Driver{
		ID:            id,
		Name:          name,
		NationalID:    nationalID,
		LicenseExpiry: licenseExpiry,
		Status:        StatusAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// LicenseValidAt reports whether the driver's license is unexpired at t.
func (d Driver) LicenseValidAt(t time.Time) bool {
	return d.LicenseExpiry.After(t)
}

// Team groups drivers under exactly one supervising user. The supervisor
// name is kept denormalized for report rows; trips snapshot the supervisor
// id at open time, so reassigning a supervisor never rewrites past trips.
type Team struct {
	ID             string
	Name           string
	SupervisorID   string
	SupervisorName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTeam creates a team with its supervising user.
func NewTeam(id, name, supervisorID, supervisorName string) (Team, error) {
	if name == "" {
		return Team{}, &ValidationError{Field: "name", Rule: "must not be empty"}
	}
	if supervisorID == "" {
		return Team{}, &ValidationError{Field: "supervisorId", Rule: "must not be empty"}
	}

	now := time.Now().UTC()
	return Team{
		ID:             id,
		Name:           name,
		SupervisorID:   supervisorID,
		SupervisorName: supervisorName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ProductPrice is one named price tier of a product, e.g. "wholesale".
type ProductPrice struct {
	ID        string
	ProductID string
	Label     string
	Value     decimal.Decimal
	Position  int
}

// Product is a sellable item owning an ordered set of price tiers. Products
// are soft-deleted: deactivation keeps the price history intact and the
// product can be reactivated later.
type Product struct {
	ID        string
	Name      string
	Active    bool
	Prices    []ProductPrice
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct creates an active product with the given price tiers. Every
// tier needs a label and a positive value with at most two decimal places,
// so all revenue derived from it stays exact in fixed-point form.
func NewProduct(id, name string, prices []ProductPrice) (Product, error) {
	if name == "" {
		return Product{}, &ValidationError{Field: "name", Rule: "must not be empty"}
	}
	for _, p := range prices {
		if p.Label == "" {
			return Product{}, &ValidationError{Field: "prices.label", Rule: "must not be empty"}
		}
		if !p.Value.IsPositive() {
			return Product{}, &ValidationError{Field: "prices.value", Rule: "must be a positive decimal"}
		}
		if p.Value.Exponent() < -2 {
			return Product{}, &ValidationError{Field: "prices.value", Rule: "must have at most two decimal places"}
		}
	}

	now := time.Now().UTC()
	return Product{
		ID:        id,
		Name:      name,
		Active:    true,
		Prices:    prices,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Tier returns the price tier with the given id, if it belongs to the product.
func (p Product) Tier(tierID string) (ProductPrice, bool) {
	for _, tier := range p.Prices {
		if tier.ID == tierID {
			return tier, true
		}
	}
	return ProductPrice{}, false
}

// Deactivate soft-deletes the product. Price history is retained.
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
}

// Reactivate makes a soft-deleted product sellable again.
func (p *Product) Reactivate() {
	p.Active = true
	p.UpdatedAt = time.Now().UTC()
}
