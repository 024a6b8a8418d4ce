package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/beverloop/tripledger/internal/domain"
)

// --- Vehicles ---

func (s *Store) CreateVehicle(ctx context.Context, v domain.Vehicle) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vehicles (id, plate_code, model, status, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.PlateCode, v.Model, string(v.Status), v.Version,
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.PlateConflictError{PlateCode: v.PlateCode}
		}
		return fmt.Errorf("inserting vehicle: %w", err)
	}
	return nil
}

func (s *Store) GetVehicle(ctx context.Context, id string) (domain.Vehicle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plate_code, model, status, version, created_at, updated_at
		 FROM vehicles WHERE id = ?`, id,
	)

	v, err := scanVehicle(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Vehicle{}, domain.ErrVehicleNotFound
		}
		return domain.Vehicle{}, fmt.Errorf("scanning vehicle: %w", err)
	}
	return v, nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plate_code, model, status, version, created_at, updated_at
		 FROM vehicles ORDER BY plate_code`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning vehicle row: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

func scanVehicle(scan func(...any) error) (domain.Vehicle, error) {
	var v domain.Vehicle
	var status, createdAt, updatedAt string

	if err := scan(&v.ID, &v.PlateCode, &v.Model, &status, &v.Version, &createdAt, &updatedAt); err != nil {
		return domain.Vehicle{}, err
	}

	v.Status = domain.Status(status)
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	return v, nil
}

// UpdateVehicle compares-and-swaps on the vehicle version. A lost race
// surfaces as ConcurrentModificationError so the caller can retry on fresh
// state.
func (s *Store) UpdateVehicle(ctx context.Context, v domain.Vehicle) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vehicles SET plate_code = ?, model = ?, status = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		v.PlateCode, v.Model, string(v.Status),
		formatTime(time.Now().UTC()), v.ID, v.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.PlateConflictError{PlateCode: v.PlateCode}
		}
		return fmt.Errorf("updating vehicle: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetVehicle(ctx, v.ID); err != nil {
			return err
		}
		return &domain.ConcurrentModificationError{Entity: "vehicle", ID: v.ID}
	}

	return nil
}

// --- Drivers ---

func (s *Store) CreateDriver(ctx context.Context, d domain.Driver) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drivers (id, name, national_id, license_expiry, team_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.NationalID, formatTime(d.LicenseExpiry), d.TeamID, string(d.Status),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ValidationError{Field: "nationalId", Rule: "is already registered"}
		}
		return fmt.Errorf("inserting driver: %w", err)
	}
	return nil
}

func (s *Store) GetDriver(ctx context.Context, id string) (domain.Driver, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, national_id, license_expiry, team_id, status, created_at, updated_at
		 FROM drivers WHERE id = ?`, id,
	)

	d, err := scanDriver(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Driver{}, domain.ErrDriverNotFound
		}
		return domain.Driver{}, fmt.Errorf("scanning driver: %w", err)
	}
	return d, nil
}

func (s *Store) ListDrivers(ctx context.Context) ([]domain.Driver, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, national_id, license_expiry, team_id, status, created_at, updated_at
		 FROM drivers ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing drivers: %w", err)
	}
	defer rows.Close()

	var drivers []domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning driver row: %w", err)
		}
		drivers = append(drivers, d)
	}

	return drivers, rows.Err()
}

func scanDriver(scan func(...any) error) (domain.Driver, error) {
	var d domain.Driver
	var status, licenseExpiry, createdAt, updatedAt string
	var teamID sql.NullString

	if err := scan(&d.ID, &d.Name, &d.NationalID, &licenseExpiry, &teamID, &status, &createdAt, &updatedAt); err != nil {
		return domain.Driver{}, err
	}

	d.Status = domain.Status(status)
	d.LicenseExpiry = parseTime(licenseExpiry)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	if teamID.Valid {
		id := teamID.String
		d.TeamID = &id
	}
	return d, nil
}

func (s *Store) UpdateDriver(ctx context.Context, d domain.Driver) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE drivers SET name = ?, national_id = ?, license_expiry = ?, team_id = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		d.Name, d.NationalID, formatTime(d.LicenseExpiry), d.TeamID, string(d.Status),
		formatTime(time.Now().UTC()), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating driver: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrDriverNotFound
	}
	return nil
}

// --- Teams ---

func (s *Store) CreateTeam(ctx context.Context, t domain.Team) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, supervisor_id, supervisor_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.SupervisorID, t.SupervisorName,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting team: %w", err)
	}
	return nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	var t domain.Team
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, supervisor_id, supervisor_name, created_at, updated_at
		 FROM teams WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.SupervisorID, &t.SupervisorName, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Team{}, domain.ErrTeamNotFound
		}
		return domain.Team{}, fmt.Errorf("scanning team: %w", err)
	}

	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, supervisor_id, supervisor_name, created_at, updated_at
		 FROM teams ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.SupervisorID, &t.SupervisorName, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		teams = append(teams, t)
	}

	return teams, rows.Err()
}

func (s *Store) UpdateTeam(ctx context.Context, t domain.Team) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE teams SET name = ?, supervisor_id = ?, supervisor_name = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.SupervisorID, t.SupervisorName, formatTime(time.Now().UTC()), t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating team: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

// --- Products ---

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) error {
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, name, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Name, boolToInt(p.Active), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting product: %w", err)
		}

		for _, price := range p.Prices {
			if err := insertPrice(ctx, tx, price); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	var active int
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, active, created_at, updated_at FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &active, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("scanning product: %w", err)
	}
	p.Active = active != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	p.Prices, err = s.productPrices(ctx, p.ID)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	query := `SELECT id, name, active, created_at, updated_at FROM products`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		var active int
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		p.Active = active != 0
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		prices, err := s.productPrices(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Prices = prices
	}

	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, active = ?, updated_at = ? WHERE id = ?`,
		p.Name, boolToInt(p.Active), formatTime(time.Now().UTC()), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *Store) AddProductPrice(ctx context.Context, price domain.ProductPrice) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO product_prices (id, product_id, label, value, position) VALUES (?, ?, ?, ?, ?)`,
		price.ID, price.ProductID, price.Label, price.Value.String(), price.Position,
	)
	if err != nil {
		return fmt.Errorf("inserting product price: %w", err)
	}
	return nil
}

func insertPrice(ctx context.Context, tx *sql.Tx, price domain.ProductPrice) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO product_prices (id, product_id, label, value, position) VALUES (?, ?, ?, ?, ?)`,
		price.ID, price.ProductID, price.Label, price.Value.String(), price.Position,
	)
	if err != nil {
		return fmt.Errorf("inserting product price: %w", err)
	}
	return nil
}

func (s *Store) productPrices(ctx context.Context, productID string) ([]domain.ProductPrice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, label, value, position
		 FROM product_prices WHERE product_id = ? ORDER BY position`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying product prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.ProductPrice
	for rows.Next() {
		var p domain.ProductPrice
		var value string
		if err := rows.Scan(&p.ID, &p.ProductID, &p.Label, &value, &p.Position); err != nil {
			return nil, fmt.Errorf("scanning product price: %w", err)
		}
		if p.Value, err = parseDecimal(value); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}

	return prices, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
