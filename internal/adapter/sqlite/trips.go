package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/beverloop/tripledger/internal/domain"
)

// Open persists a new in-progress trip and dispatches its vehicle and
// driver in one transaction. The compare-and-swap updates plus the partial
// unique indexes on active trips guarantee a vehicle or driver can never be
// on two trips at once, no matter how many callers race.
func (s *Store) Open(ctx context.Context, trip domain.Trip) error {
	return s.inTx(func(tx *sql.Tx) error {
		now := formatTime(trip.StartedAt)

		res, err := tx.ExecContext(ctx,
			`UPDATE vehicles SET status = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND status = ?`,
			string(domain.StatusOnTrip), now, trip.VehicleID, string(domain.StatusAvailable),
		)
		if err != nil {
			return fmt.Errorf("dispatching vehicle: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		} else if n == 0 {
			return &domain.ConcurrentModificationError{Entity: "vehicle", ID: trip.VehicleID}
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE drivers SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(domain.StatusBusy), now, trip.DriverID, string(domain.StatusAvailable),
		)
		if err != nil {
			return fmt.Errorf("dispatching driver: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		} else if n == 0 {
			return &domain.ConcurrentModificationError{Entity: "driver", ID: trip.DriverID}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO trips (id, vehicle_id, driver_id, supervisor_id, status, started_at, ended_at, total_revenue, version)
			 VALUES (?, ?, ?, ?, ?, ?, NULL, NULL, ?)`,
			trip.ID, trip.VehicleID, trip.DriverID, trip.SupervisorID,
			string(trip.Status), formatTime(trip.StartedAt), trip.Version,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.ConcurrentModificationError{Entity: "trip", ID: trip.ID}
			}
			return fmt.Errorf("inserting trip: %w", err)
		}

		for _, l := range trip.Lines {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO trip_lines (id, trip_id, product_id, price_tier_id, product_name, tier_label, unit_price, opening_qty, closing_qty, revenue)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
				l.ID, trip.ID, l.ProductID, l.PriceTierID,
				l.ProductName, l.TierLabel, l.UnitPrice.String(), l.OpeningQty,
			)
			if err != nil {
				return fmt.Errorf("inserting trip line: %w", err)
			}
		}

		return nil
	})
}

// Close persists a reconciled trip and releases its vehicle and driver in
// one transaction. The trip row is compared-and-swapped on its version, so
// two racing closes can never both finish the same trip.
func (s *Store) Close(ctx context.Context, trip domain.Trip) error {
	return s.inTx(func(tx *sql.Tx) error {
		if trip.EndedAt == nil || trip.TotalRevenue == nil {
			return fmt.Errorf("trip %s is not reconciled", trip.ID)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE trips SET status = ?, ended_at = ?, total_revenue = ?, version = version + 1
			 WHERE id = ? AND version = ? AND status = ?`,
			string(domain.StatusFinished), formatTime(*trip.EndedAt), trip.TotalRevenue.String(),
			trip.ID, trip.Version, string(domain.StatusInProgress),
		)
		if err != nil {
			return fmt.Errorf("finishing trip: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		} else if n == 0 {
			// Distinguish a lost race from a close that can never succeed:
			// once the trip is finished, retrying is pointless.
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM trips WHERE id = ?`, trip.ID,
			).Scan(&status)
			switch {
			case err == sql.ErrNoRows:
				return domain.ErrTripNotFound
			case err != nil:
				return fmt.Errorf("checking trip status: %w", err)
			case status == string(domain.StatusFinished):
				return &domain.AlreadyFinishedError{TripID: trip.ID}
			}
			return &domain.ConcurrentModificationError{Entity: "trip", ID: trip.ID}
		}

		for _, l := range trip.Lines {
			if l.ClosingQty == nil || l.Revenue == nil {
				return fmt.Errorf("trip line %s is not reconciled", l.ID)
			}
			_, err := tx.ExecContext(ctx,
				`UPDATE trip_lines SET closing_qty = ?, revenue = ? WHERE id = ?`,
				*l.ClosingQty, l.Revenue.String(), l.ID,
			)
			if err != nil {
				return fmt.Errorf("updating trip line: %w", err)
			}
		}

		now := formatTime(*trip.EndedAt)

		// The status guards keep the release from resurrecting a resource
		// that was retired mid-trip: retired is terminal, so a vehicle no
		// longer on_trip (or a driver no longer busy) is left untouched.
		if _, err := tx.ExecContext(ctx,
			`UPDATE vehicles SET status = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND status = ?`,
			string(domain.StatusAvailable), now, trip.VehicleID, string(domain.StatusOnTrip),
		); err != nil {
			return fmt.Errorf("releasing vehicle: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE drivers SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(domain.StatusAvailable), now, trip.DriverID, string(domain.StatusBusy),
		); err != nil {
			return fmt.Errorf("releasing driver: %w", err)
		}

		return nil
	})
}

const tripColumns = `id, vehicle_id, driver_id, supervisor_id, status, started_at, ended_at, total_revenue, version`

func (s *Store) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	trip, err := s.scanTrip(s.db.QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = ?`, id,
	))
	if err != nil {
		return domain.Trip{}, err
	}

	trip.Lines, err = s.tripLines(ctx, trip.ID)
	if err != nil {
		return domain.Trip{}, err
	}
	return trip, nil
}

func (s *Store) ListActive(ctx context.Context) ([]domain.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE status = ? ORDER BY started_at DESC`,
		string(domain.StatusInProgress),
	)
	if err != nil {
		return nil, fmt.Errorf("listing active trips: %w", err)
	}
	defer rows.Close()

	return s.collectTrips(ctx, rows)
}

// SearchFinished returns one page of finished trips, newest close first.
func (s *Store) SearchFinished(ctx context.Context, filter domain.TripFilter, page domain.PageRequest) (domain.Page[domain.Trip], error) {
	where := `WHERE status = ?`
	args := []any{string(domain.StatusFinished)}

	if filter.From != nil {
		where += ` AND ended_at >= ?`
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where += ` AND ended_at < ?`
		args = append(args, formatTime(filter.To.AddDate(0, 0, 1)))
	}
	if filter.SupervisorID != nil {
		where += ` AND supervisor_id = ?`
		args = append(args, *filter.SupervisorID)
	}
	if filter.VehicleID != nil {
		where += ` AND vehicle_id = ?`
		args = append(args, *filter.VehicleID)
	}
	if filter.DriverID != nil {
		where += ` AND driver_id = ?`
		args = append(args, *filter.DriverID)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trips `+where, args...,
	).Scan(&total); err != nil {
		return domain.Page[domain.Trip]{}, fmt.Errorf("counting finished trips: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips `+where+` ORDER BY ended_at DESC LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...,
	)
	if err != nil {
		return domain.Page[domain.Trip]{}, fmt.Errorf("searching finished trips: %w", err)
	}
	defer rows.Close()

	trips, err := s.collectTrips(ctx, rows)
	if err != nil {
		return domain.Page[domain.Trip]{}, err
	}

	return domain.NewPage(trips, total, page), nil
}

func (s *Store) collectTrips(ctx context.Context, rows *sql.Rows) ([]domain.Trip, error) {
	var trips []domain.Trip
	for rows.Next() {
		trip, err := s.scanTripFromRows(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range trips {
		lines, err := s.tripLines(ctx, trips[i].ID)
		if err != nil {
			return nil, err
		}
		trips[i].Lines = lines
	}
	return trips, nil
}

func (s *Store) tripLines(ctx context.Context, tripID string) ([]domain.TripLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, price_tier_id, product_name, tier_label, unit_price, opening_qty, closing_qty, revenue
		 FROM trip_lines WHERE trip_id = ? ORDER BY rowid`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying trip lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.TripLine
	for rows.Next() {
		var l domain.TripLine
		var unitPrice string
		var closingQty sql.NullInt64
		var revenue sql.NullString

		if err := rows.Scan(&l.ID, &l.ProductID, &l.PriceTierID, &l.ProductName, &l.TierLabel,
			&unitPrice, &l.OpeningQty, &closingQty, &revenue); err != nil {
			return nil, fmt.Errorf("scanning trip line: %w", err)
		}

		if l.UnitPrice, err = parseDecimal(unitPrice); err != nil {
			return nil, err
		}
		if closingQty.Valid {
			qty := int(closingQty.Int64)
			l.ClosingQty = &qty
		}
		if revenue.Valid {
			rev, err := parseDecimal(revenue.String)
			if err != nil {
				return nil, err
			}
			l.Revenue = &rev
		}

		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (s *Store) scanTrip(row *sql.Row) (domain.Trip, error) {
	var t domain.Trip
	var status, startedAt string
	var endedAt, totalRevenue sql.NullString

	err := row.Scan(&t.ID, &t.VehicleID, &t.DriverID, &t.SupervisorID,
		&status, &startedAt, &endedAt, &totalRevenue, &t.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Trip{}, domain.ErrTripNotFound
		}
		return domain.Trip{}, fmt.Errorf("scanning trip: %w", err)
	}

	return buildTrip(t, status, startedAt, endedAt, totalRevenue)
}

func (s *Store) scanTripFromRows(rows *sql.Rows) (domain.Trip, error) {
	var t domain.Trip
	var status, startedAt string
	var endedAt, totalRevenue sql.NullString

	err := rows.Scan(&t.ID, &t.VehicleID, &t.DriverID, &t.SupervisorID,
		&status, &startedAt, &endedAt, &totalRevenue, &t.Version)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("scanning trip row: %w", err)
	}

	return buildTrip(t, status, startedAt, endedAt, totalRevenue)
}

func buildTrip(t domain.Trip, status, startedAt string, endedAt, totalRevenue sql.NullString) (domain.Trip, error) {
	t.Status = domain.Status(status)
	t.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		at := parseTime(endedAt.String)
		t.EndedAt = &at
	}
	if totalRevenue.Valid {
		rev, err := parseDecimal(totalRevenue.String)
		if err != nil {
			return domain.Trip{}, err
		}
		t.TotalRevenue = &rev
	}
	return t, nil
}
