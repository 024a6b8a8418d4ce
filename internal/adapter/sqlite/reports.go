package sqlite

import (
	"context"
	"fmt"

	"github.com/beverloop/tripledger/internal/domain"
)

// FinishedLines reads the raw reconciled line rows for trips closed within
// the query range. Aggregation happens in the caller, in exact decimal
// arithmetic, never in SQL.
func (s *Store) FinishedLines(ctx context.Context, q domain.ReportQuery) ([]domain.ReconciledLine, error) {
	query := `SELECT t.id, t.ended_at, l.product_id, l.product_name, l.opening_qty, l.closing_qty, l.revenue
		 FROM trips t
		 JOIN trip_lines l ON l.trip_id = t.id
		 WHERE t.status = ? AND t.ended_at >= ? AND t.ended_at < ?`
	args := []any{
		string(domain.StatusFinished),
		formatTime(q.Range.From),
		formatTime(q.Range.To.AddDate(0, 0, 1)),
	}

	if q.SupervisorID != nil {
		query += ` AND t.supervisor_id = ?`
		args = append(args, *q.SupervisorID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying finished lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.ReconciledLine
	for rows.Next() {
		var l domain.ReconciledLine
		var closedAt, revenue string

		if err := rows.Scan(&l.TripID, &closedAt, &l.ProductID, &l.ProductName,
			&l.OpeningQty, &l.ClosingQty, &revenue); err != nil {
			return nil, fmt.Errorf("scanning finished line: %w", err)
		}

		l.ClosedAt = parseTime(closedAt)
		if l.Revenue, err = parseDecimal(revenue); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

// ActiveTripCount counts trips currently in progress.
func (s *Store) ActiveTripCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trips WHERE status = ?`, string(domain.StatusInProgress),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active trips: %w", err)
	}
	return count, nil
}

// AuditTrail returns one page of finished line items joined with their
// trip, driver, vehicle and team context, newest close first. The team name
// reflects the driver's current team; the supervisor scope still uses the
// value snapshotted on the trip.
func (s *Store) AuditTrail(ctx context.Context, q domain.ReportQuery, page domain.PageRequest) (domain.Page[domain.AuditRow], error) {
	where := `WHERE t.status = ? AND t.ended_at >= ? AND t.ended_at < ?`
	args := []any{
		string(domain.StatusFinished),
		formatTime(q.Range.From),
		formatTime(q.Range.To.AddDate(0, 0, 1)),
	}

	if q.SupervisorID != nil {
		where += ` AND t.supervisor_id = ?`
		args = append(args, *q.SupervisorID)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trips t JOIN trip_lines l ON l.trip_id = t.id `+where, args...,
	).Scan(&total); err != nil {
		return domain.Page[domain.AuditRow]{}, fmt.Errorf("counting audit rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.ended_at, d.name, v.plate_code, COALESCE(tm.name, ''),
		        l.product_name, l.opening_qty, l.closing_qty, l.unit_price, l.revenue
		 FROM trips t
		 JOIN trip_lines l ON l.trip_id = t.id
		 JOIN drivers d ON d.id = t.driver_id
		 JOIN vehicles v ON v.id = t.vehicle_id
		 LEFT JOIN teams tm ON tm.id = d.team_id
		 `+where+`
		 ORDER BY t.ended_at DESC, l.rowid
		 LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...,
	)
	if err != nil {
		return domain.Page[domain.AuditRow]{}, fmt.Errorf("querying audit rows: %w", err)
	}
	defer rows.Close()

	var audit []domain.AuditRow
	for rows.Next() {
		var r domain.AuditRow
		var closedAt, unitPrice, revenue string

		if err := rows.Scan(&closedAt, &r.DriverName, &r.VehiclePlate, &r.TeamName,
			&r.ProductName, &r.OpeningQty, &r.ClosingQty, &unitPrice, &revenue); err != nil {
			return domain.Page[domain.AuditRow]{}, fmt.Errorf("scanning audit row: %w", err)
		}

		r.ClosedAt = parseTime(closedAt)
		if r.UnitPrice, err = parseDecimal(unitPrice); err != nil {
			return domain.Page[domain.AuditRow]{}, err
		}
		if r.Revenue, err = parseDecimal(revenue); err != nil {
			return domain.Page[domain.AuditRow]{}, err
		}
		r.UnitsSold = r.OpeningQty - r.ClosingQty

		audit = append(audit, r)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.AuditRow]{}, err
	}

	return domain.NewPage(audit, total, page), nil
}
