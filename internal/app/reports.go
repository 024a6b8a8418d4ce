package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beverloop/tripledger/internal/domain"
)

// ReportService turns the finished-trip log into operational views. All of
// it is read-only projection: recomputing a report never mutates the log.
type ReportService struct {
	store domain.ReportStore
}

// NewReportService creates a service over the given report store.
func NewReportService(store domain.ReportStore) *ReportService {
	return &ReportService{store: store}
}

// Kpi returns the KPI summary for the inclusive [from, to] date range,
// optionally scoped to one supervisor. The active-trip count reflects "now"
// and is unscoped by the range.
func (s *ReportService) Kpi(ctx context.Context, from, to time.Time, supervisorID *string) (domain.KpiSummary, error) {
	q, err := buildQuery(from, to, supervisorID)
	if err != nil {
		return domain.KpiSummary{}, err
	}

	lines, err := s.store.FinishedLines(ctx, q)
	if err != nil {
		return domain.KpiSummary{}, fmt.Errorf("reading finished lines: %w", err)
	}

	active, err := s.store.ActiveTripCount(ctx)
	if err != nil {
		return domain.KpiSummary{}, fmt.Errorf("counting active trips: %w", err)
	}

	tripIDs := make(map[string]struct{})
	revenue := decimal.Zero
	var totalOpening, totalSold int
	for _, l := range lines {
		tripIDs[l.TripID] = struct{}{}
		revenue = revenue.Add(l.Revenue)
		totalOpening += l.OpeningQty
		totalSold += l.OpeningQty - l.ClosingQty
	}

	summary := domain.KpiSummary{
		FinishedTrips: len(tripIDs),
		ActiveTrips:   active,
		TotalRevenue:  revenue,
	}

	// Load effectiveness is undefined, not zero, when nothing was carried.
	if totalOpening > 0 {
		eff := float64(totalSold) / float64(totalOpening) * 100
		summary.LoadEffectiveness = &eff
	}

	return summary, nil
}

// DailyTrend returns one point per calendar day in range with that day's
// revenue sum. Days without finished trips are present with value 0 so the
// series stays contiguous for charting.
func (s *ReportService) DailyTrend(ctx context.Context, from, to time.Time, supervisorID *string) ([]domain.TrendPoint, error) {
	q, err := buildQuery(from, to, supervisorID)
	if err != nil {
		return nil, err
	}

	lines, err := s.store.FinishedLines(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading finished lines: %w", err)
	}

	byDay := make(map[string]decimal.Decimal)
	for _, l := range lines {
		d := l.ClosedAt.UTC().Format(domain.DateFormat)
		byDay[d] = byDay[d].Add(l.Revenue)
	}

	days := q.Range.Days()
	points := make([]domain.TrendPoint, len(days))
	for i, day := range days {
		points[i] = domain.TrendPoint{Date: day, Revenue: byDay[day.Format(domain.DateFormat)]}
	}

	return points, nil
}

// ProductMix aggregates units sold and revenue per product over the range,
// ordered by descending revenue with ties broken by product name.
func (s *ReportService) ProductMix(ctx context.Context, from, to time.Time, supervisorID *string) ([]domain.ProductMixRow, error) {
	q, err := buildQuery(from, to, supervisorID)
	if err != nil {
		return nil, err
	}

	lines, err := s.store.FinishedLines(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading finished lines: %w", err)
	}

	byProduct := make(map[string]*domain.ProductMixRow)
	for _, l := range lines {
		row, ok := byProduct[l.ProductID]
		if !ok {
			row = &domain.ProductMixRow{ProductID: l.ProductID, ProductName: l.ProductName}
			byProduct[l.ProductID] = row
		}
		row.UnitsSold += l.OpeningQty - l.ClosingQty
		row.Revenue = row.Revenue.Add(l.Revenue)
	}

	mix := make([]domain.ProductMixRow, 0, len(byProduct))
	for _, row := range byProduct {
		mix = append(mix, *row)
	}
	sort.Slice(mix, func(i, j int) bool {
		if !mix[i].Revenue.Equal(mix[j].Revenue) {
			return mix[i].Revenue.GreaterThan(mix[j].Revenue)
		}
		return mix[i].ProductName < mix[j].ProductName
	})

	return mix, nil
}

// AuditTrail returns one page of individual finished line items in range.
func (s *ReportService) AuditTrail(ctx context.Context, from, to time.Time, page domain.PageRequest, supervisorID *string) (domain.Page[domain.AuditRow], error) {
	q, err := buildQuery(from, to, supervisorID)
	if err != nil {
		return domain.Page[domain.AuditRow]{}, err
	}
	if err := page.Validate(); err != nil {
		return domain.Page[domain.AuditRow]{}, err
	}
	return s.store.AuditTrail(ctx, q, page)
}

func buildQuery(from, to time.Time, supervisorID *string) (domain.ReportQuery, error) {
	r, err := domain.NewDateRange(from, to)
	if err != nil {
		return domain.ReportQuery{}, err
	}
	return domain.ReportQuery{Range: r, SupervisorID: supervisorID}, nil
}
