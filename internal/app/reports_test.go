package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beverloop/tripledger/internal/app"
	"github.com/beverloop/tripledger/internal/domain"
)

type mockReportStore struct {
	lines   []domain.ReconciledLine
	active  int
	audit   []domain.AuditRow
	lastQ   domain.ReportQuery
	lastPag domain.PageRequest
}

func (m *mockReportStore) FinishedLines(_ context.Context, q domain.ReportQuery) ([]domain.ReconciledLine, error) {
	m.lastQ = q
	return m.lines, nil
}

func (m *mockReportStore) ActiveTripCount(_ context.Context) (int, error) {
	return m.active, nil
}

func (m *mockReportStore) AuditTrail(_ context.Context, q domain.ReportQuery, page domain.PageRequest) (domain.Page[domain.AuditRow], error) {
	m.lastQ = q
	m.lastPag = page
	return domain.NewPage(m.audit, int64(len(m.audit)), page), nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sampleLines is the canonical two-trip fixture: trip t-1 closed March 1st
// with two cola lines, trip t-2 closed March 3rd with a water line.
func sampleLines() []domain.ReconciledLine {
	return []domain.ReconciledLine{
		{TripID: "t-1", ClosedAt: day(2026, 3, 1).Add(14 * time.Hour), ProductID: "p-1", ProductName: "Cola 2L", OpeningQty: 20, ClosingQty: 4, Revenue: dec("160.00")},
		{TripID: "t-1", ClosedAt: day(2026, 3, 1).Add(14 * time.Hour), ProductID: "p-1", ProductName: "Cola 2L", OpeningQty: 5, ClosingQty: 1, Revenue: dec("60.00")},
		{TripID: "t-2", ClosedAt: day(2026, 3, 3).Add(9 * time.Hour), ProductID: "p-2", ProductName: "Water 500ml", OpeningQty: 10, ClosingQty: 3, Revenue: dec("87.50")},
	}
}

func TestKpi(t *testing.T) {
	store := &mockReportStore{lines: sampleLines(), active: 2}
	svc := app.NewReportService(store)

	got, err := svc.Kpi(context.Background(), day(2026, 3, 1), day(2026, 3, 7), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.FinishedTrips != 2 {
		t.Errorf("FinishedTrips = %d, want 2 (distinct trips, not lines)", got.FinishedTrips)
	}
	if got.ActiveTrips != 2 {
		t.Errorf("ActiveTrips = %d, want 2", got.ActiveTrips)
	}
	if !got.TotalRevenue.Equal(dec("307.50")) {
		t.Errorf("TotalRevenue = %v, want 307.50", got.TotalRevenue)
	}
	// 16 + 4 + 7 sold out of 20 + 5 + 10 carried.
	if got.LoadEffectiveness == nil {
		t.Fatal("LoadEffectiveness is nil, want a value")
	}
	want := float64(27) / 35 * 100
	if *got.LoadEffectiveness != want {
		t.Errorf("LoadEffectiveness = %v, want %v", *got.LoadEffectiveness, want)
	}
}

func TestKpi_EmptyRange(t *testing.T) {
	store := &mockReportStore{}
	svc := app.NewReportService(store)

	got, err := svc.Kpi(context.Background(), day(2026, 3, 1), day(2026, 3, 7), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.FinishedTrips != 0 {
		t.Errorf("FinishedTrips = %d, want 0", got.FinishedTrips)
	}
	if !got.TotalRevenue.Equal(decimal.Zero) {
		t.Errorf("TotalRevenue = %v, want 0", got.TotalRevenue)
	}
	if got.LoadEffectiveness != nil {
		t.Errorf("LoadEffectiveness = %v, want nil when nothing was carried", *got.LoadEffectiveness)
	}
}

func TestKpi_InvalidRange(t *testing.T) {
	svc := app.NewReportService(&mockReportStore{})

	_, err := svc.Kpi(context.Background(), day(2026, 3, 7), day(2026, 3, 1), nil)
	var rangeErr *domain.InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected InvalidRangeError, got %v", err)
	}
}

func TestKpi_SupervisorScope(t *testing.T) {
	store := &mockReportStore{}
	svc := app.NewReportService(store)
	sup := "sup-1"

	if _, err := svc.Kpi(context.Background(), day(2026, 3, 1), day(2026, 3, 7), &sup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastQ.SupervisorID == nil || *store.lastQ.SupervisorID != "sup-1" {
		t.Errorf("supervisor scope was not forwarded to the store: %v", store.lastQ.SupervisorID)
	}
}

func TestDailyTrend_ZeroFills(t *testing.T) {
	store := &mockReportStore{lines: sampleLines()}
	svc := app.NewReportService(store)

	points, err := svc.DailyTrend(context.Background(), day(2026, 3, 1), day(2026, 3, 5), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(points) != 5 {
		t.Fatalf("got %d points, want 5 (one per day, inclusive)", len(points))
	}
	for i, p := range points {
		want := day(2026, 3, 1+i)
		if !p.Date.Equal(want) {
			t.Errorf("point %d date = %v, want %v", i, p.Date, want)
		}
	}

	if !points[0].Revenue.Equal(dec("220.00")) {
		t.Errorf("March 1 revenue = %v, want 220.00", points[0].Revenue)
	}
	if !points[1].Revenue.Equal(decimal.Zero) {
		t.Errorf("March 2 revenue = %v, want 0", points[1].Revenue)
	}
	if !points[2].Revenue.Equal(dec("87.50")) {
		t.Errorf("March 3 revenue = %v, want 87.50", points[2].Revenue)
	}
	if !points[4].Revenue.Equal(decimal.Zero) {
		t.Errorf("March 5 revenue = %v, want 0", points[4].Revenue)
	}
}

func TestProductMix_Ordering(t *testing.T) {
	store := &mockReportStore{lines: sampleLines()}
	svc := app.NewReportService(store)

	mix, err := svc.ProductMix(context.Background(), day(2026, 3, 1), day(2026, 3, 7), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mix) != 2 {
		t.Fatalf("got %d rows, want 2", len(mix))
	}
	// Cola lines fold into one row; cola out-earns water.
	if mix[0].ProductID != "p-1" || mix[1].ProductID != "p-2" {
		t.Errorf("order = [%s, %s], want [p-1, p-2]", mix[0].ProductID, mix[1].ProductID)
	}
	if mix[0].UnitsSold != 20 {
		t.Errorf("cola units sold = %d, want 20", mix[0].UnitsSold)
	}
	if !mix[0].Revenue.Equal(dec("220.00")) {
		t.Errorf("cola revenue = %v, want 220.00", mix[0].Revenue)
	}
}

func TestProductMix_RevenueTieBreaksByName(t *testing.T) {
	store := &mockReportStore{lines: []domain.ReconciledLine{
		{TripID: "t-1", ClosedAt: day(2026, 3, 1), ProductID: "p-9", ProductName: "Zesty Soda", OpeningQty: 5, ClosingQty: 0, Revenue: dec("50.00")},
		{TripID: "t-1", ClosedAt: day(2026, 3, 1), ProductID: "p-8", ProductName: "Apple Juice", OpeningQty: 5, ClosingQty: 0, Revenue: dec("50.00")},
	}}
	svc := app.NewReportService(store)

	mix, err := svc.ProductMix(context.Background(), day(2026, 3, 1), day(2026, 3, 1), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mix[0].ProductName != "Apple Juice" {
		t.Errorf("first row = %q, want Apple Juice (name ascending on revenue ties)", mix[0].ProductName)
	}
}

func TestAuditTrail_ForwardsPage(t *testing.T) {
	store := &mockReportStore{audit: []domain.AuditRow{{ProductName: "Cola 2L"}}}
	svc := app.NewReportService(store)

	page, err := svc.AuditTrail(context.Background(), day(2026, 3, 1), day(2026, 3, 7), domain.PageRequest{Page: 1, Size: 25}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastPag.Page != 1 || store.lastPag.Size != 25 {
		t.Errorf("page forwarded as %+v, want {1 25}", store.lastPag)
	}
	if page.TotalElements != 1 {
		t.Errorf("TotalElements = %d, want 1", page.TotalElements)
	}
}

func TestAuditTrail_InvalidPage(t *testing.T) {
	svc := app.NewReportService(&mockReportStore{})

	_, err := svc.AuditTrail(context.Background(), day(2026, 3, 1), day(2026, 3, 7), domain.PageRequest{Page: 0, Size: 0}, nil)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
