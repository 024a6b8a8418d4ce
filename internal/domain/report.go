package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the wire format for calendar dates used by report filters.
const DateFormat = "2006-01-02"

// DateRange is an inclusive [From, To] range at calendar-day granularity.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange builds a range from parsed dates, truncating both ends to
// UTC midnight. From after To is rejected with InvalidRangeError.
func NewDateRange(from, to time.Time) (DateRange, error) {
	f := truncateToDay(from)
	t := truncateToDay(to)
	if f.After(t) {
		return DateRange{}, &InvalidRangeError{From: f.Format(DateFormat), To: t.Format(DateFormat)}
	}
	return DateRange{From: f, To: t}, nil
}

// Days returns every calendar day of the range in order, both ends included.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether the instant falls on a day within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateToDay(t)
	return !d.Before(r.From) && !d.After(r.To)
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ReportQuery scopes a report to a date range and optionally one supervisor.
type ReportQuery struct {
	Range        DateRange
	SupervisorID *string
}

// KpiSummary is the top-line dashboard view over a date range.
// LoadEffectiveness is a percentage of cargo sold by quantity; it is nil,
// not zero, when no cargo was carried in the range.
type KpiSummary struct {
	FinishedTrips     int
	ActiveTrips       int
	TotalRevenue      decimal.Decimal
	LoadEffectiveness *float64
}

// TrendPoint is one calendar day of the daily revenue series.
type TrendPoint struct {
	Date    time.Time
	Revenue decimal.Decimal
}

// ProductMixRow aggregates one product's sales over a date range.
type ProductMixRow struct {
	ProductID   string
	ProductName string
	UnitsSold   int
	Revenue     decimal.Decimal
}

// AuditRow is one finished line item of the audit trail: one row per
// product per trip close.
type AuditRow struct {
	ClosedAt     time.Time
	DriverName   string
	VehiclePlate string
	TeamName     string
	ProductName  string
	OpeningQty   int
	ClosingQty   int
	UnitsSold    int
	UnitPrice    decimal.Decimal
	Revenue      decimal.Decimal
}

// ReconciledLine is a raw finished line row as read back from the trip log,
// the input for the pure KPI, trend and product-mix projections.
type ReconciledLine struct {
	TripID      string
	ClosedAt    time.Time
	ProductID   string
	ProductName string
	OpeningQty  int
	ClosingQty  int
	Revenue     decimal.Decimal
}

// PageRequest carries standard offset pagination parameters.
type PageRequest struct {
	Page int
	Size int
}

// Validate checks the pagination bounds: page >= 0, size >= 1.
func (p PageRequest) Validate() error {
	if p.Page < 0 {
		return &ValidationError{Field: "page", Rule: "must be zero or positive"}
	}
	if p.Size < 1 {
		return &ValidationError{Field: "size", Rule: "must be at least 1"}
	}
	return nil
}

// Offset returns the row offset of the requested page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one page of results plus totals for the whole result set.
type Page[T any] struct {
	Content       []T
	TotalElements int64
	TotalPages    int
	Number        int
	Size          int
}

// NewPage assembles a page, deriving the total page count.
func NewPage[T any](content []T, total int64, req PageRequest) Page[T] {
	pages := int(total) / req.Size
	if int(total)%req.Size != 0 {
		pages++
	}
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		Number:        req.Page,
		Size:          req.Size,
	}
}

// TripFilter holds optional criteria for searching finished trips.
type TripFilter struct {
	From         *time.Time
	To           *time.Time
	SupervisorID *string
	VehicleID    *string
	DriverID     *string
}
