package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/beverloop/tripledger/internal/app"
	"github.com/beverloop/tripledger/internal/domain"
)

// DashboardParams are the query parameters shared by all dashboard reports.
type DashboardParams struct {
	From         string `query:"from" doc:"Range start (YYYY-MM-DD, inclusive)"`
	To           string `query:"to" doc:"Range end (YYYY-MM-DD, inclusive)"`
	SupervisorID string `query:"supervisor_id" required:"false" doc:"Scope to one supervisor"`
}

func (p DashboardParams) parse() (from, to time.Time, supervisorID *string, err error) {
	if from, err = parseDate("from", p.From); err != nil {
		return
	}
	if to, err = parseDate("to", p.To); err != nil {
		return
	}
	if p.SupervisorID != "" {
		supervisorID = &p.SupervisorID
	}
	return
}

// --- KPI stats ---

type KpiResponse struct {
	FinishedTrips     int      `json:"finished_trips" doc:"Trips closed within the range"`
	ActiveTrips       int      `json:"active_trips" doc:"Trips currently in progress (unscoped by range)"`
	TotalRevenue      string   `json:"total_revenue" doc:"Revenue sum (decimal string)"`
	LoadEffectiveness *float64 `json:"load_effectiveness,omitempty" doc:"Percent of carried units sold; absent when nothing was carried"`
}

type GetKpiInput struct {
	DashboardParams
}

type GetKpiOutput struct {
	Body KpiResponse
}

// --- Daily trend ---

type TrendPointResponse struct {
	Date    string `json:"date" doc:"Calendar day (YYYY-MM-DD)"`
	Revenue string `json:"revenue" doc:"Revenue closed on this day (decimal string)"`
}

type GetTrendInput struct {
	DashboardParams
}

type GetTrendOutput struct {
	Body []TrendPointResponse
}

// --- Product mix ---

type ProductMixResponse struct {
	ProductID   string `json:"product_id" doc:"Catalog product"`
	ProductName string `json:"product_name" doc:"Product name as sold"`
	UnitsSold   int    `json:"units_sold" doc:"Units sold within the range"`
	Revenue     string `json:"revenue" doc:"Revenue within the range (decimal string)"`
}

type GetProductMixInput struct {
	DashboardParams
}

type GetProductMixOutput struct {
	Body []ProductMixResponse
}

// --- Audit report ---

type AuditRowResponse struct {
	ClosedAt        string `json:"closed_at" doc:"Close timestamp (ISO 8601)"`
	DriverName      string `json:"driver_name" doc:"Driver on the trip"`
	VehiclePlate    string `json:"vehicle_plate" doc:"Vehicle plate code"`
	TeamName        string `json:"team_name" doc:"Driver's team, empty if unassigned"`
	ProductName     string `json:"product_name" doc:"Product name snapshotted at open"`
	OpeningQuantity int    `json:"opening_quantity" doc:"Units loaded"`
	ClosingQuantity int    `json:"closing_quantity" doc:"Units returned"`
	UnitsSold       int    `json:"units_sold" doc:"Opening minus closing quantity"`
	UnitPrice       string `json:"unit_price" doc:"Unit price charged (decimal string)"`
	Revenue         string `json:"revenue" doc:"Line revenue (decimal string)"`
}

type GetAuditReportInput struct {
	DashboardParams
	Page int `query:"page" required:"false" default:"0" doc:"Zero-based page number"`
	Size int `query:"size" required:"false" default:"20" doc:"Page size"`
}

type GetAuditReportOutput struct {
	Body PageResponse[AuditRowResponse]
}

func toAuditRowResponse(r domain.AuditRow) AuditRowResponse {
	return AuditRowResponse{
		ClosedAt:        r.ClosedAt.Format(timeFormat),
		DriverName:      r.DriverName,
		VehiclePlate:    r.VehiclePlate,
		TeamName:        r.TeamName,
		ProductName:     r.ProductName,
		OpeningQuantity: r.OpeningQty,
		ClosingQuantity: r.ClosingQty,
		UnitsSold:       r.UnitsSold,
		UnitPrice:       r.UnitPrice.StringFixed(2),
		Revenue:         r.Revenue.StringFixed(2),
	}
}

func registerDashboardRoutes(api huma.API, svc *app.ReportService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/dashboard/stats",
		Summary:     "KPI summary for a date range",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, input *GetKpiInput) (*GetKpiOutput, error) {
		from, to, supervisorID, err := input.parse()
		if err != nil {
			return nil, err
		}

		kpi, err := svc.Kpi(ctx, from, to, supervisorID)
		if err != nil {
			return nil, toHumaError(err)
		}

		return &GetKpiOutput{Body: KpiResponse{
			FinishedTrips:     kpi.FinishedTrips,
			ActiveTrips:       kpi.ActiveTrips,
			TotalRevenue:      kpi.TotalRevenue.StringFixed(2),
			LoadEffectiveness: kpi.LoadEffectiveness,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard-trend",
		Method:      http.MethodGet,
		Path:        "/api/v1/dashboard/trend",
		Summary:     "Daily revenue trend",
		Description: "One point per calendar day in range; days without closed trips report zero.",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, input *GetTrendInput) (*GetTrendOutput, error) {
		from, to, supervisorID, err := input.parse()
		if err != nil {
			return nil, err
		}

		points, err := svc.DailyTrend(ctx, from, to, supervisorID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TrendPointResponse, len(points))
		for i, p := range points {
			resp[i] = TrendPointResponse{
				Date:    p.Date.Format(domain.DateFormat),
				Revenue: p.Revenue.StringFixed(2),
			}
		}
		return &GetTrendOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard-product-mix",
		Method:      http.MethodGet,
		Path:        "/api/v1/dashboard/product-mix",
		Summary:     "Sales per product",
		Description: "Units sold and revenue per product, ordered by descending revenue.",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, input *GetProductMixInput) (*GetProductMixOutput, error) {
		from, to, supervisorID, err := input.parse()
		if err != nil {
			return nil, err
		}

		mix, err := svc.ProductMix(ctx, from, to, supervisorID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]ProductMixResponse, len(mix))
		for i, row := range mix {
			resp[i] = ProductMixResponse{
				ProductID:   row.ProductID,
				ProductName: row.ProductName,
				UnitsSold:   row.UnitsSold,
				Revenue:     row.Revenue.StringFixed(2),
			}
		}
		return &GetProductMixOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard-audit-report",
		Method:      http.MethodGet,
		Path:        "/api/v1/dashboard/audit-report",
		Summary:     "Audit trail of reconciled line items",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, input *GetAuditReportInput) (*GetAuditReportOutput, error) {
		from, to, supervisorID, err := input.parse()
		if err != nil {
			return nil, err
		}

		page, err := svc.AuditTrail(ctx, from, to, domain.PageRequest{Page: input.Page, Size: input.Size}, supervisorID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetAuditReportOutput{Body: toPageResponse(page, toAuditRowResponse)}, nil
	})
}
