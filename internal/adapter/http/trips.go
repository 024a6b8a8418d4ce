package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/beverloop/tripledger/internal/app"
	"github.com/beverloop/tripledger/internal/domain"
)

// TripLineResponse is the API representation of one trip line item.
type TripLineResponse struct {
	ID              string  `json:"id" doc:"Line item identifier"`
	ProductID       string  `json:"product_id" doc:"Catalog product"`
	PriceTierID     string  `json:"price_tier_id" doc:"Price tier charged on this line"`
	ProductName     string  `json:"product_name" doc:"Product name snapshotted at open"`
	TierLabel       string  `json:"tier_label" doc:"Tier label snapshotted at open"`
	UnitPrice       string  `json:"unit_price" doc:"Unit price snapshotted at open (decimal string)"`
	OpeningQuantity int     `json:"opening_quantity" doc:"Units loaded at open"`
	ClosingQuantity *int    `json:"closing_quantity,omitempty" doc:"Units returned at close"`
	UnitsSold       *int    `json:"units_sold,omitempty" doc:"Opening minus closing quantity"`
	Revenue         *string `json:"revenue,omitempty" doc:"Line revenue (decimal string)"`
}

// TripResponse is the API representation of a trip.
type TripResponse struct {
	ID           string             `json:"id" doc:"Unique identifier"`
	VehicleID    string             `json:"vehicle_id" doc:"Assigned vehicle"`
	DriverID     string             `json:"driver_id" doc:"Assigned driver"`
	SupervisorID string             `json:"supervisor_id" doc:"Supervisor derived from the driver's team at open"`
	Status       string             `json:"status" doc:"Lifecycle state"`
	StartedAt    string             `json:"started_at" doc:"Open timestamp (ISO 8601)"`
	EndedAt      *string            `json:"ended_at,omitempty" doc:"Close timestamp (ISO 8601)"`
	TotalRevenue *string            `json:"total_revenue,omitempty" doc:"Total revenue (decimal string)"`
	Version      int64              `json:"version" doc:"Optimistic concurrency version"`
	Lines        []TripLineResponse `json:"lines" doc:"Cargo manifest line items"`
}

func toTripResponse(t domain.Trip) TripResponse {
	resp := TripResponse{
		ID:           t.ID,
		VehicleID:    t.VehicleID,
		DriverID:     t.DriverID,
		SupervisorID: t.SupervisorID,
		Status:       string(t.Status),
		StartedAt:    t.StartedAt.Format(timeFormat),
		Version:      t.Version,
		Lines:        make([]TripLineResponse, len(t.Lines)),
	}
	if t.EndedAt != nil {
		at := t.EndedAt.Format(timeFormat)
		resp.EndedAt = &at
	}
	if t.TotalRevenue != nil {
		rev := t.TotalRevenue.StringFixed(2)
		resp.TotalRevenue = &rev
	}

	for i, l := range t.Lines {
		line := TripLineResponse{
			ID:              l.ID,
			ProductID:       l.ProductID,
			PriceTierID:     l.PriceTierID,
			ProductName:     l.ProductName,
			TierLabel:       l.TierLabel,
			UnitPrice:       l.UnitPrice.StringFixed(2),
			OpeningQuantity: l.OpeningQty,
			ClosingQuantity: l.ClosingQty,
		}
		if l.ClosingQty != nil {
			sold := l.UnitsSold()
			line.UnitsSold = &sold
		}
		if l.Revenue != nil {
			rev := l.Revenue.StringFixed(2)
			line.Revenue = &rev
		}
		resp.Lines[i] = line
	}

	return resp
}

// --- Open Trip ---

// CargoLineInput is one manifest line in an open-trip request.
type CargoLineInput struct {
	ProductID       string `json:"product_id" minLength:"1" doc:"Catalog product"`
	PriceTierID     string `json:"price_tier_id" minLength:"1" doc:"Price tier to charge"`
	OpeningQuantity int    `json:"opening_quantity" doc:"Units loaded"`
}

type OpenTripInput struct {
	Body struct {
		VehicleID string           `json:"vehicle_id" minLength:"1" doc:"Vehicle to assign"`
		DriverID  string           `json:"driver_id" minLength:"1" doc:"Driver to assign"`
		Cargo     []CargoLineInput `json:"cargo" doc:"Cargo manifest, one line per product and tier pair"`
	}
}

type OpenTripOutput struct {
	Body TripResponse
}

// --- Close Trip ---

// FinalQuantityInput is one reconciled line in a close-trip request.
type FinalQuantityInput struct {
	LineItemID      string `json:"line_item_id" minLength:"1" doc:"Manifest line being reconciled"`
	ClosingQuantity int    `json:"closing_quantity" doc:"Units returned"`
}

type CloseTripInput struct {
	ID   string `path:"id" doc:"Trip ID"`
	Body struct {
		Lines []FinalQuantityInput `json:"lines" doc:"Final quantities, one per manifest line"`
	}
}

type CloseTripOutput struct {
	Body TripResponse
}

// --- Get Trip ---

type GetTripInput struct {
	ID string `path:"id" doc:"Trip ID"`
}

type GetTripOutput struct {
	Body TripResponse
}

// --- List Active ---

type ListActiveTripsOutput struct {
	Body []TripResponse
}

// --- Search Finished ---

type SearchTripsInput struct {
	From         string `query:"from" required:"false" doc:"Closed on or after this date (YYYY-MM-DD)"`
	To           string `query:"to" required:"false" doc:"Closed on or before this date (YYYY-MM-DD)"`
	SupervisorID string `query:"supervisor_id" required:"false" doc:"Filter by supervisor"`
	VehicleID    string `query:"vehicle_id" required:"false" doc:"Filter by vehicle"`
	DriverID     string `query:"driver_id" required:"false" doc:"Filter by driver"`
	Page         int    `query:"page" required:"false" default:"0" doc:"Zero-based page number"`
	Size         int    `query:"size" required:"false" default:"20" doc:"Page size"`
}

type SearchTripsOutput struct {
	Body PageResponse[TripResponse]
}

func registerTripRoutes(api huma.API, svc *app.TripService) {
	huma.Register(api, huma.Operation{
		OperationID: "open-trip",
		Method:      http.MethodPost,
		Path:        "/api/v1/trips",
		Summary:     "Open a trip",
		Description: "Assigns a vehicle and driver, snapshots catalog prices into the manifest, and starts the trip.",
		Tags:        []string{"Trips"},
	}, func(ctx context.Context, input *OpenTripInput) (*OpenTripOutput, error) {
		cargo := make([]domain.CargoLine, len(input.Body.Cargo))
		for i, c := range input.Body.Cargo {
			cargo[i] = domain.CargoLine{
				ProductID:   c.ProductID,
				PriceTierID: c.PriceTierID,
				OpeningQty:  c.OpeningQuantity,
			}
		}

		trip, err := svc.Open(ctx, input.Body.VehicleID, input.Body.DriverID, cargo)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &OpenTripOutput{Body: toTripResponse(trip)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-trip",
		Method:      http.MethodPost,
		Path:        "/api/v1/trips/{id}/close",
		Summary:     "Close a trip",
		Description: "Reconciles every manifest line against its final quantity and computes revenue. All-or-nothing.",
		Tags:        []string{"Trips"},
	}, func(ctx context.Context, input *CloseTripInput) (*CloseTripOutput, error) {
		finals := make([]domain.FinalQuantity, len(input.Body.Lines))
		for i, l := range input.Body.Lines {
			finals[i] = domain.FinalQuantity{
				LineItemID: l.LineItemID,
				ClosingQty: l.ClosingQuantity,
			}
		}

		trip, err := svc.Close(ctx, input.ID, finals)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CloseTripOutput{Body: toTripResponse(trip)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-active-trips",
		Method:      http.MethodGet,
		Path:        "/api/v1/trips/active",
		Summary:     "List trips in progress",
		Tags:        []string{"Trips"},
	}, func(ctx context.Context, _ *struct{}) (*ListActiveTripsOutput, error) {
		trips, err := svc.ListActive(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TripResponse, len(trips))
		for i, t := range trips {
			resp[i] = toTripResponse(t)
		}
		return &ListActiveTripsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-trips",
		Method:      http.MethodGet,
		Path:        "/api/v1/trips",
		Summary:     "Search finished trips",
		Tags:        []string{"Trips"},
	}, func(ctx context.Context, input *SearchTripsInput) (*SearchTripsOutput, error) {
		var filter domain.TripFilter
		if input.From != "" {
			from, err := parseDate("from", input.From)
			if err != nil {
				return nil, err
			}
			filter.From = &from
		}
		if input.To != "" {
			to, err := parseDate("to", input.To)
			if err != nil {
				return nil, err
			}
			filter.To = &to
		}
		if input.SupervisorID != "" {
			filter.SupervisorID = &input.SupervisorID
		}
		if input.VehicleID != "" {
			filter.VehicleID = &input.VehicleID
		}
		if input.DriverID != "" {
			filter.DriverID = &input.DriverID
		}

		page, err := svc.SearchFinished(ctx, filter, domain.PageRequest{Page: input.Page, Size: input.Size})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SearchTripsOutput{Body: toPageResponse(page, toTripResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-trip",
		Method:      http.MethodGet,
		Path:        "/api/v1/trips/{id}",
		Summary:     "Get a trip by ID",
		Tags:        []string{"Trips"},
	}, func(ctx context.Context, input *GetTripInput) (*GetTripOutput, error) {
		trip, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTripOutput{Body: toTripResponse(trip)}, nil
	})
}
