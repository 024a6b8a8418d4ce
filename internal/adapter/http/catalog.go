package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/beverloop/tripledger/internal/app"
	"github.com/beverloop/tripledger/internal/domain"
)

// --- Vehicles ---

type VehicleResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	PlateCode string `json:"plate_code" doc:"License plate"`
	Model     string `json:"model" doc:"Vehicle model"`
	Status    string `json:"status" doc:"Lifecycle state"`
	Version   int64  `json:"version" doc:"Optimistic concurrency version"`
}

func toVehicleResponse(v domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:        v.ID,
		PlateCode: v.PlateCode,
		Model:     v.Model,
		Status:    string(v.Status),
		Version:   v.Version,
	}
}

type CreateVehicleInput struct {
	Body struct {
		PlateCode string `json:"plate_code" minLength:"6" maxLength:"10" doc:"License plate (uppercase alphanumeric)"`
		Model     string `json:"model" minLength:"1" maxLength:"255" doc:"Vehicle model"`
	}
}

type CreateVehicleOutput struct {
	Body VehicleResponse
}

type ListVehiclesOutput struct {
	Body []VehicleResponse
}

type TransitionVehicleInput struct {
	ID   string `path:"id" doc:"Vehicle ID"`
	Body struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"send_to_maintenance,return_to_service,retire"`
	}
}

type TransitionVehicleOutput struct {
	Body VehicleResponse
}

// --- Drivers ---

type DriverResponse struct {
	ID             string  `json:"id" doc:"Unique identifier"`
	Name           string  `json:"name" doc:"Full name"`
	NationalID     string  `json:"national_id" doc:"National identity number"`
	LicenseExpiry  string  `json:"license_expiry" doc:"License expiry date (YYYY-MM-DD)"`
	TeamID         *string `json:"team_id,omitempty" doc:"Assigned team"`
	TeamName       string  `json:"team_name,omitempty" doc:"Assigned team name"`
	SupervisorName string  `json:"supervisor_name,omitempty" doc:"Supervising user of the team"`
	Status         string  `json:"status" doc:"Lifecycle state"`
}

func toDriverResponse(d domain.Driver) DriverResponse {
	return DriverResponse{
		ID:            d.ID,
		Name:          d.Name,
		NationalID:    d.NationalID,
		LicenseExpiry: d.LicenseExpiry.Format(domain.DateFormat),
		TeamID:        d.TeamID,
		Status:        string(d.Status),
	}
}

func toDriverSummaryResponse(d app.DriverSummary) DriverResponse {
	resp := toDriverResponse(d.Driver)
	resp.TeamName = d.TeamName
	resp.SupervisorName = d.SupervisorName
	return resp
}

type CreateDriverInput struct {
	Body struct {
		Name          string  `json:"name" minLength:"1" maxLength:"255" doc:"Full name"`
		NationalID    string  `json:"national_id" minLength:"7" maxLength:"15" doc:"National identity number (digits only)"`
		LicenseExpiry string  `json:"license_expiry" doc:"License expiry date (YYYY-MM-DD, must be in the future)"`
		TeamID        *string `json:"team_id,omitempty" doc:"Team to join"`
	}
}

type CreateDriverOutput struct {
	Body DriverResponse
}

type ListDriversOutput struct {
	Body []DriverResponse
}

type AssignDriverTeamInput struct {
	ID   string `path:"id" doc:"Driver ID"`
	Body struct {
		TeamID *string `json:"team_id" doc:"Team to join, null to unassign"`
	}
}

type AssignDriverTeamOutput struct {
	Body DriverResponse
}

type TransitionDriverInput struct {
	ID   string `path:"id" doc:"Driver ID"`
	Body struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"expire_license,renew_license,retire"`
	}
}

type TransitionDriverOutput struct {
	Body DriverResponse
}

// --- Teams ---

type TeamResponse struct {
	ID             string `json:"id" doc:"Unique identifier"`
	Name           string `json:"name" doc:"Team name"`
	SupervisorID   string `json:"supervisor_id" doc:"Supervising user"`
	SupervisorName string `json:"supervisor_name" doc:"Supervising user's display name"`
}

func toTeamResponse(t domain.Team) TeamResponse {
	return TeamResponse{
		ID:             t.ID,
		Name:           t.Name,
		SupervisorID:   t.SupervisorID,
		SupervisorName: t.SupervisorName,
	}
}

type CreateTeamInput struct {
	Body struct {
		Name           string `json:"name" minLength:"1" maxLength:"255" doc:"Team name"`
		SupervisorID   string `json:"supervisor_id" minLength:"1" doc:"Supervising user"`
		SupervisorName string `json:"supervisor_name" minLength:"1" doc:"Supervising user's display name"`
	}
}

type CreateTeamOutput struct {
	Body TeamResponse
}

type ListTeamsOutput struct {
	Body []TeamResponse
}

type ReassignSupervisorInput struct {
	ID   string `path:"id" doc:"Team ID"`
	Body struct {
		SupervisorID   string `json:"supervisor_id" minLength:"1" doc:"New supervising user"`
		SupervisorName string `json:"supervisor_name" minLength:"1" doc:"New supervising user's display name"`
	}
}

type ReassignSupervisorOutput struct {
	Body TeamResponse
}

// --- Products ---

type PriceTierResponse struct {
	ID       string `json:"id" doc:"Unique identifier"`
	Label    string `json:"label" doc:"Tier label, e.g. wholesale"`
	Value    string `json:"value" doc:"Unit price (decimal string)"`
	Position int    `json:"position" doc:"Display order"`
}

type ProductResponse struct {
	ID     string              `json:"id" doc:"Unique identifier"`
	Name   string              `json:"name" doc:"Product name"`
	Active bool                `json:"active" doc:"Whether the product can be loaded on new trips"`
	Prices []PriceTierResponse `json:"prices" doc:"Price tiers in display order"`
}

func toProductResponse(p domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:     p.ID,
		Name:   p.Name,
		Active: p.Active,
		Prices: make([]PriceTierResponse, len(p.Prices)),
	}
	for i, price := range p.Prices {
		resp.Prices[i] = PriceTierResponse{
			ID:       price.ID,
			Label:    price.Label,
			Value:    price.Value.StringFixed(2),
			Position: price.Position,
		}
	}
	return resp
}

// PriceTierInput is one price tier in a create-product request.
type PriceTierInput struct {
	Label string `json:"label" minLength:"1" doc:"Tier label"`
	Value string `json:"value" minLength:"1" doc:"Unit price (decimal string)"`
}

type CreateProductInput struct {
	Body struct {
		Name   string           `json:"name" minLength:"1" maxLength:"255" doc:"Product name"`
		Prices []PriceTierInput `json:"prices" doc:"Initial price tiers"`
	}
}

type CreateProductOutput struct {
	Body ProductResponse
}

type ListProductsInput struct {
	ActiveOnly bool `query:"active_only" required:"false" doc:"Only products sellable on new trips"`
}

type ListProductsOutput struct {
	Body []ProductResponse
}

type AddPriceTierInput struct {
	ID   string `path:"id" doc:"Product ID"`
	Body struct {
		Label string `json:"label" minLength:"1" doc:"Tier label"`
		Value string `json:"value" minLength:"1" doc:"Unit price (decimal string)"`
	}
}

type AddPriceTierOutput struct {
	Body ProductResponse
}

type ProductActivationInput struct {
	ID string `path:"id" doc:"Product ID"`
}

type ProductActivationOutput struct {
	Body ProductResponse
}

func parseMoney(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, huma.Error422UnprocessableEntity("invalid " + field + ": expected a decimal string")
	}
	return d, nil
}

func registerCatalogRoutes(api huma.API, svc *app.CatalogService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-vehicle",
		Method:      http.MethodPost,
		Path:        "/api/v1/vehicles",
		Summary:     "Register a vehicle",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *CreateVehicleInput) (*CreateVehicleOutput, error) {
		vehicle, err := svc.CreateVehicle(ctx, input.Body.PlateCode, input.Body.Model)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateVehicleOutput{Body: toVehicleResponse(vehicle)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-vehicles",
		Method:      http.MethodGet,
		Path:        "/api/v1/vehicles",
		Summary:     "List vehicles",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, _ *struct{}) (*ListVehiclesOutput, error) {
		vehicles, err := svc.ListVehicles(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]VehicleResponse, len(vehicles))
		for i, v := range vehicles {
			resp[i] = toVehicleResponse(v)
		}
		return &ListVehiclesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-vehicle",
		Method:      http.MethodPost,
		Path:        "/api/v1/vehicles/{id}/events",
		Summary:     "Trigger a vehicle lifecycle event",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *TransitionVehicleInput) (*TransitionVehicleOutput, error) {
		vehicle, err := svc.TransitionVehicle(ctx, input.ID, domain.Event(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionVehicleOutput{Body: toVehicleResponse(vehicle)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-driver",
		Method:      http.MethodPost,
		Path:        "/api/v1/drivers",
		Summary:     "Register a driver",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *CreateDriverInput) (*CreateDriverOutput, error) {
		expiry, err := time.Parse(domain.DateFormat, input.Body.LicenseExpiry)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid license_expiry: expected YYYY-MM-DD")
		}

		driver, err := svc.CreateDriver(ctx, input.Body.Name, input.Body.NationalID, expiry, input.Body.TeamID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateDriverOutput{Body: toDriverResponse(driver)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-drivers",
		Method:      http.MethodGet,
		Path:        "/api/v1/drivers",
		Summary:     "List drivers with their team context",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, _ *struct{}) (*ListDriversOutput, error) {
		drivers, err := svc.ListDrivers(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]DriverResponse, len(drivers))
		for i, d := range drivers {
			resp[i] = toDriverSummaryResponse(d)
		}
		return &ListDriversOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-driver-team",
		Method:      http.MethodPut,
		Path:        "/api/v1/drivers/{id}/team",
		Summary:     "Assign a driver to a team",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *AssignDriverTeamInput) (*AssignDriverTeamOutput, error) {
		driver, err := svc.AssignDriverTeam(ctx, input.ID, input.Body.TeamID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AssignDriverTeamOutput{Body: toDriverResponse(driver)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-driver",
		Method:      http.MethodPost,
		Path:        "/api/v1/drivers/{id}/events",
		Summary:     "Trigger a driver lifecycle event",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *TransitionDriverInput) (*TransitionDriverOutput, error) {
		driver, err := svc.TransitionDriver(ctx, input.ID, domain.Event(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionDriverOutput{Body: toDriverResponse(driver)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-team",
		Method:      http.MethodPost,
		Path:        "/api/v1/teams",
		Summary:     "Create a team",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *CreateTeamInput) (*CreateTeamOutput, error) {
		team, err := svc.CreateTeam(ctx, input.Body.Name, input.Body.SupervisorID, input.Body.SupervisorName)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateTeamOutput{Body: toTeamResponse(team)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-teams",
		Method:      http.MethodGet,
		Path:        "/api/v1/teams",
		Summary:     "List teams",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, _ *struct{}) (*ListTeamsOutput, error) {
		teams, err := svc.ListTeams(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TeamResponse, len(teams))
		for i, t := range teams {
			resp[i] = toTeamResponse(t)
		}
		return &ListTeamsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reassign-team-supervisor",
		Method:      http.MethodPut,
		Path:        "/api/v1/teams/{id}/supervisor",
		Summary:     "Reassign a team's supervisor",
		Description: "Trips opened under the previous supervisor keep that supervisor.",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *ReassignSupervisorInput) (*ReassignSupervisorOutput, error) {
		team, err := svc.ReassignSupervisor(ctx, input.ID, input.Body.SupervisorID, input.Body.SupervisorName)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ReassignSupervisorOutput{Body: toTeamResponse(team)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-product",
		Method:      http.MethodPost,
		Path:        "/api/v1/products",
		Summary:     "Create a product with price tiers",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *CreateProductInput) (*CreateProductOutput, error) {
		tiers := make([]app.PriceTierInput, len(input.Body.Prices))
		for i, p := range input.Body.Prices {
			value, err := parseMoney("prices.value", p.Value)
			if err != nil {
				return nil, err
			}
			tiers[i] = app.PriceTierInput{Label: p.Label, Value: value}
		}

		product, err := svc.CreateProduct(ctx, input.Body.Name, tiers)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateProductOutput{Body: toProductResponse(product)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-products",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "List products",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *ListProductsInput) (*ListProductsOutput, error) {
		products, err := svc.ListProducts(ctx, input.ActiveOnly)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]ProductResponse, len(products))
		for i, p := range products {
			resp[i] = toProductResponse(p)
		}
		return &ListProductsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-price-tier",
		Method:      http.MethodPost,
		Path:        "/api/v1/products/{id}/prices",
		Summary:     "Add a price tier to a product",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *AddPriceTierInput) (*AddPriceTierOutput, error) {
		value, err := parseMoney("value", input.Body.Value)
		if err != nil {
			return nil, err
		}

		product, err := svc.AddPriceTier(ctx, input.ID, input.Body.Label, value)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AddPriceTierOutput{Body: toProductResponse(product)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-product",
		Method:      http.MethodPost,
		Path:        "/api/v1/products/{id}/deactivate",
		Summary:     "Deactivate a product",
		Description: "Keeps history; open trips carrying the product are unaffected.",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *ProductActivationInput) (*ProductActivationOutput, error) {
		product, err := svc.DeactivateProduct(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProductActivationOutput{Body: toProductResponse(product)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reactivate-product",
		Method:      http.MethodPost,
		Path:        "/api/v1/products/{id}/reactivate",
		Summary:     "Reactivate a product",
		Tags:        []string{"Catalog"},
	}, func(ctx context.Context, input *ProductActivationInput) (*ProductActivationOutput, error) {
		product, err := svc.ReactivateProduct(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProductActivationOutput{Body: toProductResponse(product)}, nil
	})
}
