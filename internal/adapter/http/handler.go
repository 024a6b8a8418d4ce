package http

import (
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/beverloop/tripledger/internal/app"
	"github.com/beverloop/tripledger/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// Register adds all API routes to the Huma API.
func Register(api huma.API, trips *app.TripService, catalog *app.CatalogService, reports *app.ReportService) {
	registerTripRoutes(api, trips)
	registerDashboardRoutes(api, reports)
	registerCatalogRoutes(api, catalog)
}

// PageResponse is the API representation of one page of results.
type PageResponse[T any] struct {
	Content       []T   `json:"content" doc:"Items on this page"`
	TotalElements int64 `json:"total_elements" doc:"Total items across all pages"`
	TotalPages    int   `json:"total_pages" doc:"Total page count"`
	Number        int   `json:"number" doc:"Zero-based page number"`
	Size          int   `json:"size" doc:"Page size"`
}

func toPageResponse[D, R any](page domain.Page[D], convert func(D) R) PageResponse[R] {
	content := make([]R, len(page.Content))
	for i, item := range page.Content {
		content[i] = convert(item)
	}
	return PageResponse[R]{
		Content:       content,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Number:        page.Number,
		Size:          page.Size,
	}
}

// parseDate parses a calendar-date query parameter.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(domain.DateFormat, value)
	if err != nil {
		return time.Time{}, huma.Error422UnprocessableEntity("invalid " + field + ": expected YYYY-MM-DD")
	}
	return t, nil
}

// toHumaError translates domain errors to Huma HTTP errors. Conflicts that a
// client can retry map to 409; everything the client got wrong maps to 422.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTripNotFound):
		return huma.Error404NotFound("trip not found")
	case errors.Is(err, domain.ErrVehicleNotFound):
		return huma.Error404NotFound("vehicle not found")
	case errors.Is(err, domain.ErrDriverNotFound):
		return huma.Error404NotFound("driver not found")
	case errors.Is(err, domain.ErrTeamNotFound):
		return huma.Error404NotFound("team not found")
	case errors.Is(err, domain.ErrProductNotFound):
		return huma.Error404NotFound("product not found")
	case errors.Is(err, domain.ErrEmptyManifest):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var plateErr *domain.PlateConflictError
	if errors.As(err, &plateErr) {
		return huma.Error409Conflict(plateErr.Error())
	}
	var concErr *domain.ConcurrentModificationError
	if errors.As(err, &concErr) {
		return huma.Error409Conflict(concErr.Error())
	}
	var finErr *domain.AlreadyFinishedError
	if errors.As(err, &finErr) {
		return huma.Error409Conflict(finErr.Error())
	}

	if isBusinessRuleError(err) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}

// isBusinessRuleError reports whether the error is one of the typed
// validation or business-rule failures.
func isBusinessRuleError(err error) bool {
	var (
		valErr   *domain.ValidationError
		trErr    *domain.TransitionError
		supErr   *domain.MissingSupervisorError
		dupErr   *domain.DuplicateCargoLineError
		tierErr  *domain.InvalidPriceTierError
		resErr   *domain.ResourceUnavailableError
		incErr   *domain.IncompleteReconciliationError
		unkErr   *domain.UnknownLineItemError
		negErr   *domain.NegativeClosingQuantityError
		excErr   *domain.ClosingExceedsOpeningError
		rangeErr *domain.InvalidRangeError
	)
	return errors.As(err, &valErr) ||
		errors.As(err, &trErr) ||
		errors.As(err, &supErr) ||
		errors.As(err, &dupErr) ||
		errors.As(err, &tierErr) ||
		errors.As(err, &resErr) ||
		errors.As(err, &incErr) ||
		errors.As(err, &unkErr) ||
		errors.As(err, &negErr) ||
		errors.As(err, &excErr) ||
		errors.As(err, &rangeErr)
}
