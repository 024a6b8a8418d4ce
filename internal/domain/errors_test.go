package domain_test

import (
	"testing"

	"github.com/beverloop/tripledger/internal/domain"
)

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventDispatch,
		Current: domain.StatusRetired,
	}
	want := `event "dispatch" is not valid from state "retired"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPlateConflictError_Error(t *testing.T) {
	err := &domain.PlateConflictError{PlateCode: "AB1234CD"}
	want := `plate code "AB1234CD" is already in use`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDuplicateCargoLineError_Error(t *testing.T) {
	err := &domain.DuplicateCargoLineError{ProductID: "p-1", PriceTierID: "pt-1"}
	want := `duplicate cargo line for product "p-1" with price tier "pt-1"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestResourceUnavailableError_Error(t *testing.T) {
	err := &domain.ResourceUnavailableError{Resource: "vehicle", ID: "v-1", Reason: "in maintenance"}
	want := `vehicle "v-1" is unavailable: in maintenance`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClosingExceedsOpeningError_Error(t *testing.T) {
	err := &domain.ClosingExceedsOpeningError{ProductName: "Cola 2L", Closing: 21, Opening: 20}
	want := `closing quantity 21 for product "Cola 2L" exceeds opening quantity 20`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIncompleteReconciliationError_Error(t *testing.T) {
	err := &domain.IncompleteReconciliationError{MissingLineIDs: []string{"l-1", "l-2"}}
	want := "closing request is missing line items: l-1, l-2"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
