package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/beverloop/tripledger/internal/adapter/fsm"
	"github.com/beverloop/tripledger/internal/domain"
)

func TestValidator_AllVehicleTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.VehicleTransitions {
		dst, err := v.Apply(ctx, domain.VehicleTransitions, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_AllDriverTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.DriverTransitions {
		dst, err := v.Apply(ctx, domain.DriverTransitions, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_InvalidTransition(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	// Can't dispatch a vehicle that is in maintenance.
	_, err := v.Apply(ctx, domain.VehicleTransitions, domain.StatusMaintenance, domain.EventDispatch)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if trErr.Event != domain.EventDispatch {
		t.Errorf("event = %q, want %q", trErr.Event, domain.EventDispatch)
	}
	if trErr.Current != domain.StatusMaintenance {
		t.Errorf("current = %q, want %q", trErr.Current, domain.StatusMaintenance)
	}
}

func TestValidator_RetiredIsTerminal(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	events := []domain.Event{
		domain.EventDispatch,
		domain.EventRelease,
		domain.EventSendToMaintenance,
		domain.EventReturnToService,
		domain.EventRetire,
	}
	for _, e := range events {
		if _, err := v.Apply(ctx, domain.VehicleTransitions, domain.StatusRetired, e); err == nil {
			t.Errorf("event %q from retired should be rejected", e)
		}
	}
}

func TestValidator_VehicleRoundTrip(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	steps := []struct {
		from  domain.Status
		event domain.Event
		want  domain.Status
	}{
		{domain.StatusAvailable, domain.EventDispatch, domain.StatusOnTrip},
		{domain.StatusOnTrip, domain.EventRelease, domain.StatusAvailable},
		{domain.StatusAvailable, domain.EventSendToMaintenance, domain.StatusMaintenance},
		{domain.StatusMaintenance, domain.EventReturnToService, domain.StatusAvailable},
		{domain.StatusAvailable, domain.EventRetire, domain.StatusRetired},
	}

	for _, step := range steps {
		got, err := v.Apply(ctx, domain.VehicleTransitions, step.from, step.event)
		if err != nil {
			t.Fatalf("Apply(%q, %q) error: %v", step.from, step.event, err)
		}
		if got != step.want {
			t.Errorf("Apply(%q, %q) = %q, want %q", step.from, step.event, got, step.want)
		}
	}
}

func TestValidator_TripClose(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	got, err := v.Apply(ctx, domain.TripTransitions, domain.StatusInProgress, domain.EventClose)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.StatusFinished {
		t.Errorf("got %q, want %q", got, domain.StatusFinished)
	}

	// Re-closing a finished trip is never a valid transition.
	if _, err := v.Apply(ctx, domain.TripTransitions, domain.StatusFinished, domain.EventClose); err == nil {
		t.Error("close from finished should be rejected")
	}
}
