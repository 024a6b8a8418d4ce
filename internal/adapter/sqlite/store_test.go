package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beverloop/tripledger/internal/adapter/sqlite"
	"github.com/beverloop/tripledger/internal/domain"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.CloseDB() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedCatalog loads a team, two vehicles, two drivers and a product so trip
// tests have resources to assign.
func seedCatalog(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	team := domain.Team{ID: "team-1", Name: "North Route", SupervisorID: "sup-1", SupervisorName: "Ana Diaz"}
	if err := store.CreateTeam(ctx, team); err != nil {
		t.Fatalf("seeding team: %v", err)
	}

	for _, v := range []domain.Vehicle{
		{ID: "v-1", PlateCode: "AB1234CD", Model: "Mercedes Atego", Status: domain.StatusAvailable, Version: 1},
		{ID: "v-2", PlateCode: "XY9876ZW", Model: "Iveco Daily", Status: domain.StatusAvailable, Version: 1},
	} {
		if err := store.CreateVehicle(ctx, v); err != nil {
			t.Fatalf("seeding vehicle: %v", err)
		}
	}

	teamID := "team-1"
	for _, d := range []domain.Driver{
		{ID: "d-1", Name: "Maria Lopez", NationalID: "30123456", LicenseExpiry: time.Now().UTC().AddDate(1, 0, 0), TeamID: &teamID, Status: domain.StatusAvailable},
		{ID: "d-2", Name: "Juan Perez", NationalID: "28765432", LicenseExpiry: time.Now().UTC().AddDate(1, 0, 0), TeamID: &teamID, Status: domain.StatusAvailable},
	} {
		if err := store.CreateDriver(ctx, d); err != nil {
			t.Fatalf("seeding driver: %v", err)
		}
	}

	product := domain.Product{
		ID: "p-1", Name: "Cola 2L", Active: true,
		Prices: []domain.ProductPrice{
			{ID: "pt-1", ProductID: "p-1", Label: "wholesale", Value: dec("10.00"), Position: 0},
			{ID: "pt-2", ProductID: "p-1", Label: "retail", Value: dec("15.00"), Position: 1},
		},
	}
	if err := store.CreateProduct(ctx, product); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
}

func newTrip(id, vehicleID, driverID string) domain.Trip {
	return domain.NewTrip(id, vehicleID, driverID, "sup-1", []domain.TripLine{
		{ID: id + "-l1", ProductID: "p-1", PriceTierID: "pt-1", ProductName: "Cola 2L", TierLabel: "wholesale", UnitPrice: dec("10.00"), OpeningQty: 20},
		{ID: id + "-l2", ProductID: "p-1", PriceTierID: "pt-2", ProductName: "Cola 2L", TierLabel: "retail", UnitPrice: dec("15.00"), OpeningQty: 5},
	})
}

func mustOpen(t *testing.T, store *sqlite.Store, trip domain.Trip) {
	t.Helper()
	if err := store.Open(context.Background(), trip); err != nil {
		t.Fatalf("mustOpen failed: %v", err)
	}
}

func mustClose(t *testing.T, store *sqlite.Store, trip domain.Trip, closing []int) domain.Trip {
	t.Helper()
	finals := make([]domain.FinalQuantity, len(trip.Lines))
	for i, l := range trip.Lines {
		finals[i] = domain.FinalQuantity{LineItemID: l.ID, ClosingQty: closing[i]}
	}
	if err := trip.Reconcile(finals, time.Now()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if err := store.Close(context.Background(), trip); err != nil {
		t.Fatalf("mustClose failed: %v", err)
	}
	return trip
}

func TestOpen_And_GetByID(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	trip := newTrip("t-1", "v-1", "d-1")
	if err := store.Open(ctx, trip); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	got, err := store.GetByID(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Status != domain.StatusInProgress {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusInProgress)
	}
	if got.SupervisorID != "sup-1" {
		t.Errorf("SupervisorID = %q, want sup-1", got.SupervisorID)
	}
	if got.EndedAt != nil || got.TotalRevenue != nil {
		t.Error("EndedAt and TotalRevenue must be unset on an open trip")
	}
	if len(got.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(got.Lines))
	}
	if !got.Lines[0].UnitPrice.Equal(dec("10.00")) {
		t.Errorf("line 0 unit price = %v, want 10.00", got.Lines[0].UnitPrice)
	}
	if got.Lines[0].ClosingQty != nil {
		t.Error("line 0 ClosingQty must be unset on an open trip")
	}

	// The store dispatched the assigned resources.
	vehicle, _ := store.GetVehicle(ctx, "v-1")
	if vehicle.Status != domain.StatusOnTrip {
		t.Errorf("vehicle status = %q, want on_trip", vehicle.Status)
	}
	if vehicle.Version != 2 {
		t.Errorf("vehicle version = %d, want 2", vehicle.Version)
	}
	driver, _ := store.GetDriver(ctx, "d-1")
	if driver.Status != domain.StatusBusy {
		t.Errorf("driver status = %q, want busy", driver.Status)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrTripNotFound) {
		t.Errorf("expected ErrTripNotFound, got %v", err)
	}
}

func TestOpen_VehicleTaken(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	mustOpen(t, store, newTrip("t-1", "v-1", "d-1"))

	err := store.Open(ctx, newTrip("t-2", "v-1", "d-2"))
	var conflict *domain.ConcurrentModificationError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConcurrentModificationError, got %v", err)
	}
	if conflict.Entity != "vehicle" {
		t.Errorf("entity = %q, want vehicle", conflict.Entity)
	}

	// The losing open left nothing behind: the second driver stays available.
	driver, _ := store.GetDriver(ctx, "d-2")
	if driver.Status != domain.StatusAvailable {
		t.Errorf("driver status = %q, want available after rollback", driver.Status)
	}
	if _, err := store.GetByID(ctx, "t-2"); !errors.Is(err, domain.ErrTripNotFound) {
		t.Errorf("trip t-2 must not exist, got %v", err)
	}
}

func TestOpen_DriverTaken(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	mustOpen(t, store, newTrip("t-1", "v-1", "d-1"))

	err := store.Open(ctx, newTrip("t-2", "v-2", "d-1"))
	var conflict *domain.ConcurrentModificationError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConcurrentModificationError, got %v", err)
	}
	if conflict.Entity != "driver" {
		t.Errorf("entity = %q, want driver", conflict.Entity)
	}

	vehicle, _ := store.GetVehicle(ctx, "v-2")
	if vehicle.Status != domain.StatusAvailable {
		t.Errorf("vehicle status = %q, want available after rollback", vehicle.Status)
	}
}

func TestClose_PersistsReconciliation(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)
	mustClose(t, store, trip, []int{4, 1})

	got, err := store.GetByID(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Status != domain.StatusFinished {
		t.Errorf("Status = %q, want finished", got.Status)
	}
	if got.TotalRevenue == nil || !got.TotalRevenue.Equal(dec("220.00")) {
		t.Errorf("TotalRevenue = %v, want 220.00", got.TotalRevenue)
	}
	if got.EndedAt == nil {
		t.Fatal("EndedAt must be set on a finished trip")
	}
	if got.Lines[0].Revenue == nil || !got.Lines[0].Revenue.Equal(dec("160.00")) {
		t.Errorf("line 0 revenue = %v, want 160.00", got.Lines[0].Revenue)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2 after close", got.Version)
	}

	// Resources released.
	vehicle, _ := store.GetVehicle(ctx, "v-1")
	if vehicle.Status != domain.StatusAvailable {
		t.Errorf("vehicle status = %q, want available", vehicle.Status)
	}
	driver, _ := store.GetDriver(ctx, "d-1")
	if driver.Status != domain.StatusAvailable {
		t.Errorf("driver status = %q, want available", driver.Status)
	}
}

func TestClose_SecondCloseIsAlreadyFinished(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)
	mustClose(t, store, trip, []int{4, 1})

	// A second close against the same loaded copy loses the version race.
	// The trip is finished by then, so the loser gets the terminal error,
	// not a retryable conflict.
	stale := trip
	if err := stale.Reconcile([]domain.FinalQuantity{
		{LineItemID: stale.Lines[0].ID, ClosingQty: 4},
		{LineItemID: stale.Lines[1].ID, ClosingQty: 1},
	}, time.Now()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	err := store.Close(context.Background(), stale)
	var finished *domain.AlreadyFinishedError
	if !errors.As(err, &finished) {
		t.Fatalf("expected AlreadyFinishedError, got %v", err)
	}
	if finished.TripID != "t-1" {
		t.Errorf("TripID = %q, want t-1", finished.TripID)
	}
}

func TestClose_LeavesRetiredVehicleRetired(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)

	// Retire the vehicle while its trip is still running.
	vehicle, _ := store.GetVehicle(ctx, "v-1")
	vehicle.Status = domain.StatusRetired
	if err := store.UpdateVehicle(ctx, vehicle); err != nil {
		t.Fatalf("retiring vehicle: %v", err)
	}

	mustClose(t, store, trip, []int{4, 1})

	// Retired is terminal: closing the trip must not release the vehicle.
	got, _ := store.GetVehicle(ctx, "v-1")
	if got.Status != domain.StatusRetired {
		t.Errorf("vehicle status = %q, want retired after trip close", got.Status)
	}
	driver, _ := store.GetDriver(ctx, "d-1")
	if driver.Status != domain.StatusAvailable {
		t.Errorf("driver status = %q, want available", driver.Status)
	}
}

func TestClose_LeavesRetiredDriverRetired(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)

	driver, _ := store.GetDriver(ctx, "d-1")
	driver.Status = domain.StatusRetired
	if err := store.UpdateDriver(ctx, driver); err != nil {
		t.Fatalf("retiring driver: %v", err)
	}

	mustClose(t, store, trip, []int{4, 1})

	got, _ := store.GetDriver(ctx, "d-1")
	if got.Status != domain.StatusRetired {
		t.Errorf("driver status = %q, want retired after trip close", got.Status)
	}
	vehicle, _ := store.GetVehicle(ctx, "v-1")
	if vehicle.Status != domain.StatusAvailable {
		t.Errorf("vehicle status = %q, want available", vehicle.Status)
	}
}

func TestReopen_AfterClose(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)
	mustClose(t, store, trip, []int{20, 5})

	// The same vehicle and driver are assignable again.
	mustOpen(t, store, newTrip("t-2", "v-1", "d-1"))
}

func TestListActive(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	t1 := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, t1)
	mustClose(t, store, t1, []int{4, 1})
	mustOpen(t, store, newTrip("t-2", "v-2", "d-2"))

	active, err := store.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "t-2" {
		t.Errorf("active = %v, want just t-2", active)
	}
	if len(active[0].Lines) != 2 {
		t.Errorf("active trip loaded %d lines, want 2", len(active[0].Lines))
	}
}

func TestSearchFinished_Pagination(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	for _, id := range []string{"t-1", "t-2", "t-3"} {
		trip := newTrip(id, "v-1", "d-1")
		mustOpen(t, store, trip)
		mustClose(t, store, trip, []int{4, 1})
	}

	page, err := store.SearchFinished(context.Background(), domain.TripFilter{}, domain.PageRequest{Page: 0, Size: 2})
	if err != nil {
		t.Fatalf("SearchFinished failed: %v", err)
	}
	if page.TotalElements != 3 {
		t.Errorf("TotalElements = %d, want 3", page.TotalElements)
	}
	if page.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", page.TotalPages)
	}
	if len(page.Content) != 2 {
		t.Errorf("got %d trips on page 0, want 2", len(page.Content))
	}

	last, err := store.SearchFinished(context.Background(), domain.TripFilter{}, domain.PageRequest{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("SearchFinished failed: %v", err)
	}
	if len(last.Content) != 1 {
		t.Errorf("got %d trips on page 1, want 1", len(last.Content))
	}
}

func TestSearchFinished_FilterBySupervisor(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)
	mustClose(t, store, trip, []int{4, 1})

	other := "sup-other"
	page, err := store.SearchFinished(context.Background(), domain.TripFilter{SupervisorID: &other}, domain.PageRequest{Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("SearchFinished failed: %v", err)
	}
	if page.TotalElements != 0 {
		t.Errorf("TotalElements = %d, want 0 for another supervisor", page.TotalElements)
	}
}

func TestCreateVehicle_DuplicatePlate(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	err := store.CreateVehicle(context.Background(), domain.Vehicle{
		ID: "v-9", PlateCode: "AB1234CD", Model: "Clone", Status: domain.StatusAvailable, Version: 1,
	})
	var plateErr *domain.PlateConflictError
	if !errors.As(err, &plateErr) {
		t.Fatalf("expected PlateConflictError, got %v", err)
	}
	if plateErr.PlateCode != "AB1234CD" {
		t.Errorf("plate = %q, want AB1234CD", plateErr.PlateCode)
	}
}

func TestUpdateVehicle_StaleVersion(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	vehicle, _ := store.GetVehicle(ctx, "v-1")
	if err := store.UpdateVehicle(ctx, vehicle); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Same loaded copy again: the version moved on underneath it.
	err := store.UpdateVehicle(ctx, vehicle)
	var conflict *domain.ConcurrentModificationError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConcurrentModificationError, got %v", err)
	}
}

func TestUpdateVehicle_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateVehicle(context.Background(), domain.Vehicle{ID: "nonexistent", Version: 1})
	if !errors.Is(err, domain.ErrVehicleNotFound) {
		t.Errorf("expected ErrVehicleNotFound, got %v", err)
	}
}

func TestGetProduct_LoadsTiersInOrder(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	product, err := store.GetProduct(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if len(product.Prices) != 2 {
		t.Fatalf("got %d tiers, want 2", len(product.Prices))
	}
	if product.Prices[0].Label != "wholesale" || product.Prices[1].Label != "retail" {
		t.Errorf("tier order = [%s, %s]", product.Prices[0].Label, product.Prices[1].Label)
	}
	if !product.Prices[1].Value.Equal(dec("15.00")) {
		t.Errorf("retail value = %v, want 15.00", product.Prices[1].Value)
	}
}

func TestListProducts_ActiveOnly(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	product, _ := store.GetProduct(ctx, "p-1")
	product.Deactivate()
	if err := store.UpdateProduct(ctx, product); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	all, err := store.ListProducts(ctx, false)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d products unfiltered, want 1", len(all))
	}

	active, err := store.ListProducts(ctx, true)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("got %d active products, want 0", len(active))
	}
}

func TestFinishedLines_And_ActiveCount(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)
	mustClose(t, store, trip, []int{4, 1})
	mustOpen(t, store, newTrip("t-2", "v-2", "d-2"))

	today := time.Now().UTC()
	rng, err := domain.NewDateRange(today, today)
	if err != nil {
		t.Fatalf("building range: %v", err)
	}

	lines, err := store.FinishedLines(ctx, domain.ReportQuery{Range: rng})
	if err != nil {
		t.Fatalf("FinishedLines failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	total := lines[0].Revenue.Add(lines[1].Revenue)
	if !total.Equal(dec("220.00")) {
		t.Errorf("revenue sum = %v, want 220.00", total)
	}

	count, err := store.ActiveTripCount(ctx)
	if err != nil {
		t.Fatalf("ActiveTripCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("active count = %d, want 1", count)
	}
}

func TestFinishedLines_SupervisorScope(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)
	mustClose(t, store, trip, []int{4, 1})

	today := time.Now().UTC()
	rng, _ := domain.NewDateRange(today, today)
	other := "sup-other"

	lines, err := store.FinishedLines(ctx, domain.ReportQuery{Range: rng, SupervisorID: &other})
	if err != nil {
		t.Fatalf("FinishedLines failed: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %d lines for another supervisor, want 0", len(lines))
	}
}

func TestAuditTrail(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	trip := newTrip("t-1", "v-1", "d-1")
	mustOpen(t, store, trip)
	mustClose(t, store, trip, []int{4, 1})

	today := time.Now().UTC()
	rng, _ := domain.NewDateRange(today, today)

	page, err := store.AuditTrail(ctx, domain.ReportQuery{Range: rng}, domain.PageRequest{Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("AuditTrail failed: %v", err)
	}

	if page.TotalElements != 2 {
		t.Fatalf("TotalElements = %d, want 2", page.TotalElements)
	}
	row := page.Content[0]
	if row.DriverName != "Maria Lopez" {
		t.Errorf("DriverName = %q, want Maria Lopez", row.DriverName)
	}
	if row.VehiclePlate != "AB1234CD" {
		t.Errorf("VehiclePlate = %q, want AB1234CD", row.VehiclePlate)
	}
	if row.TeamName != "North Route" {
		t.Errorf("TeamName = %q, want North Route", row.TeamName)
	}
	if row.UnitsSold != row.OpeningQty-row.ClosingQty {
		t.Errorf("UnitsSold = %d, inconsistent with quantities", row.UnitsSold)
	}
}
