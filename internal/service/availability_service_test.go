package service

import (
	"context"
	"testing"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"github.com/fabworks/mfg-core/internal/testutil"
)

func TestAnnotateWithoutBOM(t *testing.T) {
	svc, db := newTestServices(t)
	desk := testutil.SeedProduct(t, db, "Desk", 0, 0, 0)
	ctx := context.Background()

	mo, err := svc.Order.Create(ctx, CreateOrderRequest{
		ProductID:         desk.ID,
		QuantityToProduce: 3,
	}, testutil.TestActorID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rows, err := svc.Availability.Annotate(ctx, []entity.ManufacturingOrder{*mo})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if rows[0].ComponentStatus != ComponentStatusNA {
		t.Errorf("expected N/A without a BOM, got %q", rows[0].ComponentStatus)
	}
}

func TestAnnotateZeroComponentBOM(t *testing.T) {
	svc, db := newTestServices(t)
	desk := testutil.SeedProduct(t, db, "Desk", 0, 0, 0)
	wc := testutil.SeedWorkCenter(t, db, "Assembly Line 1")
	bom := testutil.SeedBOM(t, db, "Ops-only BOM", desk.ID, nil,
		[]testutil.BOMOperationSpec{{Name: "Packing", WorkCenterID: wc.ID, DurationMinutes: 15}},
	)
	ctx := context.Background()

	mo, err := svc.Order.Create(ctx, CreateOrderRequest{
		ProductID:         desk.ID,
		BOMID:             &bom.ID,
		QuantityToProduce: 3,
	}, testutil.TestActorID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rows, err := svc.Availability.Annotate(ctx, []entity.ManufacturingOrder{*mo})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if rows[0].ComponentStatus != ComponentStatusNA {
		t.Errorf("expected N/A for a BOM with no components, got %q", rows[0].ComponentStatus)
	}
}

func TestAnnotateAvailability(t *testing.T) {
	svc, db := newTestServices(t)
	fx := seedDeskFixture(t, db)
	ctx := context.Background()

	// 25 legs cover 10 desks (20 needed) but not 20 desks (40 needed).
	covered := createDeskOrder(t, svc, fx, 10)
	short := createDeskOrder(t, svc, fx, 20)

	rows, err := svc.Availability.Annotate(ctx, []entity.ManufacturingOrder{*covered, *short})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if rows[0].ComponentStatus != ComponentStatusAvailable {
		t.Errorf("expected Available for the covered order, got %q", rows[0].ComponentStatus)
	}
	if rows[1].ComponentStatus != ComponentStatusNotAvailable {
		t.Errorf("expected Not Available for the short order, got %q", rows[1].ComponentStatus)
	}

	// Annotation is read-only: no ledger entries, no stock movement.
	leg := reloadProduct(t, db, fx.leg.ID)
	if leg.OnHandQuantity != 25 {
		t.Errorf("annotation mutated stock: %d", leg.OnHandQuantity)
	}
	var n int64
	db.Model(&entity.StockLedgerEntry{}).Where("product_id = ?", fx.leg.ID).Count(&n)
	if n != 1 {
		t.Errorf("annotation wrote ledger entries: %d", n)
	}
}

func TestStatusForBoundary(t *testing.T) {
	bomID := "bom-1"
	order := &entity.ManufacturingOrder{BOMID: &bomID, QuantityToProduce: 5}
	components := []entity.BOMComponent{{ComponentProductID: "p1", QuantityRequired: 2}}

	svc := &AvailabilityService{}

	// Exactly enough counts as Available.
	if got := svc.StatusFor(order, components, map[string]int{"p1": 10}); got != ComponentStatusAvailable {
		t.Errorf("expected Available at exact coverage, got %q", got)
	}
	if got := svc.StatusFor(order, components, map[string]int{"p1": 9}); got != ComponentStatusNotAvailable {
		t.Errorf("expected Not Available one unit short, got %q", got)
	}
	// A product missing from the snapshot counts as zero on hand.
	if got := svc.StatusFor(order, components, map[string]int{}); got != ComponentStatusNotAvailable {
		t.Errorf("expected Not Available for unknown product, got %q", got)
	}
}
