package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fabworks/mfg-core/internal/model/entity"
	"github.com/fabworks/mfg-core/internal/repository"
	"github.com/fabworks/mfg-core/internal/testutil"
)

func TestAdjustExistingProduct(t *testing.T) {
	svc, db := newTestServices(t)
	p := testutil.SeedProduct(t, db, "Screw", 100, 0, 0)
	ctx := context.Background()

	out, err := svc.Inventory.Adjust(ctx, "Screw", 50, "")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if out.Created {
		t.Error("expected adjustment of an existing product, not creation")
	}
	if out.NewQuantity != 150 {
		t.Errorf("expected 150, got %d", out.NewQuantity)
	}

	out, err = svc.Inventory.Adjust(ctx, "Screw", -30, "")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if out.NewQuantity != 120 {
		t.Errorf("expected 120, got %d", out.NewQuantity)
	}

	var entries []entity.StockLedgerEntry
	db.Where("product_id = ?", p.ID).Order("timestamp ASC").Find(&entries)
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}
	if entries[1].Reason != entity.ReasonManualAddition || entries[1].QuantityChange != 50 {
		t.Errorf("unexpected addition entry: %+v", entries[1])
	}
	if entries[2].Reason != entity.ReasonManualRemoval || entries[2].QuantityChange != -30 {
		t.Errorf("unexpected removal entry: %+v", entries[2])
	}
}

func TestAdjustCaseInsensitiveLookup(t *testing.T) {
	svc, db := newTestServices(t)
	testutil.SeedProduct(t, db, "Wood Panel", 10, 0, 0)

	out, err := svc.Inventory.Adjust(context.Background(), "wood panel", 5, "")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if out.Created {
		t.Error("case-insensitive match should not create a duplicate product")
	}
	if out.Product.Name != "Wood Panel" {
		t.Errorf("expected canonical name preserved, got %q", out.Product.Name)
	}
	if out.NewQuantity != 15 {
		t.Errorf("expected 15, got %d", out.NewQuantity)
	}
}

func TestAdjustCreatesUnknownProductOnInbound(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()

	out, err := svc.Inventory.Adjust(ctx, "Hinge", 40, "Brass hinge")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if !out.Created {
		t.Error("expected a new product record")
	}
	if out.NewQuantity != 40 {
		t.Errorf("expected 40, got %d", out.NewQuantity)
	}

	var entry entity.StockLedgerEntry
	if err := db.Where("product_id = ?", out.Product.ID).First(&entry).Error; err != nil {
		t.Fatalf("load ledger entry: %v", err)
	}
	if entry.Reason != entity.ReasonInitialStock || entry.QuantityChange != 40 {
		t.Errorf("expected Initial Stock +40, got %+v", entry)
	}
}

func TestAdjustRejectsOutboundForUnknownProduct(t *testing.T) {
	svc, _ := newTestServices(t)

	_, err := svc.Inventory.Adjust(context.Background(), "Nonexistent", -5, "")
	if !errors.Is(err, ErrUnknownProduct) {
		t.Errorf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestAdjustRejectsOverdraw(t *testing.T) {
	svc, db := newTestServices(t)
	p := testutil.SeedProduct(t, db, "Bolt", 10, 0, 0)
	ctx := context.Background()

	_, err := svc.Inventory.Adjust(ctx, "Bolt", -11, "")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Rejected adjustment leaves both quantity and ledger untouched.
	reloaded := reloadProduct(t, db, p.ID)
	if reloaded.OnHandQuantity != 10 {
		t.Errorf("expected 10, got %d", reloaded.OnHandQuantity)
	}
	var n int64
	db.Model(&entity.StockLedgerEntry{}).Where("product_id = ?", p.ID).Count(&n)
	if n != 1 {
		t.Errorf("expected only the seed ledger entry, got %d", n)
	}

	// Draining to exactly zero is allowed.
	out, err := svc.Inventory.Adjust(ctx, "Bolt", -10, "")
	if err != nil {
		t.Fatalf("Adjust to zero failed: %v", err)
	}
	if out.NewQuantity != 0 {
		t.Errorf("expected 0, got %d", out.NewQuantity)
	}
}

func TestManualRemovalTriggersReorder(t *testing.T) {
	svc, db := newTestServices(t)
	p := testutil.SeedProduct(t, db, "Varnish", 12, 10, 30)
	ctx := context.Background()

	// 12-5=7 crosses the min level of 10: the reorder adds 30 for 37.
	out, err := svc.Inventory.Adjust(ctx, "Varnish", -5, "")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if out.NewQuantity != 37 {
		t.Errorf("expected 37 after reorder, got %d", out.NewQuantity)
	}

	var entries []entity.StockLedgerEntry
	db.Where("product_id = ?", p.ID).Order("timestamp ASC").Find(&entries)
	if len(entries) != 3 {
		t.Fatalf("expected seed + removal + reorder entries, got %d", len(entries))
	}
	if entries[2].Reason != entity.ReasonAutomaticReorder || entries[2].QuantityChange != 30 {
		t.Errorf("unexpected reorder entry: %+v", entries[2])
	}

	// A second removal that stays below min does not reorder again while
	// the level is already above min after compensation.
	out, err = svc.Inventory.Adjust(ctx, "Varnish", -2, "")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if out.NewQuantity != 35 {
		t.Errorf("expected 35, got %d", out.NewQuantity)
	}
}

func TestLedgerListAndExport(t *testing.T) {
	svc, db := newTestServices(t)
	p := testutil.SeedProduct(t, db, "Paint", 20, 0, 0)
	other := testutil.SeedProduct(t, db, "Brush", 5, 0, 0)
	ctx := context.Background()

	if _, err := svc.Inventory.Adjust(ctx, "Paint", -3, ""); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	entries, total, err := svc.Inventory.ListLedger(ctx, repository.LedgerListParams{ProductID: p.ID})
	if err != nil {
		t.Fatalf("ListLedger failed: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("expected 2 entries for product, got total=%d len=%d", total, len(entries))
	}
	// Newest first.
	if entries[0].Reason != entity.ReasonManualRemoval {
		t.Errorf("expected removal entry first, got %q", entries[0].Reason)
	}
	for _, e := range entries {
		if e.ProductID == other.ID {
			t.Error("ledger filter leaked another product's entries")
		}
	}

	f, filename, err := svc.Inventory.ExportLedger(ctx, p.ID)
	if err != nil {
		t.Fatalf("ExportLedger failed: %v", err)
	}
	defer f.Close()
	if filename == "" {
		t.Error("expected a generated filename")
	}

	rows, err := f.GetRows("Stock Ledger")
	if err != nil {
		t.Fatalf("read export sheet: %v", err)
	}
	// Header plus one row per ledger entry.
	if len(rows) != 3 {
		t.Fatalf("expected 3 sheet rows, got %d", len(rows))
	}
	if rows[0][1] != "Product" {
		t.Errorf("unexpected header row: %v", rows[0])
	}
	if rows[1][1] != "Paint" {
		t.Errorf("expected product name in export, got %q", rows[1][1])
	}
}
