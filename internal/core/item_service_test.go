package core_test

import (
	"errors"
	"testing"

	"stockledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestCreateItem(t *testing.T) {
	h := newHarness(t)
	cost := decimal.RequireFromString("1.25")

	item, err := h.items.CreateItem(h.ctx, core.ItemInput{
		SKU:              " abc ",
		Name:             "Widget",
		Category:         "Sensor",
		StandardCost:     &cost,
		OpeningInventory: 4,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.SKU != "ABC" || item.Category != core.CategorySensor || item.NextUnitCounter != 1 {
		t.Errorf("item = %+v", item)
	}
	assertBuckets(t, item, 4, 0, 0, 0)

	_, err = h.items.CreateItem(h.ctx, core.ItemInput{SKU: "ABC", Name: "Dup"})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "sku" {
		t.Errorf("duplicate sku error = %v, want sku ValidationError", err)
	}

	for _, in := range []core.ItemInput{
		{Name: "no sku"},
		{SKU: "X"},
		{SKU: "Y", Name: "neg", OpeningInventory: -1},
		{SKU: "Z", Name: "neg life", UsefulLifeMonths: -1},
	} {
		if _, err := h.items.CreateItem(h.ctx, in); core.ErrorCode(err) != "VALIDATION" {
			t.Errorf("CreateItem(%+v) error = %v, want VALIDATION", in, err)
		}
	}
}

func TestGetStockLevels(t *testing.T) {
	h := newHarness(t)
	cost := decimal.RequireFromString("3")
	a := h.createItem(t, core.ItemInput{SKU: "A", StandardCost: &cost, OpeningInventory: 10})
	h.createItem(t, core.ItemInput{SKU: "B", OpeningInventory: 1})

	var b core.Batch
	b.Move(a.ID, core.BucketInventory, core.BucketCompleted, 4)
	if err := h.ledger.Commit(h.ctx, b); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	levels, err := h.items.GetStockLevels(h.ctx, 2)
	if err != nil {
		t.Fatalf("GetStockLevels: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(levels))
	}
	la, lb := levels[0], levels[1]
	if la.SKU != "A" || la.Inventory != 6 || la.Completed != 4 || la.TotalOnHand != 10 || la.LowStock {
		t.Errorf("A level = %+v", la)
	}
	if !la.Valuation.Equal(decimal.NewFromInt(30)) {
		t.Errorf("A valuation = %s, want 30", la.Valuation)
	}
	if !lb.LowStock {
		t.Errorf("B level = %+v, want low stock", lb)
	}
}

func TestListUnits_UnknownItem(t *testing.T) {
	h := newHarness(t)
	if _, err := h.items.ListUnits(h.ctx, "ghost"); core.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("ListUnits error = %v, want NOT_FOUND", err)
	}
}
