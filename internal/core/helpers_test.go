package core_test

import (
	"context"
	"testing"

	"stockledger/internal/core"
	"stockledger/internal/store/memory"
)

type harness struct {
	ctx      context.Context
	store    *memory.Store
	ledger   *core.Ledger
	items    core.ItemService
	receipts core.ReceiptService
	tracking core.TrackingService
	projects core.ProjectService
}

func newHarness(t *testing.T, opts ...memory.Option) *harness {
	t.Helper()
	store := memory.NewStore(opts...)
	ledger := core.NewLedger(store)
	tracking := core.NewTrackingService(store, ledger, 0)
	return &harness{
		ctx:      context.Background(),
		store:    store,
		ledger:   ledger,
		items:    core.NewItemService(store, ledger),
		receipts: core.NewReceiptService(store, ledger),
		tracking: tracking,
		projects: core.NewProjectService(store, ledger, tracking),
	}
}

func (h *harness) createItem(t *testing.T, in core.ItemInput) *core.Item {
	t.Helper()
	if in.Name == "" {
		in.Name = in.SKU
	}
	item, err := h.items.CreateItem(h.ctx, in)
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", in.SKU, err)
	}
	return item
}

func (h *harness) item(t *testing.T, id string) *core.Item {
	t.Helper()
	item, err := h.items.GetItem(h.ctx, id)
	if err != nil {
		t.Fatalf("GetItem(%s): %v", id, err)
	}
	return item
}

func assertBuckets(t *testing.T, item *core.Item, inventory, reserved, wip, completed int) {
	t.Helper()
	if item.InventoryQty != inventory || item.ReservedQty != reserved || item.WIPQty != wip || item.CompletedQty != completed {
		t.Errorf("%s buckets = [inv %d res %d wip %d done %d], want [inv %d res %d wip %d done %d]",
			item.SKU, item.InventoryQty, item.ReservedQty, item.WIPQty, item.CompletedQty,
			inventory, reserved, wip, completed)
	}
}
