package core_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"stockledger/internal/core"
	"stockledger/internal/store/memory"

	"github.com/shopspring/decimal"
)

func TestReceive_DraftMintsUnitsWithoutInventory(t *testing.T) {
	h := newHarness(t)
	abc := h.createItem(t, core.ItemInput{SKU: "ABC"})

	receipt, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName:  "Acme",
		DeliveryFee: dec("6.00"),
		Lines:       []core.PurchaseLineInput{{ItemID: abc.ID, Quantity: 3, UnitPrice: dec("10.00")}},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if receipt.Purchase.Status != core.PurchaseDraft {
		t.Errorf("status = %s, want draft", receipt.Purchase.Status)
	}
	if receipt.Purchase.StockAppliedAt != nil {
		t.Error("draft purchase must not be marked as stock applied")
	}
	want := []string{"ABC-0001", "ABC-0002", "ABC-0003"}
	if len(receipt.Units) != len(want) {
		t.Fatalf("minted %d units, want %d", len(receipt.Units), len(want))
	}
	for i, u := range receipt.Units {
		if u.UnitCode != want[i] {
			t.Errorf("unit[%d] = %s, want %s", i, u.UnitCode, want[i])
		}
		if u.PurchaseID != receipt.Purchase.ID {
			t.Errorf("unit[%d] purchase = %s, want %s", i, u.PurchaseID, receipt.Purchase.ID)
		}
	}

	line := receipt.Purchase.Lines[0]
	if line.SKU != "ABC" {
		t.Errorf("line sku = %q, want ABC", line.SKU)
	}
	if !line.AdjustedUnitPrice.Equal(decimal.NewFromInt(12)) {
		t.Errorf("adjusted unit price = %s, want 12", line.AdjustedUnitPrice)
	}

	item := h.item(t, abc.ID)
	assertBuckets(t, item, 0, 0, 0, 0)
	if item.NextUnitCounter != 4 {
		t.Errorf("next counter = %d, want 4", item.NextUnitCounter)
	}
}

func TestReceive_StockReceivedCreditsInventory(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A", OpeningInventory: 2})
	b := h.createItem(t, core.ItemInput{SKU: "B"})

	receipt, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName: "Acme",
		Status:     core.PurchaseStockReceived,
		Lines: []core.PurchaseLineInput{
			{ItemID: a.ID, Quantity: 2},
			{ItemID: b.ID, Quantity: 1},
			{ItemID: a.ID, Quantity: 1},
			{ItemID: b.ID, Quantity: 0},
		},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if receipt.Purchase.StockAppliedAt == nil {
		t.Error("stock_received purchase must be marked as stock applied")
	}
	if len(receipt.Purchase.Lines) != 3 {
		t.Errorf("kept %d lines, want 3", len(receipt.Purchase.Lines))
	}
	if len(receipt.Units) != 4 {
		t.Errorf("minted %d units, want 4", len(receipt.Units))
	}
	assertBuckets(t, h.item(t, a.ID), 5, 0, 0, 0)
	assertBuckets(t, h.item(t, b.ID), 1, 0, 0, 0)

	units, err := h.items.ListUnits(h.ctx, a.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(units) != 3 || units[2].UnitCode != "A-0003" {
		t.Errorf("A units = %v, want A-0001..A-0003", units)
	}
}

func TestReceive_CountersContinueAcrossPurchases(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A"})

	for i := 0; i < 2; i++ {
		if _, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
			VendorName: "Acme",
			Lines:      []core.PurchaseLineInput{{ItemID: a.ID, Quantity: 2}},
		}); err != nil {
			t.Fatalf("Receive #%d: %v", i, err)
		}
	}
	units, _ := h.items.ListUnits(h.ctx, a.ID)
	if len(units) != 4 || units[3].UnitCode != "A-0004" {
		t.Fatalf("units = %v, want A-0001..A-0004", units)
	}
}

func TestReceive_OmitsEmptyLines(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A"})
	b := h.createItem(t, core.ItemInput{SKU: "B"})

	receipt, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName:  "Acme",
		DeliveryFee: dec("4.00"),
		Lines: []core.PurchaseLineInput{
			{ItemID: a.ID, Quantity: 2},
			{ItemID: b.ID, Quantity: 0},
			{ItemID: "  ", Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	lines := receipt.Purchase.Lines
	if len(lines) != 1 || lines[0].ItemID != a.ID || !lines[0].DeliveryShare.Equal(decimal.NewFromInt(4)) {
		t.Errorf("lines = %+v, want only the A line carrying the whole fee", lines)
	}
	stored, _ := h.receipts.GetPurchase(h.ctx, receipt.Purchase.ID)
	if len(stored.Lines) != 1 {
		t.Errorf("stored lines = %d, want 1", len(stored.Lines))
	}
	if units, _ := h.items.ListUnits(h.ctx, b.ID); len(units) != 0 {
		t.Errorf("units minted for zero-quantity line: %v", units)
	}
}

func TestReceive_ValidationFailureMintsNothing(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A"})

	_, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName: "Acme",
		Lines:      []core.PurchaseLineInput{{ItemID: a.ID, Quantity: -1}},
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Receive error = %v, want ValidationError", err)
	}
	if h.item(t, a.ID).NextUnitCounter != 1 {
		t.Error("counter advanced on rejected purchase")
	}
}

func TestReceive_UnknownItemFailsWholeReceipt(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A"})

	_, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName: "Acme",
		Status:     core.PurchaseStockReceived,
		Lines: []core.PurchaseLineInput{
			{ItemID: a.ID, Quantity: 2},
			{ItemID: "ghost", Quantity: 1},
		},
	})
	var rErr *core.ReceiptProcessingError
	if !errors.As(err, &rErr) {
		t.Fatalf("Receive error = %v, want ReceiptProcessingError", err)
	}
	item := h.item(t, a.ID)
	assertBuckets(t, item, 0, 0, 0, 0)
	if item.NextUnitCounter != 1 {
		t.Errorf("next counter = %d, want 1", item.NextUnitCounter)
	}
	if units, _ := h.items.ListUnits(h.ctx, a.ID); len(units) != 0 {
		t.Errorf("minted %d units on failed receipt", len(units))
	}
}

func TestReceive_CommitFailureLeavesCountersUntouched(t *testing.T) {
	fail := false
	h := newHarness(t, memory.WithBeforeCommit(func(core.Tx) error {
		if fail {
			return errors.New("connection reset")
		}
		return nil
	}))
	a := h.createItem(t, core.ItemInput{SKU: "A"})

	fail = true
	_, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName: "Acme",
		Lines:      []core.PurchaseLineInput{{ItemID: a.ID, Quantity: 3}},
	})
	if core.ErrorCode(err) != "LEDGER_COMMIT" {
		t.Fatalf("ErrorCode = %s (%v), want LEDGER_COMMIT", core.ErrorCode(err), err)
	}

	fail = false
	receipt, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName: "Acme",
		Lines:      []core.PurchaseLineInput{{ItemID: a.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Receive retry: %v", err)
	}
	if receipt.Units[0].UnitCode != "A-0001" {
		t.Errorf("first code after failed receipt = %s, want A-0001", receipt.Units[0].UnitCode)
	}
}

func TestReceive_ConcurrentCodesAreUnique(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A"})

	const workers = 8
	const perPurchase = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
				VendorName: fmt.Sprintf("Vendor %d", n),
				Lines:      []core.PurchaseLineInput{{ItemID: a.ID, Quantity: perPurchase}},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
	}

	units, _ := h.items.ListUnits(h.ctx, a.ID)
	if len(units) != workers*perPurchase {
		t.Fatalf("minted %d units, want %d", len(units), workers*perPurchase)
	}
	seen := make(map[string]bool)
	for _, u := range units {
		if seen[u.UnitCode] {
			t.Fatalf("duplicate unit code %s", u.UnitCode)
		}
		seen[u.UnitCode] = true
	}
	for n := 1; n <= workers*perPurchase; n++ {
		if code := core.FormatUnitCode("A", n); !seen[code] {
			t.Errorf("missing unit code %s", code)
		}
	}
}

func TestApplyStock_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A"})

	receipt, err := h.receipts.Receive(h.ctx, core.PurchaseInput{
		VendorName: "Acme",
		Status:     core.PurchasePaid,
		Lines:      []core.PurchaseLineInput{{ItemID: a.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	assertBuckets(t, h.item(t, a.ID), 0, 0, 0, 0)

	for i := 0; i < 2; i++ {
		p, err := h.receipts.ApplyStock(h.ctx, receipt.Purchase.ID)
		if err != nil {
			t.Fatalf("ApplyStock #%d: %v", i, err)
		}
		if p.Status != core.PurchaseStockReceived || p.StockAppliedAt == nil {
			t.Errorf("purchase after apply = %s applied=%v", p.Status, p.StockAppliedAt)
		}
	}
	assertBuckets(t, h.item(t, a.ID), 4, 0, 0, 0)

	if _, err := h.receipts.ApplyStock(h.ctx, "ghost"); core.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("ApplyStock(ghost) error = %v, want NOT_FOUND", err)
	}
}
