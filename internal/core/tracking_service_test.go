package core_test

import (
	"errors"
	"testing"
	"time"

	"stockledger/internal/core"
)

func TestTrack_SkipsItemsWithoutLifeParameters(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A", Category: "sensor"})

	rec, err := h.tracking.Track(h.ctx, core.TrackInput{ProjectID: "p1", ItemID: a.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if rec != nil {
		t.Errorf("Track returned %+v, want nil for untracked item", rec)
	}
}

func TestTrack_ReplacementFrequency(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "FLT", Category: "sensor_extra", AnnualReplacementFrequency: 12})

	rec, err := h.tracking.Track(h.ctx, core.TrackInput{
		ProjectID:   "p1",
		ProjectName: "Site",
		ItemID:      a.ID,
		Quantity:    3,
		CompletedAt: date(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if rec.TrackingType != core.TrackingReplacementFrequency || rec.ItemType != core.CategorySensorExtra {
		t.Errorf("record = %+v", rec)
	}
	if !rec.ReplaceBy.Equal(date(2024, 1, 31)) {
		t.Errorf("replace by = %s, want 2024-01-31", rec.ReplaceBy.Format(time.DateOnly))
	}
}

func TestReplenish_ClosesAndOpensCycle(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "LAMP", Category: "product", UsefulLifeMonths: 6, OpeningInventory: 1})

	rec, err := h.tracking.Track(h.ctx, core.TrackInput{
		ProjectID:   "p1",
		ProjectName: "Hall",
		ItemID:      a.ID,
		Quantity:    2,
		CompletedAt: date(2024, 1, 15),
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if !rec.ReplaceBy.Equal(date(2024, 7, 15)) {
		t.Fatalf("replace by = %s, want 2024-07-15", rec.ReplaceBy.Format(time.DateOnly))
	}

	next := date(2025, 1, 15)
	res, err := h.tracking.Replenish(h.ctx, rec.ID, next)
	if err != nil {
		t.Fatalf("Replenish: %v", err)
	}
	if !res.Closed.Replenished || res.Closed.ReplenishedAt == nil || res.Closed.ID != rec.ID {
		t.Errorf("closed = %+v", res.Closed)
	}
	if res.Opened.ID == rec.ID || res.Opened.Replenished || !res.Opened.ReplaceBy.Equal(next) {
		t.Errorf("opened = %+v", res.Opened)
	}
	if res.Opened.UsefulLifeMonths != 6 || res.Opened.Quantity != 2 || res.Opened.ProjectID != "p1" {
		t.Errorf("opened did not carry cycle parameters: %+v", res.Opened)
	}
	assertBuckets(t, h.item(t, a.ID), 3, 0, 0, 0)

	open, err := h.tracking.List(h.ctx, core.TrackingFilter{OpenOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 1 || open[0].ID != res.Opened.ID {
		t.Errorf("open records = %+v, want only %s", open, res.Opened.ID)
	}
	all, _ := h.tracking.List(h.ctx, core.TrackingFilter{})
	if len(all) != 2 {
		t.Errorf("all records = %d, want 2", len(all))
	}

	_, err = h.tracking.Replenish(h.ctx, rec.ID, time.Time{})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("second Replenish error = %v, want ValidationError", err)
	}
	assertBuckets(t, h.item(t, a.ID), 3, 0, 0, 0)
}

func TestReplenish_ZeroDateIsComputed(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "LAMP", Category: "product", UsefulLifeMonths: 6})
	rec, err := h.tracking.Track(h.ctx, core.TrackInput{ProjectID: "p1", ItemID: a.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	res, err := h.tracking.Replenish(h.ctx, rec.ID, time.Time{})
	if err != nil {
		t.Fatalf("Replenish: %v", err)
	}
	if want := res.Opened.CompletedAt.AddDate(0, 6, 0); !res.Opened.ReplaceBy.Equal(want) {
		t.Errorf("replace by = %s, want %s", res.Opened.ReplaceBy, want)
	}
}

func TestReplenish_Errors(t *testing.T) {
	h := newHarness(t)

	if _, err := h.tracking.Replenish(h.ctx, "ghost", time.Time{}); core.ErrorCode(err) != "NOT_FOUND" {
		t.Errorf("unknown record error = %v, want NOT_FOUND", err)
	}

	// A record whose item later lost its useful life cannot be replenished.
	a := h.createItem(t, core.ItemInput{SKU: "A", Category: "product", UsefulLifeMonths: 3})
	rec, err := h.tracking.Track(h.ctx, core.TrackInput{ProjectID: "p1", ItemID: a.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	err = h.store.InTx(h.ctx, func(tx core.Tx) error {
		item, err := tx.GetItem(h.ctx, a.ID)
		if err != nil {
			return err
		}
		item.UsefulLifeMonths = 0
		item.ID = "a-reconfigured"
		item.SKU = "A2"
		if err := tx.CreateItem(h.ctx, *item); err != nil {
			return err
		}
		rec.ItemID = item.ID
		return tx.PutTrackingRecord(h.ctx, *rec)
	})
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}

	_, err = h.tracking.Replenish(h.ctx, rec.ID, time.Time{})
	var cfgErr *core.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Replenish error = %v, want ConfigurationError", err)
	}
	if got, _ := h.tracking.List(h.ctx, core.TrackingFilter{OpenOnly: true}); len(got) != 1 {
		t.Errorf("open records = %d, want 1", len(got))
	}
}

func TestTrackingList_Filters(t *testing.T) {
	h := newHarness(t)
	a := h.createItem(t, core.ItemInput{SKU: "A", Category: "product", UsefulLifeMonths: 1})
	b := h.createItem(t, core.ItemInput{SKU: "B", Category: "product", UsefulLifeMonths: 120})

	past := time.Now().UTC().AddDate(0, -3, 0)
	if _, err := h.tracking.Track(h.ctx, core.TrackInput{ProjectID: "p1", ItemID: a.ID, Quantity: 1, CompletedAt: past}); err != nil {
		t.Fatalf("Track A: %v", err)
	}
	if _, err := h.tracking.Track(h.ctx, core.TrackInput{ProjectID: "p2", ItemID: b.ID, Quantity: 1}); err != nil {
		t.Fatalf("Track B: %v", err)
	}

	overdue, err := h.tracking.List(h.ctx, core.TrackingFilter{Status: core.TrackingOverdue})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ItemID != a.ID || overdue[0].DaysUntilDue >= 0 {
		t.Errorf("overdue = %+v", overdue)
	}

	byProject, _ := h.tracking.List(h.ctx, core.TrackingFilter{ProjectID: "p2"})
	if len(byProject) != 1 || byProject[0].Status != core.TrackingOK {
		t.Errorf("p2 records = %+v", byProject)
	}
}
