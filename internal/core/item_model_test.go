package core_test

import (
	"testing"

	"stockledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want core.Category
	}{
		{"Product", core.CategoryProduct},
		{"products", core.CategoryProduct},
		{" SENSOR ", core.CategorySensor},
		{"sensors", core.CategorySensor},
		{"sensor_extra", core.CategorySensorExtra},
		{"Sensor-Extra", core.CategorySensorExtra},
		{"sensor   extras", core.CategorySensorExtra},
		{"extra sensor", core.CategorySensorExtra},
		{"component", core.CategoryComponent},
		{"", core.CategoryComponent},
		{"widget", core.CategoryComponent},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := core.NormalizeCategory(tt.raw); got != tt.want {
				t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestItemAdjustAndTotals(t *testing.T) {
	cost := decimal.RequireFromString("2.50")
	item := core.Item{StandardCost: &cost}

	for _, step := range []struct {
		bucket core.Bucket
		delta  int
	}{
		{core.BucketInventory, 10},
		{core.BucketReserved, 2},
		{core.BucketWIP, 3},
		{core.BucketCompleted, 1},
		{core.BucketInventory, -4},
	} {
		if err := item.Adjust(step.bucket, step.delta); err != nil {
			t.Fatalf("Adjust(%s, %d): %v", step.bucket, step.delta, err)
		}
	}

	if item.Quantity(core.BucketInventory) != 6 {
		t.Errorf("inventory = %d, want 6", item.InventoryQty)
	}
	if item.TotalOnHand() != 12 {
		t.Errorf("TotalOnHand = %d, want 12", item.TotalOnHand())
	}
	if !item.Valuation().Equal(decimal.NewFromInt(30)) {
		t.Errorf("Valuation = %s, want 30", item.Valuation())
	}
	if !item.LowStock(12) {
		t.Error("expected low stock at threshold 12")
	}
	if item.LowStock(11) {
		t.Error("expected no low stock at threshold 11")
	}

	if err := item.Adjust(core.Bucket("shelf"), 1); err == nil {
		t.Error("expected error for unknown bucket")
	}
}

func TestItemValuationWithoutCost(t *testing.T) {
	item := core.Item{InventoryQty: 5}
	if !item.Valuation().IsZero() {
		t.Errorf("Valuation = %s, want 0", item.Valuation())
	}
}

func TestItemTrackingPolicy(t *testing.T) {
	tests := []struct {
		name   string
		item   core.Item
		policy core.TrackingType
		ok     bool
	}{
		{"product with life", core.Item{Category: core.CategoryProduct, UsefulLifeMonths: 24}, core.TrackingUsefulLife, true},
		{"sensor without life", core.Item{Category: core.CategorySensor}, core.TrackingUsefulLife, false},
		{"extra with frequency", core.Item{Category: core.CategorySensorExtra, AnnualReplacementFrequency: 4}, core.TrackingReplacementFrequency, true},
		{"extra with only life", core.Item{Category: core.CategorySensorExtra, UsefulLifeMonths: 6}, core.TrackingReplacementFrequency, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, ok := tt.item.TrackingPolicy()
			if policy != tt.policy || ok != tt.ok {
				t.Errorf("TrackingPolicy() = (%s, %v), want (%s, %v)", policy, ok, tt.policy, tt.ok)
			}
		})
	}
}

func TestFormatUnitCode(t *testing.T) {
	tests := []struct {
		sku     string
		counter int
		want    string
	}{
		{"ABC", 1, "ABC-0001"},
		{"ABC", 42, "ABC-0042"},
		{"SNS-9", 9999, "SNS-9-9999"},
		{"SNS", 12345, "SNS-12345"},
	}
	for _, tt := range tests {
		if got := core.FormatUnitCode(tt.sku, tt.counter); got != tt.want {
			t.Errorf("FormatUnitCode(%q, %d) = %q, want %q", tt.sku, tt.counter, got, tt.want)
		}
	}
}
