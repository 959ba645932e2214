package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bucket names one of the four stock states an item's quantity is partitioned across.
type Bucket string

const (
	BucketInventory Bucket = "inventory"
	BucketReserved  Bucket = "reserved"
	BucketWIP       Bucket = "wip"
	BucketCompleted Bucket = "completed"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketInventory, BucketReserved, BucketWIP, BucketCompleted}

// Valid reports whether b is one of the four known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketInventory, BucketReserved, BucketWIP, BucketCompleted:
		return true
	}
	return false
}

// Category is the closed set of item classes that drive lifecycle tracking.
type Category string

const (
	CategoryComponent   Category = "component"
	CategoryProduct     Category = "product"
	CategorySensor      Category = "sensor"
	CategorySensorExtra Category = "sensor_extra"
)

// NormalizeCategory resolves a free-text category label to a Category.
// Unrecognised or empty text falls back to CategoryComponent.
func NormalizeCategory(raw string) Category {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	switch s {
	case "product", "products":
		return CategoryProduct
	case "sensor", "sensors":
		return CategorySensor
	case "sensor extra", "sensor extras", "sensorextra", "extra sensor":
		return CategorySensorExtra
	}
	return CategoryComponent
}

// Item is the stock-keeping record: master data plus the four quantity buckets.
// Buckets are only ever changed through Ledger batches.
type Item struct {
	ID                         string           `json:"id"`
	SKU                        string           `json:"sku"`
	Name                       string           `json:"name"`
	Category                   Category         `json:"category"`
	SalesPrice                 *decimal.Decimal `json:"sales_price,omitempty"`
	StandardCost               *decimal.Decimal `json:"standard_cost,omitempty"`
	Location                   string           `json:"location,omitempty"`
	InventoryQty               int              `json:"inventory_qty"`
	ReservedQty                int              `json:"reserved_qty"`
	WIPQty                     int              `json:"wip_qty"`
	CompletedQty               int              `json:"completed_qty"`
	NextUnitCounter            int              `json:"next_unit_counter"`
	UsefulLifeMonths           int              `json:"useful_life_months,omitempty"`
	AnnualReplacementFrequency float64          `json:"annual_replacement_frequency,omitempty"`
	CreatedAt                  time.Time        `json:"created_at"`
	UpdatedAt                  time.Time        `json:"updated_at"`
}

// Quantity returns the current quantity held in bucket b.
func (i *Item) Quantity(b Bucket) int {
	switch b {
	case BucketInventory:
		return i.InventoryQty
	case BucketReserved:
		return i.ReservedQty
	case BucketWIP:
		return i.WIPQty
	case BucketCompleted:
		return i.CompletedQty
	}
	return 0
}

// Adjust adds delta to bucket b. Store implementations call it while applying a ledger batch.
func (i *Item) Adjust(b Bucket, delta int) error {
	switch b {
	case BucketInventory:
		i.InventoryQty += delta
	case BucketReserved:
		i.ReservedQty += delta
	case BucketWIP:
		i.WIPQty += delta
	case BucketCompleted:
		i.CompletedQty += delta
	default:
		return &ValidationError{Field: "bucket", Message: fmt.Sprintf("unknown bucket %q", b)}
	}
	return nil
}

// TotalOnHand is the sum of all four buckets. Valuation and low-stock checks use this value.
func (i *Item) TotalOnHand() int {
	return i.InventoryQty + i.ReservedQty + i.WIPQty + i.CompletedQty
}

// Valuation returns TotalOnHand x StandardCost, or zero when no standard cost is set.
func (i *Item) Valuation() decimal.Decimal {
	if i.StandardCost == nil {
		return decimal.Zero
	}
	return i.StandardCost.Mul(decimal.NewFromInt(int64(i.TotalOnHand())))
}

// LowStock reports whether total on-hand stock is at or below threshold.
func (i *Item) LowStock(threshold int) bool {
	return i.TotalOnHand() <= threshold
}

// TrackingPolicy returns the lifecycle policy the item qualifies for.
// ok is false when the item has no usable life parameter and must not be tracked.
func (i *Item) TrackingPolicy() (policy TrackingType, ok bool) {
	if i.Category == CategorySensorExtra {
		return TrackingReplacementFrequency, i.AnnualReplacementFrequency > 0
	}
	return TrackingUsefulLife, i.UsefulLifeMonths > 0
}

// Unit is one individually numbered physical instance of an item.
type Unit struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	SKU        string    `json:"sku"`
	UnitCode   string    `json:"unit_code"`
	LocationID string    `json:"location_id,omitempty"`
	PurchaseID string    `json:"purchase_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FormatUnitCode renders the unit code for the given SKU and counter value, e.g. "ABC-0007".
func FormatUnitCode(sku string, counter int) string {
	return fmt.Sprintf("%s-%04d", sku, counter)
}

// StockLevel is a read view of one item's buckets and derived totals.
type StockLevel struct {
	ItemID      string          `json:"item_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Location    string          `json:"location,omitempty"`
	Inventory   int             `json:"inventory"`
	Reserved    int             `json:"reserved"`
	WIP         int             `json:"wip"`
	Completed   int             `json:"completed"`
	TotalOnHand int             `json:"total_on_hand"`
	Valuation   decimal.Decimal `json:"valuation"`
	LowStock    bool            `json:"low_stock"`
}

// ItemInput holds the fields required to create an item.
type ItemInput struct {
	SKU                        string
	Name                       string
	Category                   string // free text, normalised on creation
	SalesPrice                 *decimal.Decimal
	StandardCost               *decimal.Decimal
	Location                   string
	OpeningInventory           int
	UsefulLifeMonths           int
	AnnualReplacementFrequency float64
}

// ItemService provides item master data and stock views.
type ItemService interface {
	// CreateItem registers a new item with all buckets at zero except the opening inventory.
	CreateItem(ctx context.Context, input ItemInput) (*Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	// ListUnits returns every unit minted for the item, in minting order.
	ListUnits(ctx context.Context, itemID string) ([]Unit, error)
	// GetStockLevels returns per-item bucket views; LowStock uses total on-hand against threshold.
	GetStockLevels(ctx context.Context, lowStockThreshold int) ([]StockLevel, error)
}
