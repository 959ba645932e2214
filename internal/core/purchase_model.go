package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus is the vendor-order state. Only stock_received credits inventory.
type PurchaseStatus string

const (
	PurchaseDraft         PurchaseStatus = "draft"
	PurchasePaid          PurchaseStatus = "paid"
	PurchaseStockReceived PurchaseStatus = "stock_received"
)

// Valid reports whether s is a known purchase status.
func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchaseDraft, PurchasePaid, PurchaseStockReceived:
		return true
	}
	return false
}

// Purchase is a vendor order header with its apportioned lines.
type Purchase struct {
	ID                   string           `json:"id"`
	VendorName           string           `json:"vendor_name"`
	SupplierContact      string           `json:"supplier_contact,omitempty"`
	SupplierAddress      string           `json:"supplier_address,omitempty"`
	ShipTo               string           `json:"ship_to,omitempty"`
	DeliveryFee          *decimal.Decimal `json:"delivery_fee,omitempty"`
	Reference            string           `json:"reference,omitempty"`
	PurchaseDate         time.Time        `json:"purchase_date"`
	ProposedDeliveryDate *time.Time       `json:"proposed_delivery_date,omitempty"`
	Lines                []PurchaseLine   `json:"line_items"`
	Status               PurchaseStatus   `json:"status"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	StockAppliedAt       *time.Time       `json:"stock_applied_at,omitempty"`
}

// PurchaseLine is one line of a purchase. LineTotal, AdjustedUnitPrice and AdjustedLineTotal
// stay nil when the line carries no unit price; DeliveryShare is always set.
type PurchaseLine struct {
	ItemID            string           `json:"item_id"`
	SKU               string           `json:"sku"`
	Name              string           `json:"name"`
	Quantity          int              `json:"quantity"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal         *decimal.Decimal `json:"line_total,omitempty"`
	DeliveryShare     *decimal.Decimal `json:"delivery_share,omitempty"`
	AdjustedUnitPrice *decimal.Decimal `json:"adjusted_unit_price,omitempty"`
	AdjustedLineTotal *decimal.Decimal `json:"adjusted_line_total,omitempty"`
}

// QuantityByItem sums line quantities per item, in first-appearance order.
func (p *Purchase) QuantityByItem() (order []string, qty map[string]int) {
	qty = make(map[string]int)
	for _, l := range p.Lines {
		if _, seen := qty[l.ItemID]; !seen {
			order = append(order, l.ItemID)
		}
		qty[l.ItemID] += l.Quantity
	}
	return order, qty
}

// PurchaseInput holds the fields required to record a purchase.
type PurchaseInput struct {
	VendorName           string
	SupplierContact      string
	SupplierAddress      string
	ShipTo               string
	DeliveryFee          *decimal.Decimal
	Reference            string
	PurchaseDate         time.Time
	ProposedDeliveryDate *time.Time
	Status               PurchaseStatus
	Lines                []PurchaseLineInput
}

// PurchaseLineInput is a single line within a PurchaseInput.
type PurchaseLineInput struct {
	ItemID    string
	Quantity  int
	UnitPrice *decimal.Decimal
}

// Receipt is the result of receiving a purchase: the persisted header plus its minted units.
type Receipt struct {
	Purchase Purchase `json:"purchase"`
	Units    []Unit   `json:"units"`
}

// ReceiptService converts approved purchases into numbered units and, when the goods are
// in hand, credits inventory.
type ReceiptService interface {
	// Receive validates and records a purchase, mints one unit per purchased quantity and,
	// for stock_received purchases, credits inventory in the same commit. Lines with no item
	// or a zero quantity are not stored: the returned purchase carries only the lines that
	// were received, so its line_items may be shorter than the input.
	Receive(ctx context.Context, input PurchaseInput) (*Receipt, error)

	// ApplyStock credits inventory for a purchase recorded before its goods arrived and marks
	// it stock_received. Calling it again for the same purchase is a no-op.
	ApplyStock(ctx context.Context, purchaseID string) (*Purchase, error)

	GetPurchase(ctx context.Context, purchaseID string) (*Purchase, error)
}
