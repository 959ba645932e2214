package app

// CreateItemRequest is the input for registering a new item.
// Money fields are decimal strings; empty means "not set".
type CreateItemRequest struct {
	SKU                        string  `json:"sku"`
	Name                       string  `json:"name"`
	Category                   string  `json:"category"`
	SalesPrice                 string  `json:"sales_price"`
	StandardCost               string  `json:"standard_cost"`
	Location                   string  `json:"location"`
	OpeningInventory           int     `json:"opening_inventory"`
	UsefulLifeMonths           int     `json:"useful_life_months"`
	AnnualReplacementFrequency float64 `json:"annual_replacement_frequency"`
}

// ReceivePurchaseRequest is the input for recording a purchase.
type ReceivePurchaseRequest struct {
	VendorName           string                `json:"vendor_name"`
	SupplierContact      string                `json:"supplier_contact"`
	SupplierAddress      string                `json:"supplier_address"`
	ShipTo               string                `json:"ship_to"`
	DeliveryFee          string                `json:"delivery_fee"`
	Reference            string                `json:"reference"`
	PurchaseDate         string                `json:"purchase_date"`          // YYYY-MM-DD, defaults to today
	ProposedDeliveryDate string                `json:"proposed_delivery_date"` // YYYY-MM-DD, optional
	Status               string                `json:"status"`                 // draft | paid | stock_received
	Lines                []PurchaseLineRequest `json:"line_items"`
}

// PurchaseLineRequest is a single line within a ReceivePurchaseRequest.
type PurchaseLineRequest struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// CreateProjectRequest is the input for creating a wip project.
type CreateProjectRequest struct {
	Name  string               `json:"name"`
	Items []ProjectLineRequest `json:"items"`
}

// ProjectLineRequest is one main item plus its optional must-have companion.
type ProjectLineRequest struct {
	ItemID         string `json:"item_id"`
	Qty            int    `json:"qty"`
	MustHaveItemID string `json:"must_have_item_id"`
	MustHaveQty    int    `json:"must_have_qty"`
}

// TrackingQuery filters ListTracking. Zero values match everything.
type TrackingQuery struct {
	ProjectID   string
	ItemID      string
	Status      string
	OpenOnly    bool
	WarningDays int
}

// ReplenishRequest identifies the tracking cycle to close.
type ReplenishRequest struct {
	RecordID        string `json:"-"`
	NextReplaceDate string `json:"next_replace_date"` // YYYY-MM-DD; empty computes it from the item policy
}
