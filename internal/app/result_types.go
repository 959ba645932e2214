package app

import "stockledger/internal/core"

// StockResult is returned by ListItems.
type StockResult struct {
	Items     []core.Item       `json:"items"`
	Levels    []core.StockLevel `json:"levels"`
	Threshold int               `json:"low_stock_threshold"`
}

// UnitListResult is returned by ListUnits.
type UnitListResult struct {
	ItemID string      `json:"item_id"`
	Units  []core.Unit `json:"units"`
}

// ProjectListResult is returned by ListProjects.
type ProjectListResult struct {
	Projects []core.Project `json:"projects"`
}

// TrackingListResult is returned by ListTracking.
type TrackingListResult struct {
	Records []core.TrackingView `json:"records"`
}
