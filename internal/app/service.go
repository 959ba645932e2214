package app

import (
	"context"

	"stockledger/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// CreateItem registers a new stock item, optionally with opening inventory.
	CreateItem(ctx context.Context, req CreateItemRequest) (*core.Item, error)

	GetItem(ctx context.Context, itemID string) (*core.Item, error)

	// ListItems returns every item with its bucket quantities and derived totals.
	ListItems(ctx context.Context) (*StockResult, error)

	// ListUnits returns the numbered units minted for an item.
	ListUnits(ctx context.Context, itemID string) (*UnitListResult, error)

	// ReceivePurchase records a purchase, apportions its delivery fee and mints unit codes.
	// Inventory is credited only when the purchase arrives as stock_received.
	ReceivePurchase(ctx context.Context, req ReceivePurchaseRequest) (*core.Receipt, error)

	GetPurchase(ctx context.Context, purchaseID string) (*core.Purchase, error)

	// ApplyPurchaseStock credits inventory for an earlier draft or paid purchase. Idempotent.
	ApplyPurchaseStock(ctx context.Context, purchaseID string) (*core.Purchase, error)

	CreateProject(ctx context.Context, req CreateProjectRequest) (*core.Project, error)
	GetProject(ctx context.Context, projectID string) (*core.Project, error)
	ListProjects(ctx context.Context) (*ProjectListResult, error)

	// SetProjectStatus moves a project between wip and complete together with its stock.
	SetProjectStatus(ctx context.Context, projectID, status string) (*core.TransitionResult, error)

	// ListTracking returns lifecycle tracking records with their derived status.
	ListTracking(ctx context.Context, q TrackingQuery) (*TrackingListResult, error)

	// ReplenishTracking closes a tracking cycle, restocks its quantity and opens the next cycle.
	ReplenishTracking(ctx context.Context, req ReplenishRequest) (*core.ReplenishResult, error)
}
