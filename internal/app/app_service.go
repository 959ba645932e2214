package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core"
	"stockledger/internal/metrics"

	"github.com/shopspring/decimal"
)

type appService struct {
	items             core.ItemService
	receipts          core.ReceiptService
	projects          core.ProjectService
	tracking          core.TrackingService
	metrics           *metrics.Collector
	lowStockThreshold int
}

// Options carries the tunables of the application layer.
type Options struct {
	TrackingWarningDays int
	LowStockThreshold   int
	Metrics             *metrics.Collector // nil disables instrumentation
}

// NewAppService wires the domain services over store and returns the ApplicationService facade.
func NewAppService(store core.Store, opts Options) ApplicationService {
	ledger := core.NewLedger(store)
	tracking := core.NewTrackingService(store, ledger, opts.TrackingWarningDays)
	return &appService{
		items:             core.NewItemService(store, ledger),
		receipts:          core.NewReceiptService(store, ledger),
		projects:          core.NewProjectService(store, ledger, tracking),
		tracking:          tracking,
		metrics:           opts.Metrics,
		lowStockThreshold: opts.LowStockThreshold,
	}
}

// ── Items ─────────────────────────────────────────────────────────────────────

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (item *core.Item, err error) {
	defer s.observe("create_item", time.Now(), &err)

	salesPrice, err := parseMoney("sales_price", req.SalesPrice)
	if err != nil {
		return nil, err
	}
	standardCost, err := parseMoney("standard_cost", req.StandardCost)
	if err != nil {
		return nil, err
	}
	item, err = s.items.CreateItem(ctx, core.ItemInput{
		SKU:                        req.SKU,
		Name:                       req.Name,
		Category:                   req.Category,
		SalesPrice:                 salesPrice,
		StandardCost:               standardCost,
		Location:                   req.Location,
		OpeningInventory:           req.OpeningInventory,
		UsefulLifeMonths:           req.UsefulLifeMonths,
		AnnualReplacementFrequency: req.AnnualReplacementFrequency,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Credited(core.BucketInventory, req.OpeningInventory)
	return item, nil
}

func (s *appService) GetItem(ctx context.Context, itemID string) (*core.Item, error) {
	return s.items.GetItem(ctx, itemID)
}

func (s *appService) ListItems(ctx context.Context) (*StockResult, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := s.items.GetStockLevels(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, err
	}
	return &StockResult{Items: items, Levels: levels, Threshold: s.lowStockThreshold}, nil
}

func (s *appService) ListUnits(ctx context.Context, itemID string) (*UnitListResult, error) {
	units, err := s.items.ListUnits(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &UnitListResult{ItemID: itemID, Units: units}, nil
}

// ── Purchases ─────────────────────────────────────────────────────────────────

func (s *appService) ReceivePurchase(ctx context.Context, req ReceivePurchaseRequest) (receipt *core.Receipt, err error) {
	defer s.observe("receive_purchase", time.Now(), &err)

	input := core.PurchaseInput{
		VendorName:      req.VendorName,
		SupplierContact: req.SupplierContact,
		SupplierAddress: req.SupplierAddress,
		ShipTo:          req.ShipTo,
		Reference:       req.Reference,
		Status:          core.PurchaseStatus(req.Status),
	}
	if input.DeliveryFee, err = parseMoney("delivery_fee", req.DeliveryFee); err != nil {
		return nil, err
	}
	if req.PurchaseDate != "" {
		if input.PurchaseDate, err = parseDate("purchase_date", req.PurchaseDate); err != nil {
			return nil, err
		}
	}
	if req.ProposedDeliveryDate != "" {
		d, err := parseDate("proposed_delivery_date", req.ProposedDeliveryDate)
		if err != nil {
			return nil, err
		}
		input.ProposedDeliveryDate = &d
	}
	for i, l := range req.Lines {
		price, err := parseMoney(fmt.Sprintf("line_items[%d].unit_price", i), l.UnitPrice)
		if err != nil {
			return nil, err
		}
		input.Lines = append(input.Lines, core.PurchaseLineInput{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: price})
	}

	receipt, err = s.receipts.Receive(ctx, input)
	if err != nil {
		return nil, err
	}
	s.metrics.UnitsMinted(len(receipt.Units))
	if receipt.Purchase.StockAppliedAt != nil {
		for _, l := range receipt.Purchase.Lines {
			s.metrics.Credited(core.BucketInventory, l.Quantity)
		}
	}
	return receipt, nil
}

func (s *appService) GetPurchase(ctx context.Context, purchaseID string) (*core.Purchase, error) {
	return s.receipts.GetPurchase(ctx, purchaseID)
}

func (s *appService) ApplyPurchaseStock(ctx context.Context, purchaseID string) (p *core.Purchase, err error) {
	defer s.observe("apply_purchase_stock", time.Now(), &err)
	return s.receipts.ApplyStock(ctx, purchaseID)
}

// ── Projects ──────────────────────────────────────────────────────────────────

func (s *appService) CreateProject(ctx context.Context, req CreateProjectRequest) (p *core.Project, err error) {
	defer s.observe("create_project", time.Now(), &err)

	input := core.ProjectInput{Name: req.Name}
	for _, l := range req.Items {
		input.Items = append(input.Items, core.ProjectLine{
			ItemID:         strings.TrimSpace(l.ItemID),
			Qty:            l.Qty,
			MustHaveItemID: strings.TrimSpace(l.MustHaveItemID),
			MustHaveQty:    l.MustHaveQty,
		})
	}
	return s.projects.CreateProject(ctx, input)
}

func (s *appService) GetProject(ctx context.Context, projectID string) (*core.Project, error) {
	return s.projects.GetProject(ctx, projectID)
}

func (s *appService) ListProjects(ctx context.Context) (*ProjectListResult, error) {
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return &ProjectListResult{Projects: projects}, nil
}

func (s *appService) SetProjectStatus(ctx context.Context, projectID, status string) (res *core.TransitionResult, err error) {
	defer s.observe("set_project_status", time.Now(), &err)

	target := core.ProjectStatus(strings.ToLower(strings.TrimSpace(status)))
	return s.projects.SetStatus(ctx, projectID, target)
}

// ── Tracking ──────────────────────────────────────────────────────────────────

func (s *appService) ListTracking(ctx context.Context, q TrackingQuery) (*TrackingListResult, error) {
	status := core.TrackingStatus(strings.ToLower(strings.TrimSpace(q.Status)))
	switch status {
	case "", core.TrackingOK, core.TrackingWarning, core.TrackingOverdue, core.TrackingReplenished:
	default:
		return nil, &core.ValidationError{Field: "status", Message: fmt.Sprintf("unknown tracking status %q", q.Status)}
	}
	records, err := s.tracking.List(ctx, core.TrackingFilter{
		ProjectID:   q.ProjectID,
		ItemID:      q.ItemID,
		OpenOnly:    q.OpenOnly,
		Status:      status,
		WarningDays: q.WarningDays,
	})
	if err != nil {
		return nil, err
	}
	return &TrackingListResult{Records: records}, nil
}

func (s *appService) ReplenishTracking(ctx context.Context, req ReplenishRequest) (res *core.ReplenishResult, err error) {
	defer s.observe("replenish_tracking", time.Now(), &err)

	var next time.Time
	if req.NextReplaceDate != "" {
		if next, err = parseDate("next_replace_date", req.NextReplaceDate); err != nil {
			return nil, err
		}
	}
	res, err = s.tracking.Replenish(ctx, req.RecordID, next)
	if err != nil {
		return nil, err
	}
	s.metrics.Credited(core.BucketInventory, res.Closed.Quantity)
	return res, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *appService) observe(op string, start time.Time, err *error) {
	s.metrics.Observe(op, start, *err)
}

func parseMoney(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &core.ValidationError{Field: field, Message: fmt.Sprintf("invalid amount %q", raw)}
	}
	return &d, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: field, Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw)}
	}
	return t, nil
}
