package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type itemService struct {
	store  Store
	ledger *Ledger
}

func NewItemService(store Store, ledger *Ledger) ItemService {
	return &itemService{store: store, ledger: ledger}
}

func (s *itemService) CreateItem(ctx context.Context, input ItemInput) (*Item, error) {
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	name := strings.TrimSpace(input.Name)
	if sku == "" {
		return nil, &ValidationError{Field: "sku", Message: "sku is required"}
	}
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	if input.OpeningInventory < 0 {
		return nil, &ValidationError{Field: "opening_inventory", Message: "opening inventory cannot be negative"}
	}
	if input.UsefulLifeMonths < 0 {
		return nil, &ValidationError{Field: "useful_life_months", Message: "useful life cannot be negative"}
	}
	if input.AnnualReplacementFrequency < 0 {
		return nil, &ValidationError{Field: "annual_replacement_frequency", Message: "replacement frequency cannot be negative"}
	}

	now := time.Now().UTC()
	item := Item{
		ID:                         uuid.NewString(),
		SKU:                        sku,
		Name:                       name,
		Category:                   NormalizeCategory(input.Category),
		SalesPrice:                 input.SalesPrice,
		StandardCost:               input.StandardCost,
		Location:                   strings.TrimSpace(input.Location),
		NextUnitCounter:            1,
		UsefulLifeMonths:           input.UsefulLifeMonths,
		AnnualReplacementFrequency: input.AnnualReplacementFrequency,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	// The item row and its opening stock land in one batch.
	err := s.ledger.Run(ctx, func(ctx context.Context, r Reader) (Batch, error) {
		existing, err := r.ListItems(ctx)
		if err != nil {
			return Batch{}, err
		}
		for _, e := range existing {
			if e.SKU == sku {
				return Batch{}, &ValidationError{Field: "sku", Message: fmt.Sprintf("sku %s already exists", sku)}
			}
		}
		var b Batch
		b.Add(createItem{item})
		if input.OpeningInventory > 0 {
			b.Credit(item.ID, BucketInventory, input.OpeningInventory)
		}
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create item %s: %w", sku, err)
	}
	return s.store.GetItem(ctx, item.ID)
}

func (s *itemService) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *itemService) ListItems(ctx context.Context) ([]Item, error) {
	return s.store.ListItems(ctx)
}

func (s *itemService) ListUnits(ctx context.Context, itemID string) ([]Unit, error) {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.ListUnits(ctx, itemID)
}

func (s *itemService) GetStockLevels(ctx context.Context, lowStockThreshold int) ([]StockLevel, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	levels := make([]StockLevel, 0, len(items))
	for i := range items {
		it := &items[i]
		levels = append(levels, StockLevel{
			ItemID:      it.ID,
			SKU:         it.SKU,
			Name:        it.Name,
			Category:    it.Category,
			Location:    it.Location,
			Inventory:   it.InventoryQty,
			Reserved:    it.ReservedQty,
			WIP:         it.WIPQty,
			Completed:   it.CompletedQty,
			TotalOnHand: it.TotalOnHand(),
			Valuation:   it.Valuation(),
			LowStock:    it.LowStock(lowStockThreshold),
		})
	}
	return levels, nil
}
