package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type receiptService struct {
	store  Store
	ledger *Ledger
}

func NewReceiptService(store Store, ledger *Ledger) ReceiptService {
	return &receiptService{store: store, ledger: ledger}
}

// Receive records the purchase and mints its units in a single ledger batch. Unit counters are
// allocated inside that batch, so a failed receipt never consumes counter values.
func (s *receiptService) Receive(ctx context.Context, input PurchaseInput) (*Receipt, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	purchase := &Purchase{
		ID:                   uuid.NewString(),
		VendorName:           input.VendorName,
		SupplierContact:      input.SupplierContact,
		SupplierAddress:      input.SupplierAddress,
		ShipTo:               input.ShipTo,
		DeliveryFee:          input.DeliveryFee,
		Reference:            input.Reference,
		PurchaseDate:         input.PurchaseDate,
		ProposedDeliveryDate: input.ProposedDeliveryDate,
		Lines:                buildLines(input.Lines, input.DeliveryFee),
		Status:               input.Status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if purchase.PurchaseDate.IsZero() {
		purchase.PurchaseDate = now
	}

	var mints []*MintUnits
	err := s.ledger.Run(ctx, func(ctx context.Context, r Reader) (Batch, error) {
		mints = mints[:0]
		items := make(map[string]*Item)
		for i := range purchase.Lines {
			line := &purchase.Lines[i]
			item, ok := items[line.ItemID]
			if !ok {
				var err error
				if item, err = r.GetItem(ctx, line.ItemID); err != nil {
					return Batch{}, err
				}
				items[line.ItemID] = item
			}
			line.SKU = item.SKU
			line.Name = item.Name
		}

		var b Batch
		order, qty := purchase.QuantityByItem()
		for _, itemID := range order {
			item := items[itemID]
			m := &MintUnits{
				ItemID:     itemID,
				SKU:        item.SKU,
				PurchaseID: purchase.ID,
				LocationID: item.Location,
				Count:      qty[itemID],
			}
			mints = append(mints, m)
			b.Add(m)
		}

		if purchase.Status == PurchaseStockReceived {
			applied := now
			purchase.StockAppliedAt = &applied
			for _, itemID := range order {
				b.Credit(itemID, BucketInventory, qty[itemID])
			}
		}
		b.Add(PutPurchase{purchase})
		return b, nil
	})
	if err != nil {
		return nil, &ReceiptProcessingError{PurchaseID: purchase.ID, Err: err}
	}

	receipt := &Receipt{Purchase: *purchase}
	for _, m := range mints {
		receipt.Units = append(receipt.Units, m.Units...)
	}
	return receipt, nil
}

func (s *receiptService) ApplyStock(ctx context.Context, purchaseID string) (*Purchase, error) {
	var result *Purchase
	err := s.ledger.Run(ctx, func(ctx context.Context, r Reader) (Batch, error) {
		p, err := r.GetPurchase(ctx, purchaseID)
		if err != nil {
			return Batch{}, err
		}
		result = p
		if p.StockAppliedAt != nil {
			return Batch{}, nil
		}

		now := time.Now().UTC()
		p.Status = PurchaseStockReceived
		p.StockAppliedAt = &now
		p.UpdatedAt = now

		var b Batch
		order, qty := p.QuantityByItem()
		for _, itemID := range order {
			b.Credit(itemID, BucketInventory, qty[itemID])
		}
		b.Add(PutPurchase{p})
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply stock for purchase %s: %w", purchaseID, err)
	}
	return result, nil
}

func (s *receiptService) GetPurchase(ctx context.Context, purchaseID string) (*Purchase, error) {
	return s.store.GetPurchase(ctx, purchaseID)
}
