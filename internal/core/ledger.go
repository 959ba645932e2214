package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Delta is a signed quantity change to one bucket of one item.
type Delta struct {
	ItemID string `json:"item_id"`
	Bucket Bucket `json:"bucket"`
	Qty    int    `json:"qty"`
}

// Batch is an all-or-nothing set of bucket deltas plus the record writes that must land with
// them. Writes are applied first, then deltas.
type Batch struct {
	Deltas []Delta
	Writes []Write
}

// Credit adds qty to bucket of itemID.
func (b *Batch) Credit(itemID string, bucket Bucket, qty int) {
	b.Deltas = append(b.Deltas, Delta{ItemID: itemID, Bucket: bucket, Qty: qty})
}

// Move shifts qty of itemID from one bucket to another. The pair nets to zero on-hand change.
func (b *Batch) Move(itemID string, from, to Bucket, qty int) {
	b.Deltas = append(b.Deltas,
		Delta{ItemID: itemID, Bucket: from, Qty: -qty},
		Delta{ItemID: itemID, Bucket: to, Qty: qty},
	)
}

// Add appends record writes to the batch.
func (b *Batch) Add(w ...Write) {
	b.Writes = append(b.Writes, w...)
}

func (b *Batch) empty() bool {
	return len(b.Deltas) == 0 && len(b.Writes) == 0
}

// Write is a record operation carried inside a ledger batch.
type Write interface {
	apply(ctx context.Context, tx Tx, at time.Time) error
}

type createItem struct{ item Item }

func (w createItem) apply(ctx context.Context, tx Tx, _ time.Time) error {
	return tx.CreateItem(ctx, w.item)
}

// PutProject replaces the project document.
type PutProject struct{ Project Project }

func (w PutProject) apply(ctx context.Context, tx Tx, _ time.Time) error {
	return tx.PutProject(ctx, w.Project)
}

// PutTracking inserts or replaces a tracking record.
type PutTracking struct{ Record TrackingRecord }

func (w PutTracking) apply(ctx context.Context, tx Tx, _ time.Time) error {
	return tx.PutTrackingRecord(ctx, w.Record)
}

// PutPurchase inserts or replaces the purchase document.
type PutPurchase struct{ Purchase *Purchase }

func (w PutPurchase) apply(ctx context.Context, tx Tx, _ time.Time) error {
	return tx.PutPurchase(ctx, *w.Purchase)
}

// MintUnits reserves Count counter values for ItemID and inserts one unit per value.
// Units holds the minted units once the batch has been applied.
type MintUnits struct {
	ItemID     string
	SKU        string
	PurchaseID string
	LocationID string
	Count      int

	Units []Unit
}

func (w *MintUnits) apply(ctx context.Context, tx Tx, at time.Time) error {
	if w.Count <= 0 {
		return nil
	}
	start, err := tx.AllocateUnitCounter(ctx, w.ItemID, w.Count, at)
	if err != nil {
		return fmt.Errorf("allocate %d unit numbers for item %s: %w", w.Count, w.ItemID, err)
	}
	units := make([]Unit, w.Count)
	for i := range units {
		units[i] = Unit{
			ID:         uuid.NewString(),
			ItemID:     w.ItemID,
			SKU:        w.SKU,
			UnitCode:   FormatUnitCode(w.SKU, start+i),
			LocationID: w.LocationID,
			PurchaseID: w.PurchaseID,
			CreatedAt:  at,
			UpdatedAt:  at,
		}
	}
	if err := tx.InsertUnits(ctx, units); err != nil {
		return fmt.Errorf("insert units for item %s: %w", w.ItemID, err)
	}
	w.Units = units
	return nil
}

// Ledger is the only mutation path for item buckets.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger constructs a Ledger over store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Commit applies every write and delta in b, or none of them.
func (l *Ledger) Commit(ctx context.Context, b Batch) error {
	return l.Run(ctx, func(context.Context, Reader) (Batch, error) { return b, nil })
}

// Run opens a transaction, lets build read current state and assemble a batch, then applies
// that batch in the same transaction. An error from build aborts without writing anything.
//
// Taxonomy errors (validation, not found, configuration) are returned unchanged; any other
// failure is reported as *LedgerCommitError.
func (l *Ledger) Run(ctx context.Context, build func(ctx context.Context, r Reader) (Batch, error)) error {
	err := l.store.InTx(ctx, func(tx Tx) error {
		b, err := build(ctx, tx)
		if err != nil {
			return err
		}
		if b.empty() {
			return nil
		}
		at := l.now()
		for _, w := range b.Writes {
			if err := w.apply(ctx, tx, at); err != nil {
				return err
			}
		}
		return applyDeltas(ctx, tx, b.Deltas, at)
	})
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &LedgerCommitError{Err: err}
}

// applyDeltas groups deltas per item and applies them in item-id order, so concurrent batches
// touching the same items lock rows in the same sequence.
func applyDeltas(ctx context.Context, tx Tx, deltas []Delta, at time.Time) error {
	grouped := make(map[string]map[Bucket]int)
	for _, d := range deltas {
		if d.ItemID == "" {
			return &ValidationError{Field: "item_id", Message: "ledger delta without item"}
		}
		if !d.Bucket.Valid() {
			return &ValidationError{Field: "bucket", Message: fmt.Sprintf("unknown bucket %q", d.Bucket)}
		}
		if grouped[d.ItemID] == nil {
			grouped[d.ItemID] = make(map[Bucket]int)
		}
		grouped[d.ItemID][d.Bucket] += d.Qty
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := tx.AdjustBuckets(ctx, id, grouped[id], at); err != nil {
			return fmt.Errorf("adjust buckets for item %s: %w", id, err)
		}
	}
	return nil
}
