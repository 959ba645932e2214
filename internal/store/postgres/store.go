// Package postgres implements core.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockledger/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a core.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	queries
}

var _ core.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, queries: queries{q: pool}}
}

// InTx runs fn in a database transaction. Header rows read through the Tx are locked
// FOR UPDATE so concurrent transitions of the same record serialise.
func (s *Store) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{queries: queries{q: tx, lock: true}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

type queries struct {
	q    querier
	lock bool
}

func (qs queries) forUpdate() string {
	if qs.lock {
		return " FOR UPDATE"
	}
	return ""
}

const itemColumns = `id, sku, name, category, sales_price, standard_cost, location,
	inventory_qty, reserved_qty, wip_qty, completed_qty, next_unit_counter,
	useful_life_months, annual_replacement_frequency, created_at, updated_at`

func scanItem(row pgx.Row) (*core.Item, error) {
	var (
		it           core.Item
		salesPrice   *decimal.Decimal
		standardCost *decimal.Decimal
	)
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Category, &salesPrice, &standardCost, &it.Location,
		&it.InventoryQty, &it.ReservedQty, &it.WIPQty, &it.CompletedQty, &it.NextUnitCounter,
		&it.UsefulLifeMonths, &it.AnnualReplacementFrequency, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.SalesPrice = salesPrice
	it.StandardCost = standardCost
	return &it, nil
}

func (qs queries) GetItem(ctx context.Context, id string) (*core.Item, error) {
	it, err := scanItem(qs.q.QueryRow(ctx, "SELECT "+itemColumns+" FROM items WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "item", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch item %s: %w", id, err)
	}
	return it, nil
}

func (qs queries) ListItems(ctx context.Context) ([]core.Item, error) {
	rows, err := qs.q.Query(ctx, "SELECT "+itemColumns+" FROM items ORDER BY sku")
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (qs queries) ListUnits(ctx context.Context, itemID string) ([]core.Unit, error) {
	rows, err := qs.q.Query(ctx, `
		SELECT id, item_id, sku, unit_code, location_id, purchase_id, created_at, updated_at
		FROM item_units
		WHERE item_id = $1
		ORDER BY seq
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []core.Unit
	for rows.Next() {
		var u core.Unit
		if err := rows.Scan(&u.ID, &u.ItemID, &u.SKU, &u.UnitCode, &u.LocationID, &u.PurchaseID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (qs queries) GetPurchase(ctx context.Context, id string) (*core.Purchase, error) {
	var (
		p     core.Purchase
		fee   *decimal.Decimal
		lines []byte
	)
	err := qs.q.QueryRow(ctx, `
		SELECT id, vendor_name, supplier_contact, supplier_address, ship_to, delivery_fee, reference,
		       purchase_date, proposed_delivery_date, line_items, status, stock_applied_at, created_at, updated_at
		FROM purchases WHERE id = $1`+qs.forUpdate(), id,
	).Scan(&p.ID, &p.VendorName, &p.SupplierContact, &p.SupplierAddress, &p.ShipTo, &fee, &p.Reference,
		&p.PurchaseDate, &p.ProposedDeliveryDate, &lines, &p.Status, &p.StockAppliedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "purchase", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch purchase %s: %w", id, err)
	}
	p.DeliveryFee = fee
	if err := json.Unmarshal(lines, &p.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode purchase %s lines: %w", id, err)
	}
	return &p, nil
}

const projectColumns = `id, name, status, items, completed_at, created_at, updated_at`

func scanProject(row pgx.Row) (*core.Project, error) {
	var (
		p     core.Project
		items []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Status, &items, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &p.Items); err != nil {
		return nil, fmt.Errorf("failed to decode project %s items: %w", p.ID, err)
	}
	return &p, nil
}

func (qs queries) GetProject(ctx context.Context, id string) (*core.Project, error) {
	p, err := scanProject(qs.q.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1"+qs.forUpdate(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "project", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch project %s: %w", id, err)
	}
	return p, nil
}

func (qs queries) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := qs.q.Query(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

const trackingColumns = `id, project_id, project_name, item_id, item_name, item_type, quantity,
	useful_life_months, replacement_frequency_per_year, tracking_type,
	completed_at, replace_by, replenished, replenished_at`

func scanTracking(row pgx.Row) (*core.TrackingRecord, error) {
	var r core.TrackingRecord
	err := row.Scan(&r.ID, &r.ProjectID, &r.ProjectName, &r.ItemID, &r.ItemName, &r.ItemType, &r.Quantity,
		&r.UsefulLifeMonths, &r.ReplacementFrequencyPerYear, &r.TrackingType,
		&r.CompletedAt, &r.ReplaceBy, &r.Replenished, &r.ReplenishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (qs queries) GetTrackingRecord(ctx context.Context, id string) (*core.TrackingRecord, error) {
	r, err := scanTracking(qs.q.QueryRow(ctx, "SELECT "+trackingColumns+" FROM product_tracking WHERE id = $1"+qs.forUpdate(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "tracking record", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch tracking record %s: %w", id, err)
	}
	return r, nil
}

func (qs queries) FindOpenTracking(ctx context.Context, projectID, itemID string) (*core.TrackingRecord, error) {
	r, err := scanTracking(qs.q.QueryRow(ctx, "SELECT "+trackingColumns+`
		FROM product_tracking
		WHERE project_id = $1 AND item_id = $2 AND NOT replenished`+qs.forUpdate(), projectID, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up open tracking for %s/%s: %w", projectID, itemID, err)
	}
	return r, nil
}

func (qs queries) ListTracking(ctx context.Context) ([]core.TrackingRecord, error) {
	rows, err := qs.q.Query(ctx, "SELECT "+trackingColumns+" FROM product_tracking ORDER BY completed_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking records: %w", err)
	}
	defer rows.Close()

	var records []core.TrackingRecord
	for rows.Next() {
		r, err := scanTracking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracking record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// ── Writes ────────────────────────────────────────────────────────────────────

type txStore struct {
	queries
}

func (t *txStore) CreateItem(ctx context.Context, it core.Item) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO items (id, sku, name, category, sales_price, standard_cost, location,
		                   inventory_qty, reserved_qty, wip_qty, completed_qty, next_unit_counter,
		                   useful_life_months, annual_replacement_frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, it.ID, it.SKU, it.Name, it.Category, it.SalesPrice, it.StandardCost, it.Location,
		it.InventoryQty, it.ReservedQty, it.WIPQty, it.CompletedQty, it.NextUnitCounter,
		it.UsefulLifeMonths, it.AnnualReplacementFrequency, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &core.ValidationError{Field: "sku", Message: fmt.Sprintf("sku %s already exists", it.SKU)}
		}
		return fmt.Errorf("failed to insert item %s: %w", it.SKU, err)
	}
	return nil
}

// AdjustBuckets increments the bucket columns in place; concurrent batches never lose updates.
func (t *txStore) AdjustBuckets(ctx context.Context, itemID string, deltas map[core.Bucket]int, at time.Time) error {
	var inv, res, wip, done int
	for b, d := range deltas {
		switch b {
		case core.BucketInventory:
			inv += d
		case core.BucketReserved:
			res += d
		case core.BucketWIP:
			wip += d
		case core.BucketCompleted:
			done += d
		default:
			return &core.ValidationError{Field: "bucket", Message: fmt.Sprintf("unknown bucket %q", b)}
		}
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE items
		SET inventory_qty = inventory_qty + $2,
		    reserved_qty  = reserved_qty + $3,
		    wip_qty       = wip_qty + $4,
		    completed_qty = completed_qty + $5,
		    updated_at    = $6
		WHERE id = $1
	`, itemID, inv, res, wip, done, at)
	if err != nil {
		return fmt.Errorf("failed to update buckets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "item", ID: itemID}
	}
	return nil
}

// AllocateUnitCounter advances the counter and returns the first reserved value in one
// statement; the row lock holds until the surrounding transaction ends.
func (t *txStore) AllocateUnitCounter(ctx context.Context, itemID string, n int, at time.Time) (int, error) {
	var start int
	err := t.q.QueryRow(ctx, `
		UPDATE items
		SET next_unit_counter = next_unit_counter + $2, updated_at = $3
		WHERE id = $1
		RETURNING next_unit_counter - $2
	`, itemID, n, at).Scan(&start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &core.NotFoundError{Kind: "item", ID: itemID}
		}
		return 0, fmt.Errorf("failed to allocate unit counter: %w", err)
	}
	return start, nil
}

func (t *txStore) InsertUnits(ctx context.Context, units []core.Unit) error {
	for _, u := range units {
		_, err := t.q.Exec(ctx, `
			INSERT INTO item_units (id, item_id, sku, unit_code, location_id, purchase_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, u.ID, u.ItemID, u.SKU, u.UnitCode, u.LocationID, u.PurchaseID, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert unit %s: %w", u.UnitCode, err)
		}
	}
	return nil
}

func (t *txStore) PutPurchase(ctx context.Context, p core.Purchase) error {
	lines, err := json.Marshal(p.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode purchase lines: %w", err)
	}
	_, err = t.q.Exec(ctx, `
		INSERT INTO purchases (id, vendor_name, supplier_contact, supplier_address, ship_to, delivery_fee,
		                       reference, purchase_date, proposed_delivery_date, line_items, status,
		                       stock_applied_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status           = EXCLUDED.status,
			line_items       = EXCLUDED.line_items,
			stock_applied_at = EXCLUDED.stock_applied_at,
			updated_at       = EXCLUDED.updated_at
	`, p.ID, p.VendorName, p.SupplierContact, p.SupplierAddress, p.ShipTo, p.DeliveryFee,
		p.Reference, p.PurchaseDate, p.ProposedDeliveryDate, lines, p.Status,
		p.StockAppliedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save purchase %s: %w", p.ID, err)
	}
	return nil
}

func (t *txStore) PutProject(ctx context.Context, p core.Project) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("failed to encode project items: %w", err)
	}
	_, err = t.q.Exec(ctx, `
		INSERT INTO projects (id, name, status, items, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name         = EXCLUDED.name,
			status       = EXCLUDED.status,
			items        = EXCLUDED.items,
			completed_at = EXCLUDED.completed_at,
			updated_at   = EXCLUDED.updated_at
	`, p.ID, p.Name, p.Status, items, p.CompletedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	return nil
}

func (t *txStore) PutTrackingRecord(ctx context.Context, r core.TrackingRecord) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO product_tracking (id, project_id, project_name, item_id, item_name, item_type, quantity,
		                              useful_life_months, replacement_frequency_per_year, tracking_type,
		                              completed_at, replace_by, replenished, replenished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			project_name                   = EXCLUDED.project_name,
			item_name                      = EXCLUDED.item_name,
			item_type                      = EXCLUDED.item_type,
			quantity                       = EXCLUDED.quantity,
			useful_life_months             = EXCLUDED.useful_life_months,
			replacement_frequency_per_year = EXCLUDED.replacement_frequency_per_year,
			tracking_type                  = EXCLUDED.tracking_type,
			completed_at                   = EXCLUDED.completed_at,
			replace_by                     = EXCLUDED.replace_by,
			replenished                    = EXCLUDED.replenished,
			replenished_at                 = EXCLUDED.replenished_at
	`, r.ID, r.ProjectID, r.ProjectName, r.ItemID, r.ItemName, r.ItemType, r.Quantity,
		r.UsefulLifeMonths, r.ReplacementFrequencyPerYear, r.TrackingType,
		r.CompletedAt, r.ReplaceBy, r.Replenished, r.ReplenishedAt)
	if err != nil {
		return fmt.Errorf("failed to save tracking record %s: %w", r.ID, err)
	}
	return nil
}
