package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"stockledger/internal/core"
	"stockledger/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, *postgres.Store, context.Context) {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../../migrations/001_stock_ledger.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE product_tracking, item_units, purchases, projects, items`); err != nil {
		t.Fatalf("Failed to clean tables: %v", err)
	}
	return pool, postgres.NewStore(pool), ctx
}

func TestPostgresReceiveAndTransition(t *testing.T) {
	_, store, ctx := setupTestDB(t)
	ledger := core.NewLedger(store)
	items := core.NewItemService(store, ledger)
	receipts := core.NewReceiptService(store, ledger)
	tracking := core.NewTrackingService(store, ledger, 0)
	projects := core.NewProjectService(store, ledger, tracking)

	cost := decimal.RequireFromString("4.50")
	sensor, err := items.CreateItem(ctx, core.ItemInput{SKU: "SNS", Name: "Sensor", Category: "sensor", StandardCost: &cost, UsefulLifeMonths: 18})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if _, err := items.CreateItem(ctx, core.ItemInput{SKU: "SNS", Name: "Again"}); core.ErrorCode(err) != "VALIDATION" {
		t.Errorf("duplicate sku error = %v, want VALIDATION", err)
	}

	fee := decimal.RequireFromString("3.00")
	price := decimal.RequireFromString("10.00")
	receipt, err := receipts.Receive(ctx, core.PurchaseInput{
		VendorName:  "Acme",
		Status:      core.PurchaseStockReceived,
		DeliveryFee: &fee,
		Lines:       []core.PurchaseLineInput{{ItemID: sensor.ID, Quantity: 3, UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(receipt.Units) != 3 || receipt.Units[2].UnitCode != "SNS-0003" {
		t.Errorf("units = %+v", receipt.Units)
	}

	stored, err := receipts.GetPurchase(ctx, receipt.Purchase.ID)
	if err != nil {
		t.Fatalf("GetPurchase: %v", err)
	}
	if !stored.Lines[0].AdjustedUnitPrice.Equal(decimal.NewFromInt(11)) {
		t.Errorf("stored adjusted price = %s, want 11", stored.Lines[0].AdjustedUnitPrice)
	}

	p, err := projects.CreateProject(ctx, core.ProjectInput{Name: "Roof", Items: []core.ProjectLine{{ItemID: sensor.ID, Qty: 2}}})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if allocated, _ := items.GetItem(ctx, sensor.ID); allocated.InventoryQty != 1 || allocated.WIPQty != 2 {
		t.Errorf("after create: inventory %d wip %d, want 1/2", allocated.InventoryQty, allocated.WIPQty)
	}
	res, err := projects.SetStatus(ctx, p.ID, core.ProjectComplete)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if len(res.Tracked) != 1 {
		t.Fatalf("tracked = %+v, want one record", res.Tracked)
	}

	item, err := items.GetItem(ctx, sensor.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item.InventoryQty != 1 || item.WIPQty != 0 || item.CompletedQty != 2 || item.NextUnitCounter != 4 {
		t.Errorf("item = %+v", item)
	}

	rep, err := tracking.Replenish(ctx, res.Tracked[0].ID, res.Tracked[0].ReplaceBy.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("Replenish: %v", err)
	}
	if !rep.Closed.Replenished {
		t.Error("closed record not marked replenished")
	}
	open, err := tracking.List(ctx, core.TrackingFilter{OpenOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 1 || open[0].ID != rep.Opened.ID {
		t.Errorf("open = %+v", open)
	}
}

func TestPostgresConcurrentReceiptsNeverCollide(t *testing.T) {
	_, store, ctx := setupTestDB(t)
	ledger := core.NewLedger(store)
	items := core.NewItemService(store, ledger)
	receipts := core.NewReceiptService(store, ledger)

	item, err := items.CreateItem(ctx, core.ItemInput{SKU: "CC", Name: "Concurrent"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	const workers = 6
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := receipts.Receive(ctx, core.PurchaseInput{
				VendorName: "Acme",
				Lines:      []core.PurchaseLineInput{{ItemID: item.ID, Quantity: 4}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
	}

	units, err := items.ListUnits(ctx, item.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(units) != workers*4 {
		t.Fatalf("units = %d, want %d", len(units), workers*4)
	}
	seen := make(map[string]bool)
	for _, u := range units {
		if seen[u.UnitCode] {
			t.Fatalf("duplicate unit code %s", u.UnitCode)
		}
		seen[u.UnitCode] = true
	}
}
