// Package memory provides an in-process transactional core.Store. Every transaction works on a
// cloned copy of the state which replaces the live state only when the transaction succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stockledger/internal/core"
)

type state struct {
	items     map[string]core.Item
	units     map[string][]core.Unit // per item, in minting order
	purchases map[string]core.Purchase
	projects  map[string]core.Project
	tracking  map[string]core.TrackingRecord
}

func newState() state {
	return state{
		items:     make(map[string]core.Item),
		units:     make(map[string][]core.Unit),
		purchases: make(map[string]core.Purchase),
		projects:  make(map[string]core.Project),
		tracking:  make(map[string]core.TrackingRecord),
	}
}

func (s state) clone() state { return stateFromSnapshot(snapshotFromState(s)) }

// Snapshot is the serialisable representation of the store contents.
type Snapshot struct {
	Items     []core.Item           `json:"items"`
	Units     []core.Unit           `json:"units"`
	Purchases []core.Purchase       `json:"purchases"`
	Projects  []core.Project        `json:"projects"`
	Tracking  []core.TrackingRecord `json:"tracking"`
}

func snapshotFromState(s state) Snapshot {
	snap := Snapshot{
		Items:     make([]core.Item, 0, len(s.items)),
		Purchases: make([]core.Purchase, 0, len(s.purchases)),
		Projects:  make([]core.Project, 0, len(s.projects)),
		Tracking:  make([]core.TrackingRecord, 0, len(s.tracking)),
	}
	for _, it := range s.items {
		snap.Items = append(snap.Items, it)
	}
	sort.Slice(snap.Items, func(i, j int) bool { return snap.Items[i].SKU < snap.Items[j].SKU })
	for _, it := range snap.Items {
		snap.Units = append(snap.Units, s.units[it.ID]...)
	}
	for _, p := range s.purchases {
		snap.Purchases = append(snap.Purchases, clonePurchase(p))
	}
	sort.Slice(snap.Purchases, func(i, j int) bool {
		return byCreated(snap.Purchases[i].CreatedAt, snap.Purchases[j].CreatedAt, snap.Purchases[i].ID, snap.Purchases[j].ID)
	})
	for _, p := range s.projects {
		snap.Projects = append(snap.Projects, cloneProject(p))
	}
	sort.Slice(snap.Projects, func(i, j int) bool {
		return byCreated(snap.Projects[i].CreatedAt, snap.Projects[j].CreatedAt, snap.Projects[i].ID, snap.Projects[j].ID)
	})
	for _, r := range s.tracking {
		snap.Tracking = append(snap.Tracking, r)
	}
	sort.Slice(snap.Tracking, func(i, j int) bool {
		return byCreated(snap.Tracking[i].CompletedAt, snap.Tracking[j].CompletedAt, snap.Tracking[i].ID, snap.Tracking[j].ID)
	})
	return snap
}

func stateFromSnapshot(snap Snapshot) state {
	s := newState()
	for _, it := range snap.Items {
		s.items[it.ID] = it
	}
	for _, u := range snap.Units {
		s.units[u.ItemID] = append(s.units[u.ItemID], u)
	}
	for _, p := range snap.Purchases {
		s.purchases[p.ID] = clonePurchase(p)
	}
	for _, p := range snap.Projects {
		s.projects[p.ID] = cloneProject(p)
	}
	for _, r := range snap.Tracking {
		s.tracking[r.ID] = r
	}
	return s
}

func byCreated(a, b time.Time, idA, idB string) bool {
	if a.Equal(b) {
		return idA < idB
	}
	return a.Before(b)
}

func clonePurchase(p core.Purchase) core.Purchase {
	p.Lines = append([]core.PurchaseLine(nil), p.Lines...)
	return p
}

func cloneProject(p core.Project) core.Project {
	p.Items = append([]core.ProjectLine(nil), p.Items...)
	return p
}

// Option configures a Store.
type Option func(*Store)

// WithBeforeCommit installs a hook run after a transaction body succeeds and before its state
// is published. A non-nil error from the hook aborts the transaction.
func WithBeforeCommit(fn func(tx core.Tx) error) Option {
	return func(s *Store) { s.beforeCommit = fn }
}

// WithPersister installs a durable sink for committed state. The new state is published only
// after persist succeeds, so a failed write leaves both the sink and the store unchanged.
func WithPersister(persist func(ctx context.Context, snap Snapshot) error) Option {
	return func(s *Store) { s.persist = persist }
}

// Store is a core.Store held entirely in memory. Transactions are serialised.
type Store struct {
	mu           sync.RWMutex
	state        state
	beforeCommit func(tx core.Tx) error
	persist      func(ctx context.Context, snap Snapshot) error
}

var _ core.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{state: newState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTx runs fn against a private copy of the state and publishes it only if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{view: view{st: s.state.clone()}}
	if err := fn(tx); err != nil {
		return err
	}
	if s.beforeCommit != nil {
		if err := s.beforeCommit(tx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.persist != nil {
		if err := s.persist(ctx, snapshotFromState(tx.st)); err != nil {
			return fmt.Errorf("persist state: %w", err)
		}
	}
	s.state = tx.st
	return nil
}

// ExportState returns a deep copy of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the committed state with snap.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snap)
}

func (s *Store) GetItem(ctx context.Context, id string) (*core.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.GetItem(ctx, id)
}

func (s *Store) ListItems(ctx context.Context) ([]core.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.ListItems(ctx)
}

func (s *Store) ListUnits(ctx context.Context, itemID string) ([]core.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.ListUnits(ctx, itemID)
}

func (s *Store) GetPurchase(ctx context.Context, id string) (*core.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.GetPurchase(ctx, id)
}

func (s *Store) GetProject(ctx context.Context, id string) (*core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.GetProject(ctx, id)
}

func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.ListProjects(ctx)
}

func (s *Store) GetTrackingRecord(ctx context.Context, id string) (*core.TrackingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.GetTrackingRecord(ctx, id)
}

func (s *Store) FindOpenTracking(ctx context.Context, projectID, itemID string) (*core.TrackingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.FindOpenTracking(ctx, projectID, itemID)
}

func (s *Store) ListTracking(ctx context.Context) ([]core.TrackingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{st: s.state}.ListTracking(ctx)
}

// view implements core.Reader over one state. Returned values never alias the state.
type view struct {
	st state
}

func (v view) GetItem(_ context.Context, id string) (*core.Item, error) {
	it, ok := v.st.items[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "item", ID: id}
	}
	return &it, nil
}

func (v view) ListItems(_ context.Context) ([]core.Item, error) {
	items := make([]core.Item, 0, len(v.st.items))
	for _, it := range v.st.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SKU < items[j].SKU })
	return items, nil
}

func (v view) ListUnits(_ context.Context, itemID string) ([]core.Unit, error) {
	return append([]core.Unit(nil), v.st.units[itemID]...), nil
}

func (v view) GetPurchase(_ context.Context, id string) (*core.Purchase, error) {
	p, ok := v.st.purchases[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "purchase", ID: id}
	}
	p = clonePurchase(p)
	return &p, nil
}

func (v view) GetProject(_ context.Context, id string) (*core.Project, error) {
	p, ok := v.st.projects[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "project", ID: id}
	}
	p = cloneProject(p)
	return &p, nil
}

func (v view) ListProjects(_ context.Context) ([]core.Project, error) {
	projects := make([]core.Project, 0, len(v.st.projects))
	for _, p := range v.st.projects {
		projects = append(projects, cloneProject(p))
	}
	sort.Slice(projects, func(i, j int) bool {
		return byCreated(projects[i].CreatedAt, projects[j].CreatedAt, projects[i].ID, projects[j].ID)
	})
	return projects, nil
}

func (v view) GetTrackingRecord(_ context.Context, id string) (*core.TrackingRecord, error) {
	r, ok := v.st.tracking[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "tracking record", ID: id}
	}
	return &r, nil
}

func (v view) FindOpenTracking(_ context.Context, projectID, itemID string) (*core.TrackingRecord, error) {
	for _, r := range v.st.tracking {
		if r.ProjectID == projectID && r.ItemID == itemID && !r.Replenished {
			return &r, nil
		}
	}
	return nil, nil
}

func (v view) ListTracking(_ context.Context) ([]core.TrackingRecord, error) {
	records := make([]core.TrackingRecord, 0, len(v.st.tracking))
	for _, r := range v.st.tracking {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return byCreated(records[i].CompletedAt, records[j].CompletedAt, records[i].ID, records[j].ID)
	})
	return records, nil
}

type transaction struct {
	view
}

func (tx *transaction) CreateItem(_ context.Context, item core.Item) error {
	if _, exists := tx.st.items[item.ID]; exists {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	for _, it := range tx.st.items {
		if it.SKU == item.SKU {
			return &core.ValidationError{Field: "sku", Message: fmt.Sprintf("sku %s already exists", item.SKU)}
		}
	}
	tx.st.items[item.ID] = item
	return nil
}

func (tx *transaction) AdjustBuckets(_ context.Context, itemID string, deltas map[core.Bucket]int, at time.Time) error {
	it, ok := tx.st.items[itemID]
	if !ok {
		return &core.NotFoundError{Kind: "item", ID: itemID}
	}
	for b, d := range deltas {
		if err := it.Adjust(b, d); err != nil {
			return err
		}
	}
	it.UpdatedAt = at
	tx.st.items[itemID] = it
	return nil
}

func (tx *transaction) AllocateUnitCounter(_ context.Context, itemID string, n int, at time.Time) (int, error) {
	it, ok := tx.st.items[itemID]
	if !ok {
		return 0, &core.NotFoundError{Kind: "item", ID: itemID}
	}
	if it.NextUnitCounter < 1 {
		it.NextUnitCounter = 1
	}
	start := it.NextUnitCounter
	it.NextUnitCounter += n
	it.UpdatedAt = at
	tx.st.items[itemID] = it
	return start, nil
}

func (tx *transaction) InsertUnits(_ context.Context, units []core.Unit) error {
	codes := make(map[string]bool)
	for _, list := range tx.st.units {
		for _, u := range list {
			codes[u.UnitCode] = true
		}
	}
	for _, u := range units {
		if codes[u.UnitCode] {
			return fmt.Errorf("unit code %s already exists", u.UnitCode)
		}
		codes[u.UnitCode] = true
		tx.st.units[u.ItemID] = append(tx.st.units[u.ItemID], u)
	}
	return nil
}

func (tx *transaction) PutPurchase(_ context.Context, p core.Purchase) error {
	tx.st.purchases[p.ID] = clonePurchase(p)
	return nil
}

func (tx *transaction) PutProject(_ context.Context, p core.Project) error {
	tx.st.projects[p.ID] = cloneProject(p)
	return nil
}

func (tx *transaction) PutTrackingRecord(_ context.Context, r core.TrackingRecord) error {
	if r.ID == "" {
		return fmt.Errorf("tracking record without id")
	}
	tx.st.tracking[r.ID] = r
	return nil
}
