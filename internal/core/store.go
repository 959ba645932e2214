package core

import (
	"context"
	"time"
)

// Reader is the read side of the store. Missing records are reported as *NotFoundError.
type Reader interface {
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	ListUnits(ctx context.Context, itemID string) ([]Unit, error)

	GetPurchase(ctx context.Context, id string) (*Purchase, error)

	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)

	GetTrackingRecord(ctx context.Context, id string) (*TrackingRecord, error)
	// FindOpenTracking returns the non-replenished record for (projectID, itemID),
	// or nil and no error when there is none.
	FindOpenTracking(ctx context.Context, projectID, itemID string) (*TrackingRecord, error)
	ListTracking(ctx context.Context) ([]TrackingRecord, error)
}

// Tx is a unit of work. Everything written through a Tx commits together or not at all.
type Tx interface {
	Reader

	CreateItem(ctx context.Context, item Item) error
	// AdjustBuckets adds each delta to the named bucket of one item and stamps updated_at.
	AdjustBuckets(ctx context.Context, itemID string, deltas map[Bucket]int, at time.Time) error
	// AllocateUnitCounter atomically reserves n sequential counter values for the item and
	// returns the first one. The item's next counter advances by exactly n.
	AllocateUnitCounter(ctx context.Context, itemID string, n int, at time.Time) (int, error)
	InsertUnits(ctx context.Context, units []Unit) error

	PutPurchase(ctx context.Context, p Purchase) error
	PutProject(ctx context.Context, p Project) error
	PutTrackingRecord(ctx context.Context, r TrackingRecord) error
}

// Store is the persistence boundary injected into every service.
type Store interface {
	Reader
	// InTx runs fn in a transaction, committing only when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
