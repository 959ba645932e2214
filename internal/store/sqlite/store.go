// Package sqlite persists the in-memory store to a single SQLite file. The full state is
// written as JSON blobs, one row per collection, inside the commit of every transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stockledger/internal/core"
	"stockledger/internal/store/memory"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store is a core.Store backed by memory state and snapshotted to SQLite.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

var _ core.Store = (*Store)(nil)

var collections = []string{"items", "units", "purchases", "projects", "tracking"}

// Open opens (or creates) the database at path and loads any previously saved state.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "stockledger.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; SQLite serialises writes anyway and the memory store serialises transactions.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	s := &Store{db: db, path: path}
	snap, err := s.load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.Store = memory.NewStore(memory.WithPersister(s.persist))
	s.ImportState(snap)
	return s, nil
}

func (s *Store) load(ctx context.Context) (memory.Snapshot, error) {
	var snap memory.Snapshot
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return snap, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return snap, fmt.Errorf("scan: %w", err)
		}
		var target any
		switch bucket {
		case "items":
			target = &snap.Items
		case "units":
			target = &snap.Units
		case "purchases":
			target = &snap.Purchases
		case "projects":
			target = &snap.Projects
		case "tracking":
			target = &snap.Tracking
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return snap, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("read state: %w", err)
	}
	return snap, nil
}

func (s *Store) persist(ctx context.Context, snap memory.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, bucket := range collections {
		var data []byte
		switch bucket {
		case "items":
			data, err = json.Marshal(snap.Items)
		case "units":
			data, err = json.Marshal(snap.Units)
		case "purchases":
			data, err = json.Marshal(snap.Purchases)
		case "projects":
			data, err = json.Marshal(snap.Projects)
		case "tracking":
			data, err = json.Marshal(snap.Tracking)
		}
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
