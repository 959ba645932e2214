package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// lockKey is the advisory lock held for the duration of a migration run.
const lockKey = 7462840

type migration struct {
	version  string
	filename string
	checksum string
	sql      string
}

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_description.sql files")
	dryRun := flag.Bool("dry-run", false, "report pending migrations without applying them")
	flag.Parse()

	_ = godotenv.Load()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("[CONNECT] DATABASE_URL environment variable not set")
	}

	migrations, err := discover(*dir)
	if err != nil {
		log.Fatalf("[DISCOVER] %v", err)
	}

	ctx := context.Background()
	pool := connectDB(ctx, url)
	defer pool.Close()

	conn := acquireLock(ctx, pool)
	defer func() {
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", lockKey)
		conn.Release()
	}()

	if err := setupSchemaMigrations(ctx, pool); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	applied := 0
	for _, m := range migrations {
		done, err := apply(ctx, pool, m, *dryRun)
		if err != nil {
			log.Fatalf("[ERROR] %s: %v", m.filename, err)
		}
		if done {
			applied++
		}
	}

	if *dryRun {
		log.Printf("[DONE] %d pending migration(s).", applied)
		return
	}
	log.Printf("[DONE] %d migration(s) applied.", applied)
}

func connectDB(ctx context.Context, url string) *pgxpool.Pool {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		log.Fatalf("[CONNECT] failed to create pool: %v", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		log.Fatalf("[CONNECT] failed to ping database: %v", err)
	}

	log.Println("[CONNECT] success")
	return pool
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatalf("[LOCK] failed to acquire connection for lock: %v", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockKey).Scan(&locked); err != nil {
		log.Fatalf("[LOCK] failed to query advisory lock: %v", err)
	}
	if !locked {
		log.Fatalf("[LOCK] failed: another migrator is currently running")
	}

	log.Println("[LOCK] success")
	return conn
}

func setupSchemaMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`)
	if err != nil {
		return errors.Join(errors.New("failed to create schema_migrations table"), err)
	}
	return nil
}

// discover reads every .sql file in dir, sorted by filename, rejecting duplicate versions.
func discover(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		version, _, ok := strings.Cut(name, "_")
		if !ok || version == "" {
			return nil, errors.New("invalid migration filename " + name + ", expected NNN_description.sql")
		}
		if prev, dup := seen[version]; dup {
			return nil, errors.New("duplicate version " + version + " in " + prev + " and " + name)
		}
		seen[version] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(body)
		out = append(out, migration{version: version, filename: name, checksum: hex.EncodeToString(sum[:]), sql: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].filename < out[j].filename })
	return out, nil
}

// apply runs m in its own transaction unless it is already recorded. It reports whether m
// was (or, in a dry run, would be) applied.
func apply(ctx context.Context, pool *pgxpool.Pool, m migration, dryRun bool) (bool, error) {
	var existing string
	err := pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", m.version).Scan(&existing)
	switch {
	case err == nil:
		if existing != m.checksum {
			return false, errors.New("checksum mismatch: recorded " + existing + ", file " + m.checksum)
		}
		log.Printf("[SKIP] %s", m.filename)
		return false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, err
	}

	if dryRun {
		log.Printf("[PENDING] %s", m.filename)
		return true, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		m.version, m.filename, m.checksum); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	log.Printf("[APPLY] %s", m.filename)
	return true, nil
}
