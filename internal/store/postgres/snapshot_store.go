// Package postgres provides Postgres-backed persistence for game
// snapshots.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okriker/wikibingo/internal/bingo"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SnapshotStoreConfig controls the Postgres connection pool used for
// snapshot rows.
type SnapshotStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type db interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// SnapshotStore writes snapshot rows into Postgres. The full snapshot is
// stored as jsonb; the hot leaderboard columns are denormalized alongside.
type SnapshotStore struct {
	pool  db
	table string
}

// NewSnapshotStore creates a Postgres-backed SnapshotStore using the
// provided config.
func NewSnapshotStore(ctx context.Context, cfg SnapshotStoreConfig) (*SnapshotStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "game_snapshots"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SnapshotStore{pool: pool, table: table}, nil
}

// NewSnapshotStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewSnapshotStoreWithPool(pool db, table string) (*SnapshotStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "game_snapshots"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SnapshotStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *SnapshotStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveSnapshot upserts snap keyed by its game id.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap bingo.Snapshot) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("snapshot store is not configured")
	}
	if snap.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	current_article,
	won,
	clicks,
	elapsed_seconds,
	started_at,
	finished_at,
	snapshot
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (id) DO UPDATE SET
	current_article = EXCLUDED.current_article,
	won = EXCLUDED.won,
	clicks = EXCLUDED.clicks,
	elapsed_seconds = EXCLUDED.elapsed_seconds,
	finished_at = EXCLUDED.finished_at,
	snapshot = EXCLUDED.snapshot`, s.table)

	args := []any{
		snap.ID,
		snap.CurrentArticle,
		snap.GameWon,
		snap.Clicks,
		snap.ElapsedSeconds,
		snap.StartedAt,
		snap.FinishedAt,
		payload,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads the snapshot stored under id.
func (s *SnapshotStore) GetSnapshot(ctx context.Context, id string) (bingo.Snapshot, error) {
	if s == nil || s.pool == nil {
		return bingo.Snapshot{}, fmt.Errorf("snapshot store is not configured")
	}
	query := fmt.Sprintf(`SELECT snapshot FROM %s WHERE id = $1`, s.table)

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bingo.Snapshot{}, bingo.ErrSnapshotNotFound
		}
		return bingo.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	var snap bingo.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return bingo.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns up to limit snapshots, most recently finished
// first.
func (s *SnapshotStore) ListSnapshots(ctx context.Context, limit int) ([]bingo.Snapshot, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("snapshot store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT snapshot FROM %s
ORDER BY finished_at DESC NULLS LAST, started_at DESC
LIMIT $1`, s.table)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []bingo.Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap bingo.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
