// Package memory provides an in-process snapshot store for tests and for
// deployments without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/okriker/wikibingo/internal/bingo"
)

// SnapshotStore keeps snapshots in a map. Safe for concurrent use.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]bingo.Snapshot
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snaps: make(map[string]bingo.Snapshot)}
}

// SaveSnapshot stores a deep copy of snap keyed by its game id.
func (s *SnapshotStore) SaveSnapshot(_ context.Context, snap bingo.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.ID] = cloneSnapshot(snap)
	return nil
}

// GetSnapshot returns the snapshot stored under id.
func (s *SnapshotStore) GetSnapshot(_ context.Context, id string) (bingo.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id]
	if !ok {
		return bingo.Snapshot{}, bingo.ErrSnapshotNotFound
	}
	return cloneSnapshot(snap), nil
}

// ListSnapshots returns up to limit snapshots, most recently finished
// first. Unfinished games sort last.
func (s *SnapshotStore) ListSnapshots(_ context.Context, limit int) ([]bingo.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	out := make([]bingo.Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, cloneSnapshot(snap))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		fi, fj := out[i].FinishedAt, out[j].FinishedAt
		switch {
		case fi != nil && fj != nil:
			return fi.After(*fj)
		case fi != nil:
			return true
		case fj != nil:
			return false
		default:
			return out[i].StartedAt.After(out[j].StartedAt)
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored snapshots.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}

func cloneSnapshot(snap bingo.Snapshot) bingo.Snapshot {
	out := snap
	out.Grid = append([]bingo.CellSnapshot(nil), snap.Grid...)
	out.History = append([]string(nil), snap.History...)
	out.WinningLines = append([]string(nil), snap.WinningLines...)
	if snap.FinishedAt != nil {
		finished := *snap.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}
