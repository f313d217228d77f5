package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/okriker/wikibingo/internal/bingo"
)

func sampleSnapshot(t *testing.T) bingo.Snapshot {
	t.Helper()
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(3 * time.Minute)
	return bingo.Snapshot{
		ID:             "game-1",
		CurrentArticle: "Elderberry",
		Grid:           []bingo.CellSnapshot{{Position: 0, Title: "Apple", Matched: true}},
		History:        []string{"Apple", "Elderberry"},
		Clicks:         2,
		ElapsedSeconds: 180,
		GameWon:        true,
		WinningLines:   []string{"row-0"},
		StartedAt:      started,
		FinishedAt:     &finished,
	}
}

func TestSaveSnapshotUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStoreWithPool(mock, "game_snapshots")
	require.NoError(t, err)

	snap := sampleSnapshot(t)
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO game_snapshots").
		WithArgs(
			snap.ID,
			snap.CurrentArticle,
			snap.GameWon,
			snap.Clicks,
			snap.ElapsedSeconds,
			snap.StartedAt,
			snap.FinishedAt,
			payload,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveSnapshot(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSnapshotRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStoreWithPool(mock, "")
	require.NoError(t, err)

	err = store.SaveSnapshot(context.Background(), bingo.Snapshot{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStoreWithPool(mock, "game_snapshots")
	require.NoError(t, err)

	snap := sampleSnapshot(t)
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT snapshot FROM game_snapshots").
		WithArgs(snap.ID).
		WillReturnRows(pgxmock.NewRows([]string{"snapshot"}).AddRow(payload))

	got, err := store.GetSnapshot(context.Background(), snap.ID)
	require.NoError(t, err)
	require.Equal(t, snap, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSnapshotNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStoreWithPool(mock, "game_snapshots")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT snapshot FROM game_snapshots").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"snapshot"}))

	_, err = store.GetSnapshot(context.Background(), "missing")
	require.ErrorIs(t, err, bingo.ErrSnapshotNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSnapshots(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStoreWithPool(mock, "game_snapshots")
	require.NoError(t, err)

	snap := sampleSnapshot(t)
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT snapshot FROM game_snapshots").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"snapshot"}).AddRow(payload))

	got, err := store.ListSnapshots(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, snap.ID, got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSnapshotStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSnapshotStoreWithPool(nil, "game_snapshots")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewSnapshotStoreWithPool(mock, "drop table; --")
	require.Error(t, err)
}
