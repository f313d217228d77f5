// Package recorder persists won-game snapshots: a row in the session
// store, a JSON archive in the blob store, and a completion event on the
// publisher.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
)

const completionEventType = "game.won"

// Recorder fans a final snapshot out to the persistence collaborators.
// Every collaborator is optional; failures are logged and never surfaced
// back into play.
type Recorder struct {
	store     bingo.SessionStore
	blobs     bingo.BlobStore
	publisher bingo.Publisher
	logger    *zap.Logger
}

// New builds a Recorder. Any collaborator may be nil.
func New(store bingo.SessionStore, blobs bingo.BlobStore, publisher bingo.Publisher, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, blobs: blobs, publisher: publisher, logger: logger}
}

// RecordWin persists snap. Collaborators run independently: a store
// failure does not stop the archive or the publish.
func (r *Recorder) RecordWin(ctx context.Context, snap bingo.Snapshot) {
	if r.store != nil {
		if err := r.store.SaveSnapshot(ctx, snap); err != nil {
			r.logger.Error("save snapshot failed",
				zap.String("game_id", snap.ID),
				zap.Error(err),
			)
		}
	}

	var blobURI string
	if r.blobs != nil {
		uri, err := r.archive(ctx, snap)
		if err != nil {
			r.logger.Error("archive snapshot failed",
				zap.String("game_id", snap.ID),
				zap.Error(err),
			)
		} else {
			blobURI = uri
		}
	}

	if r.publisher != nil {
		payload := completionEvent{
			GameID:         snap.ID,
			Clicks:         snap.Clicks,
			ElapsedSeconds: snap.ElapsedSeconds,
			WinningLines:   snap.WinningLines,
			BlobURI:        blobURI,
		}
		id, err := r.publisher.Publish(ctx, completionEventType, payload)
		if err != nil {
			r.logger.Error("publish completion failed",
				zap.String("game_id", snap.ID),
				zap.Error(err),
			)
			return
		}
		r.logger.Info("completion published",
			zap.String("game_id", snap.ID),
			zap.String("message_id", id),
		)
	}
}

func (r *Recorder) archive(ctx context.Context, snap bingo.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	path := fmt.Sprintf("wins/%s.json", snap.ID)
	uri, err := r.blobs.PutObject(ctx, path, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return uri, nil
}

// completionEvent is the payload published when a game is won.
type completionEvent struct {
	GameID         string   `json:"game_id"`
	Clicks         int      `json:"clicks"`
	ElapsedSeconds int      `json:"elapsed_seconds"`
	WinningLines   []string `json:"winning_lines"`
	BlobURI        string   `json:"blob_uri,omitempty"`
}
