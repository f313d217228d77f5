package bingo

import (
	"context"
	"io"
	"time"
)

// ContentSource serves article HTML from the live content source. Both
// endpoints return the page body or a *FetchError.
type ContentSource interface {
	// Lightweight fetches the reduced payload; preferred first attempt.
	Lightweight(ctx context.Context, title string) ([]byte, error)
	// Full fetches the complete rendered page; fallback endpoint.
	Full(ctx context.Context, title string) ([]byte, error)
}

// RedirectLookup resolves a raw title to its redirect-followed canonical
// form, following hops server-side.
type RedirectLookup interface {
	RedirectTarget(ctx context.Context, title string) (string, error)
}

// Resolver produces the canonical title for a raw title. Implementations
// never fail: on timeout or lookup error they fall back to the normalized
// input.
type Resolver interface {
	Resolve(ctx context.Context, title string) string
}

// Fetcher retrieves article content with retry and endpoint fallback.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (Content, error)
}

// TitlePool hands out replacement titles from the curated article pool,
// guaranteed distinct from every excluded key.
type TitlePool interface {
	ReplacementTitle(ctx context.Context, exclude map[NormalizedTitle]struct{}) (string, error)
}

// SessionStore persists completed-session snapshots for the leaderboard and
// replay collaborators.
type SessionStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
}

// BlobStore archives raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces session IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
