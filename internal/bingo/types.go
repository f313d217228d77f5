package bingo

import "time"

// CellSnapshot is the externally visible state of one grid position.
type CellSnapshot struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Matched  bool   `json:"matched"`
}

// Snapshot is a point-in-time copy of a game session, handed to the API,
// the replay store, and the completion publisher. It carries no locks and
// no internal caches.
type Snapshot struct {
	ID             string         `json:"id"`
	CurrentArticle string         `json:"current_article"`
	Grid           []CellSnapshot `json:"grid"`
	History        []string       `json:"history"`
	Clicks         int            `json:"clicks"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	TimerRunning   bool           `json:"timer_running"`
	GameWon        bool           `json:"game_won"`
	WinningLines   []string       `json:"winning_lines,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

// Content is a successfully fetched article payload.
type Content struct {
	Title    string
	HTML     []byte
	Endpoint string
	Duration time.Duration
}

// FetchRequest captures one content fetch on behalf of a navigation.
// StillCurrent, when set, is consulted before every scheduled retry; a false
// result aborts the fetch with ErrStale.
type FetchRequest struct {
	Title        string
	StillCurrent func() bool
}
