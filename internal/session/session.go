// Package session holds the per-game mutable state: the 5x5 grid, the
// matched set, history, click and timer counters, plus the match engine and
// win detection that operate on them.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/okriker/wikibingo/internal/bingo"
)

// Cell is one target position on the board. The canonical pair is resolved
// lazily by the match engine and cached for the life of the cell.
type Cell struct {
	Position int
	Title    string
	Matched  bool

	norm          bingo.NormalizedTitle
	canonicalNorm bingo.NormalizedTitle
	resolved      bool
}

// Session is the authoritative state for one game. All access goes through
// its methods; the zero value is not usable. Mutated only by the navigation
// controller, match engine, win detector, and replacer.
type Session struct {
	mu           sync.Mutex
	id           string
	clock        bingo.Clock
	startedAt    time.Time
	finishedAt   time.Time
	timerRunning bool

	current     string
	currentNorm bingo.NormalizedTitle
	// canonNorm of the current article; tracked alongside the raw form so
	// dedupe catches both spellings.
	currentCanonNorm bingo.NormalizedTitle

	grid    [bingo.GridCells]Cell
	matched map[bingo.NormalizedTitle]struct{}
	history []string
	clicks  int

	gameWon      bool
	winningLines []string
}

// New creates a Session with the given starting article and exactly 25 grid
// titles. Grid titles must be pairwise distinct by normalized form and
// distinct from the starting article.
func New(id, start string, gridTitles []string, clock bingo.Clock) (*Session, error) {
	if len(gridTitles) != bingo.GridCells {
		return nil, fmt.Errorf("grid needs %d titles, got %d", bingo.GridCells, len(gridTitles))
	}
	startNorm := bingo.Normalize(start)
	if startNorm == "" {
		return nil, fmt.Errorf("starting article is required")
	}
	seen := map[bingo.NormalizedTitle]int{}
	s := &Session{
		id:           id,
		clock:        clock,
		startedAt:    clock.Now(),
		timerRunning: true,
		current:      start,
		currentNorm:  startNorm,
		matched:      make(map[bingo.NormalizedTitle]struct{}),
	}
	for i, title := range gridTitles {
		norm := bingo.Normalize(title)
		if norm == "" {
			return nil, fmt.Errorf("grid cell %d: empty title", i)
		}
		if norm == startNorm {
			return nil, fmt.Errorf("grid cell %d: %q collides with the starting article", i, title)
		}
		if prev, dup := seen[norm]; dup {
			return nil, fmt.Errorf("grid cells %d and %d: duplicate title %q", prev, i, title)
		}
		seen[norm] = i
		s.grid[i] = Cell{Position: i, Title: title, norm: norm}
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CurrentNorms returns the normalized raw and canonical forms of the
// current article.
func (s *Session) CurrentNorms() (bingo.NormalizedTitle, bingo.NormalizedTitle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNorm, s.currentCanonNorm
}

// LastHistoryNorm returns the normalized form of the most recent history
// entry, or empty when history is empty.
func (s *Session) LastHistoryNorm() bingo.NormalizedTitle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return ""
	}
	return bingo.Normalize(s.history[len(s.history)-1])
}

// BeginNavigation commits a deduplicated navigation: the target becomes the
// current article, joins history, and charges one click.
func (s *Session) BeginNavigation(target string, canonNorm bingo.NormalizedTitle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = target
	s.currentNorm = bingo.Normalize(target)
	s.currentCanonNorm = canonNorm
	s.history = append(s.history, target)
	s.clicks++
}

// SwapCurrent replaces the current article (and its history entry) with a
// replacement title after an unrecoverable fetch failure. No click is
// charged.
func (s *Session) SwapCurrent(replacement string, canonNorm bingo.NormalizedTitle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = replacement
	s.currentNorm = bingo.Normalize(replacement)
	s.currentCanonNorm = canonNorm
	if len(s.history) > 0 {
		s.history[len(s.history)-1] = replacement
	} else {
		s.history = append(s.history, replacement)
	}
}

// ReplaceCell swaps the title at a grid position in place. Position and
// matched state are preserved; the canonical cache is invalidated. The new
// title must stay distinct from every other title in play.
func (s *Session) ReplaceCell(position int, title string) error {
	if position < 0 || position >= bingo.GridCells {
		return fmt.Errorf("position %d out of range", position)
	}
	norm := bingo.Normalize(title)
	if norm == "" {
		return fmt.Errorf("replacement title is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.grid {
		if i != position && s.grid[i].norm == norm {
			return fmt.Errorf("replacement %q duplicates grid cell %d", title, i)
		}
	}
	if norm == s.currentNorm {
		return fmt.Errorf("replacement %q duplicates the current article", title)
	}
	cell := &s.grid[position]
	cell.Title = title
	cell.norm = norm
	cell.resolved = false
	cell.canonicalNorm = ""
	return nil
}

// Exclusions returns the normalized titles currently in play: every grid
// cell, the current article, and the full history.
func (s *Session) Exclusions() map[bingo.NormalizedTitle]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[bingo.NormalizedTitle]struct{}, bingo.GridCells+len(s.history)+1)
	for i := range s.grid {
		out[s.grid[i].norm] = struct{}{}
	}
	out[s.currentNorm] = struct{}{}
	for _, h := range s.history {
		out[bingo.Normalize(h)] = struct{}{}
	}
	return out
}

// Won reports whether the game has been won.
func (s *Session) Won() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameWon
}

// Clicks returns the click count.
func (s *Session) Clicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks
}

// Snapshot returns a deep copy of the externally visible state.
func (s *Session) Snapshot() bingo.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	grid := make([]bingo.CellSnapshot, bingo.GridCells)
	for i := range s.grid {
		grid[i] = bingo.CellSnapshot{
			Position: s.grid[i].Position,
			Title:    s.grid[i].Title,
			Matched:  s.grid[i].Matched,
		}
	}
	snap := bingo.Snapshot{
		ID:             s.id,
		CurrentArticle: s.current,
		Grid:           grid,
		History:        append([]string(nil), s.history...),
		Clicks:         s.clicks,
		ElapsedSeconds: s.elapsedSecondsLocked(),
		TimerRunning:   s.timerRunning,
		GameWon:        s.gameWon,
		WinningLines:   append([]string(nil), s.winningLines...),
		StartedAt:      s.startedAt,
	}
	if !s.finishedAt.IsZero() {
		finished := s.finishedAt
		snap.FinishedAt = &finished
	}
	return snap
}

func (s *Session) elapsedSecondsLocked() int {
	end := s.clock.Now()
	if !s.timerRunning && !s.finishedAt.IsZero() {
		end = s.finishedAt
	}
	d := end.Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
