package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/metrics"
)

// MatchEngine compares a newly navigated title against the grid. Cell
// canonical titles are resolved once per cell and cached on the cell, so a
// full-grid pass costs at most 25 resolutions over the session lifetime.
type MatchEngine struct {
	resolver bingo.Resolver
	logger   *zap.Logger
}

// NewMatchEngine builds a MatchEngine on top of the redirect resolver.
func NewMatchEngine(resolver bingo.Resolver, logger *zap.Logger) *MatchEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchEngine{resolver: resolver, logger: logger}
}

// Apply marks every grid cell matched by the navigation to canonical title
// C (whose raw form normalized to rawNorm) and returns the titles of the
// newly matched cells, in grid order. Cells already in the matched set
// produce no event. Once the game is won the matched set is frozen and
// Apply returns nil.
func (m *MatchEngine) Apply(ctx context.Context, s *Session, canonical string, rawNorm bingo.NormalizedTitle) []string {
	if s.Won() {
		return nil
	}
	canonNorm := bingo.Normalize(canonical)

	// Resolve outside the session lock: cell resolution does network I/O.
	// The first pass may face the whole grid, so cells resolve concurrently
	// rather than serializing 25 lookups behind the navigation lock.
	pending := m.pendingCells(s)
	resolved := make(map[int]bingo.NormalizedTitle, len(pending))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, resolveWorkers)
	)
	for _, p := range pending {
		wg.Add(1)
		go func(p pendingCell) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			norm := bingo.Normalize(m.resolver.Resolve(ctx, p.Title))
			mu.Lock()
			resolved[p.Position] = norm
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	newly := m.mark(s, rawNorm, canonNorm, resolved)
	if len(newly) > 0 {
		metrics.ObserveMatches(len(newly))
		m.logger.Debug("cells matched",
			zap.String("canonical", canonical),
			zap.Strings("titles", newly),
		)
	}
	return newly
}

// resolveWorkers caps concurrent cell resolutions so a fresh grid does not
// burst 25 requests at the upstream wiki.
const resolveWorkers = 8

type pendingCell struct {
	Position int
	Title    string
}

func (m *MatchEngine) pendingCells(s *Session) []pendingCell {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pendingCell
	for i := range s.grid {
		cell := &s.grid[i]
		if !cell.Matched && !cell.resolved {
			out = append(out, pendingCell{Position: cell.Position, Title: cell.Title})
		}
	}
	return out
}

func (m *MatchEngine) mark(
	s *Session,
	rawNorm, canonNorm bingo.NormalizedTitle,
	resolved map[int]bingo.NormalizedTitle,
) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameWon {
		return nil
	}

	var newly []string
	for i := range s.grid {
		cell := &s.grid[i]
		if cn, ok := resolved[cell.Position]; ok && !cell.resolved {
			cell.canonicalNorm = cn
			cell.resolved = true
		}
		if !cellMatches(cell, rawNorm, canonNorm) {
			continue
		}
		if _, already := s.matched[cell.norm]; already {
			cell.Matched = true
			continue
		}
		cell.Matched = true
		s.matched[cell.norm] = struct{}{}
		newly = append(newly, cell.Title)
	}
	return newly
}

// cellMatches implements the three-way identity test: direct normalized
// equality, the cell redirecting to the clicked title, or the clicked title
// redirecting to the cell.
func cellMatches(cell *Cell, rawNorm, canonNorm bingo.NormalizedTitle) bool {
	if cell.norm == rawNorm {
		return true
	}
	if cell.resolved && cell.canonicalNorm == rawNorm {
		return true
	}
	if canonNorm != "" && canonNorm == cell.norm {
		return true
	}
	return false
}
