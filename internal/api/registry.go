package api

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/events"
	"github.com/okriker/wikibingo/internal/fetcher"
	"github.com/okriker/wikibingo/internal/nav"
	"github.com/okriker/wikibingo/internal/resolver"
	"github.com/okriker/wikibingo/internal/session"
)

// GameDeps carries the shared collaborators used to assemble a game.
// Caches are per-game: each Create builds its own resolver and fetcher
// around the shared source.
type GameDeps struct {
	Source    bingo.ContentSource
	Redirects bingo.RedirectLookup
	Pool      bingo.TitlePool
	Recorder  nav.WinRecorder
	Clock     bingo.Clock
	IDGen     bingo.IDGenerator
	Logger    *zap.Logger

	Resolver resolver.Config
	Fetcher  fetcher.Config
	Nav      nav.Config
}

// Game bundles one live session with its controller and event hub.
type Game struct {
	Controller *nav.Controller
	Hub        *events.Hub
}

// Snapshot returns the game's current state.
func (g *Game) Snapshot() bingo.Snapshot {
	return g.Controller.Session().Snapshot()
}

// Registry tracks live games by id. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	deps  GameDeps
	games map[string]*Game
}

// NewRegistry builds an empty Registry.
func NewRegistry(deps GameDeps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{deps: deps, games: make(map[string]*Game)}
}

// Create assembles a new game. When gridTitles is empty the grid is drawn
// from the title pool.
func (r *Registry) Create(ctx context.Context, start string, gridTitles []string) (*Game, error) {
	if len(gridTitles) == 0 {
		drawn, err := r.drawGrid(ctx, start)
		if err != nil {
			return nil, fmt.Errorf("draw grid: %w", err)
		}
		gridTitles = drawn
	}

	id, err := r.deps.IDGen.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate game id: %w", err)
	}
	sess, err := session.New(id, start, gridTitles, r.deps.Clock)
	if err != nil {
		return nil, err
	}

	logger := r.deps.Logger.With(zap.String("game_id", id))
	res := resolver.New(r.deps.Redirects, r.deps.Resolver, logger)
	fet := fetcher.New(r.deps.Source, r.deps.Fetcher, logger)
	hub := events.NewHub(logger)
	matcher := session.NewMatchEngine(res, logger)
	rec := &winCleanup{inner: r.deps.Recorder, registry: r, id: id}
	ctrl := nav.New(sess, res, fet, matcher, r.deps.Pool, hub, rec, r.deps.Clock, r.deps.Nav, logger)

	game := &Game{Controller: ctrl, Hub: hub}
	r.mu.Lock()
	r.games[id] = game
	r.mu.Unlock()

	logger.Info("game created", zap.String("start_article", start))
	return game, nil
}

// drawGrid picks 25 distinct pool titles, none matching start.
func (r *Registry) drawGrid(ctx context.Context, start string) ([]string, error) {
	exclude := map[bingo.NormalizedTitle]struct{}{
		bingo.Normalize(start): {},
	}
	out := make([]string, 0, bingo.GridCells)
	for len(out) < bingo.GridCells {
		title, err := r.deps.Pool.ReplacementTitle(ctx, exclude)
		if err != nil {
			return nil, err
		}
		out = append(out, title)
		exclude[bingo.Normalize(title)] = struct{}{}
	}
	return out, nil
}

// winCleanup persists the final snapshot, then drops the finished game
// from the live registry so a long-lived process does not accumulate won
// sessions. Later lookups fall through to the snapshot store.
type winCleanup struct {
	inner    nav.WinRecorder
	registry *Registry
	id       string
}

func (w *winCleanup) RecordWin(ctx context.Context, snap bingo.Snapshot) {
	if w.inner != nil {
		w.inner.RecordWin(ctx, snap)
	}
	w.registry.remove(w.id)
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.games, id)
	r.mu.Unlock()
}

// Get returns the live game registered under id.
func (r *Registry) Get(id string) (*Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	game, ok := r.games[id]
	return game, ok
}

// Len returns the number of live games.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
