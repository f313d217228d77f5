// Package nav implements the navigation state machine: single-flight
// locking, click debouncing, dedupe against the current article, and the
// resolve/fetch/match/replace pipeline that drives the game state.
package nav

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/events"
	"github.com/okriker/wikibingo/internal/metrics"
	"github.com/okriker/wikibingo/internal/session"
)

// Outcome reports how a navigation request was handled.
type Outcome string

// Navigation outcomes.
const (
	// OutcomeCompleted means the article loaded and match/win detection ran.
	OutcomeCompleted Outcome = "completed"
	// OutcomeDeduped means the target was the current article or the most
	// recent history entry; no click was charged.
	OutcomeDeduped Outcome = "deduped"
	// OutcomeDropped means another navigation was in flight, or the call
	// landed inside the debounce window.
	OutcomeDropped Outcome = "dropped"
	// OutcomeStale means the session's target changed mid-fetch and the
	// result was discarded.
	OutcomeStale Outcome = "stale"
	// OutcomeFailed means fetch and replacement both failed; the session
	// was left navigable.
	OutcomeFailed Outcome = "failed"
)

// WinRecorder receives the final snapshot when a game is won. Failures are
// the recorder's problem; it must never surface them into play.
type WinRecorder interface {
	RecordWin(ctx context.Context, snap bingo.Snapshot)
}

// Config controls controller behavior.
type Config struct {
	// Debounce is the window within which repeated Navigate calls are
	// ignored. The authoritative guard is the navigation lock; this is
	// the cheap first line of defense.
	Debounce time.Duration
}

const defaultDebounce = 100 * time.Millisecond

// Controller serializes navigation for one session. At most one navigation
// is in flight: the lock is an atomic check-and-set, so a second call
// issued while the first is running is a no-op, never queued.
type Controller struct {
	session  *session.Session
	resolver bingo.Resolver
	fetcher  bingo.Fetcher
	matcher  *session.MatchEngine
	pool     bingo.TitlePool
	hub      *events.Hub
	recorder WinRecorder
	clock    bingo.Clock
	logger   *zap.Logger

	debounce    time.Duration
	navigating  atomic.Bool
	lastAttempt atomic.Int64
}

// New constructs a Controller. recorder may be nil.
func New(
	sess *session.Session,
	resolver bingo.Resolver,
	fetcher bingo.Fetcher,
	matcher *session.MatchEngine,
	pool bingo.TitlePool,
	hub *events.Hub,
	recorder WinRecorder,
	clock bingo.Clock,
	cfg Config,
	logger *zap.Logger,
) *Controller {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		session:  sess,
		resolver: resolver,
		fetcher:  fetcher,
		matcher:  matcher,
		pool:     pool,
		hub:      hub,
		recorder: recorder,
		clock:    clock,
		logger:   logger,
		debounce: cfg.Debounce,
	}
}

// Session returns the controller's session.
func (c *Controller) Session() *session.Session {
	return c.session
}

// Navigate registers a click on title. It blocks until the navigation
// settles and returns how the request was handled. Calls that lose the
// lock race or land inside the debounce window return OutcomeDropped
// without touching any state.
func (c *Controller) Navigate(ctx context.Context, title string) Outcome {
	now := c.clock.Now().UnixNano()
	last := c.lastAttempt.Swap(now)
	if last != 0 && now-last < c.debounce.Nanoseconds() {
		metrics.ObserveNavigation(string(OutcomeDropped))
		return OutcomeDropped
	}

	// The single-flight guard: check-and-set must be atomic so that two
	// racing calls cannot both enter Navigating.
	if !c.navigating.CompareAndSwap(false, true) {
		metrics.ObserveNavigation(string(OutcomeDropped))
		return OutcomeDropped
	}
	defer c.navigating.Store(false)

	outcome := c.navigate(ctx, title)
	metrics.ObserveNavigation(string(outcome))
	return outcome
}

func (c *Controller) navigate(ctx context.Context, title string) Outcome {
	canonical := c.resolver.Resolve(ctx, title)
	rawNorm := bingo.Normalize(title)
	canonNorm := bingo.Normalize(canonical)

	if c.isDuplicate(rawNorm, canonNorm) {
		c.logger.Debug("navigation deduplicated", zap.String("title", title))
		return OutcomeDeduped
	}

	c.session.BeginNavigation(title, canonNorm)
	c.emitLoading(true)
	defer c.emitLoading(false)

	attempt, attemptCanonical, attemptRawNorm := title, canonical, rawNorm
	for replaced := false; ; {
		content, err := c.fetch(ctx, attempt)
		if err == nil {
			c.logger.Debug("article loaded",
				zap.String("title", attempt),
				zap.String("endpoint", content.Endpoint),
				zap.Int("bytes", len(content.HTML)),
			)
			c.applyMatches(ctx, attemptCanonical, attemptRawNorm)
			return OutcomeCompleted
		}
		if errors.Is(err, bingo.ErrStale) {
			c.logger.Debug("stale fetch discarded", zap.String("title", attempt))
			return OutcomeStale
		}
		if replaced {
			c.logger.Error("replacement article failed to load",
				zap.String("title", attempt),
				zap.Error(err),
			)
			return OutcomeFailed
		}

		// Unrecoverable fetch failure: substitute a replacement for the
		// current-article slot and proceed as if it had been the target.
		repl, ok := c.replaceCurrent(ctx, attempt, err)
		if !ok {
			return OutcomeFailed
		}
		replaced = true
		attempt = repl
		attemptCanonical = c.resolver.Resolve(ctx, repl)
		attemptRawNorm = bingo.Normalize(repl)
	}
}

func (c *Controller) isDuplicate(rawNorm, canonNorm bingo.NormalizedTitle) bool {
	curRaw, curCanon := c.session.CurrentNorms()
	lastHist := c.session.LastHistoryNorm()
	for _, n := range []bingo.NormalizedTitle{rawNorm, canonNorm} {
		if n == "" {
			continue
		}
		if n == curRaw || (curCanon != "" && n == curCanon) || (lastHist != "" && n == lastHist) {
			return true
		}
	}
	return false
}

func (c *Controller) fetch(ctx context.Context, title string) (bingo.Content, error) {
	norm := bingo.Normalize(title)
	return c.fetcher.Fetch(ctx, bingo.FetchRequest{
		Title: title,
		StillCurrent: func() bool {
			cur, _ := c.session.CurrentNorms()
			return cur == norm
		},
	})
}

func (c *Controller) applyMatches(ctx context.Context, canonical string, rawNorm bingo.NormalizedTitle) {
	newly := c.matcher.Apply(ctx, c.session, canonical, rawNorm)
	for _, title := range newly {
		c.emit(events.Event{Kind: events.KindMatch, Title: title})
	}
	if len(newly) == 0 {
		return
	}
	lines, justWon := c.session.CheckWin()
	if !justWon {
		return
	}
	c.emit(events.Event{Kind: events.KindWin, Lines: lines})
	if c.recorder != nil {
		c.recorder.RecordWin(ctx, c.session.Snapshot())
	}
}

// replaceCurrent swaps a replacement title into the current-article slot.
// The failure event fires after the swap so observers always see a session
// that has already recovered.
func (c *Controller) replaceCurrent(ctx context.Context, failed string, cause error) (string, bool) {
	repl, err := c.pool.ReplacementTitle(ctx, c.session.Exclusions())
	if err != nil {
		c.logger.Error("no replacement available",
			zap.String("failed_title", failed),
			zap.NamedError("fetch_error", cause),
			zap.Error(err),
		)
		return "", false
	}
	replCanonical := c.resolver.Resolve(ctx, repl)
	c.session.SwapCurrent(repl, bingo.Normalize(replCanonical))
	metrics.ObserveReplacement("current")
	c.logger.Info("current article replaced",
		zap.String("failed_title", failed),
		zap.String("replacement", repl),
		zap.String("error_kind", string(bingo.KindOf(cause))),
	)
	c.emit(events.Event{Kind: events.KindLoadFailure, Title: failed})
	return repl, true
}

// ReplaceCell substitutes a replacement title for the grid cell at
// position, preserving the slot and its matched=false state. Used by the
// host when a grid article turns out to be unloadable.
func (c *Controller) ReplaceCell(ctx context.Context, position int) (string, error) {
	snap := c.session.Snapshot()
	if position < 0 || position >= len(snap.Grid) {
		return "", fmt.Errorf("position %d out of range", position)
	}
	failed := snap.Grid[position].Title

	repl, err := c.pool.ReplacementTitle(ctx, c.session.Exclusions())
	if err != nil {
		return "", err
	}
	if err := c.session.ReplaceCell(position, repl); err != nil {
		return "", err
	}
	metrics.ObserveReplacement("cell")
	c.logger.Info("grid cell replaced",
		zap.Int("position", position),
		zap.String("failed_title", failed),
		zap.String("replacement", repl),
	)
	c.emit(events.Event{Kind: events.KindLoadFailure, Title: failed})
	return repl, nil
}

func (c *Controller) emitLoading(loading bool) {
	c.emit(events.Event{Kind: events.KindLoading, Loading: loading})
}

func (c *Controller) emit(evt events.Event) {
	if c.hub == nil {
		return
	}
	evt.GameID = c.session.ID()
	evt.TS = c.clock.Now()
	c.hub.Emit(evt)
}
