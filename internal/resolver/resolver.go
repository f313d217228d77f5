// Package resolver resolves raw article titles to their redirect-followed
// canonical form, backed by a bounded FIFO cache.
package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/cache"
	"github.com/okriker/wikibingo/internal/metrics"
)

// Config controls cache size and the resolution ceiling.
type Config struct {
	CacheCapacity int
	Timeout       time.Duration
}

const (
	defaultCacheCapacity = 200
	defaultTimeout       = 5 * time.Second
)

// Resolver implements bingo.Resolver. Resolution never fails: on timeout or
// lookup error it falls back to the normalized input and caches the
// fallback so a broken title is not looked up again for the session.
type Resolver struct {
	lookup  bingo.RedirectLookup
	cache   *cache.FIFO[bingo.NormalizedTitle, string]
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Resolver around the redirect-lookup collaborator.
func New(lookup bingo.RedirectLookup, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = defaultCacheCapacity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		lookup:  lookup,
		cache:   cache.NewFIFO[bingo.NormalizedTitle, string](cfg.CacheCapacity),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

type lookupResult struct {
	canonical string
	err       error
}

// Resolve returns the canonical title for title. The lookup is raced
// against the configured ceiling; the fallback on any failure is the
// normalized input.
func (r *Resolver) Resolve(ctx context.Context, title string) string {
	norm := bingo.Normalize(title)
	if norm == "" {
		return ""
	}
	if canonical, ok := r.cache.Get(norm); ok {
		metrics.ObserveCache("redirect", true)
		return canonical
	}
	metrics.ObserveCache("redirect", false)

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// The lookup runs in its own goroutine so a collaborator that ignores
	// context deadlines still cannot stall resolution past the ceiling.
	done := make(chan lookupResult, 1)
	go func() {
		canonical, err := r.lookup.RedirectTarget(lookupCtx, title)
		done <- lookupResult{canonical: canonical, err: err}
	}()

	canonical := string(norm)
	select {
	case <-lookupCtx.Done():
		metrics.ObserveResolveFallback()
		r.logger.Debug("redirect resolution timed out",
			zap.String("title", title),
			zap.Duration("timeout", r.timeout),
		)
	case res := <-done:
		switch {
		case res.err != nil:
			metrics.ObserveResolveFallback()
			r.logger.Debug("redirect lookup failed",
				zap.String("title", title),
				zap.Error(res.err),
			)
		case res.canonical == "":
			metrics.ObserveResolveFallback()
		default:
			canonical = res.canonical
		}
	}

	// Fallbacks are cached too, so a failing title is not re-looked-up on
	// every navigation.
	r.cache.Put(norm, canonical)
	return canonical
}

// CacheLen returns the number of cached resolutions.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}
