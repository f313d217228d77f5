// Package fetcher retrieves article content with per-endpoint retry and
// lightweight-to-full endpoint fallback, backed by a bounded content cache.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/cache"
	"github.com/okriker/wikibingo/internal/metrics"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointLightweight = "lightweight"
	EndpointFull        = "full"
)

// Config controls cache size and the retry schedule.
type Config struct {
	CacheCapacity int
	// RetryDelays is the wait before each attempt at an endpoint. Its
	// length is the per-endpoint attempt budget.
	RetryDelays []time.Duration
}

const defaultCacheCapacity = 100

func defaultRetryDelays() []time.Duration {
	return []time.Duration{0, time.Second, 2 * time.Second}
}

// Fetcher implements bingo.Fetcher. The attempt budget is bounded: it tries
// the lightweight endpoint up to len(RetryDelays) times (transient failures
// only), then the full endpoint under the same policy, and finally returns
// the last error. It never hangs.
type Fetcher struct {
	source bingo.ContentSource
	cache  *cache.FIFO[bingo.NormalizedTitle, []byte]
	delays []time.Duration
	logger *zap.Logger
}

// New builds a Fetcher around the content-source collaborator.
func New(source bingo.ContentSource, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = defaultCacheCapacity
	}
	if len(cfg.RetryDelays) == 0 {
		cfg.RetryDelays = defaultRetryDelays()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		source: source,
		cache:  cache.NewFIFO[bingo.NormalizedTitle, []byte](cfg.CacheCapacity),
		delays: cfg.RetryDelays,
		logger: logger,
	}
}

// Fetch retrieves content for req.Title, consulting the cache first.
func (f *Fetcher) Fetch(ctx context.Context, req bingo.FetchRequest) (bingo.Content, error) {
	norm := bingo.Normalize(req.Title)
	if html, ok := f.cache.Get(norm); ok {
		metrics.ObserveCache("content", true)
		return bingo.Content{Title: req.Title, HTML: html, Endpoint: "cache"}, nil
	}
	metrics.ObserveCache("content", false)

	endpoints := []struct {
		name string
		call func(context.Context, string) ([]byte, error)
	}{
		{EndpointLightweight, f.source.Lightweight},
		{EndpointFull, f.source.Full},
	}

	var lastErr error
	for _, ep := range endpoints {
		content, err := f.fetchEndpoint(ctx, ep.name, ep.call, req)
		if err == nil {
			f.cache.Put(norm, content.HTML)
			return content, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, bingo.ErrStale) {
			return bingo.Content{}, err
		}
		f.logger.Debug("endpoint exhausted",
			zap.String("endpoint", ep.name),
			zap.String("title", req.Title),
			zap.Error(err),
		)
	}
	return bingo.Content{}, fmt.Errorf("all endpoints exhausted for %q: %w", req.Title, lastErr)
}

func (f *Fetcher) fetchEndpoint(
	ctx context.Context,
	name string,
	call func(context.Context, string) ([]byte, error),
	req bingo.FetchRequest,
) (bingo.Content, error) {
	var lastErr error
	for attempt := 0; attempt < len(f.delays); attempt++ {
		if delay := f.delays[attempt]; delay > 0 {
			metrics.ObserveFetchRetry()
			if err := pause(ctx, delay); err != nil {
				return bingo.Content{}, err
			}
		}
		// A scheduled retry whose target is no longer the live navigation
		// target is discarded, not applied.
		if req.StillCurrent != nil && !req.StillCurrent() {
			return bingo.Content{}, bingo.ErrStale
		}

		start := time.Now()
		body, err := call(ctx, req.Title)
		dur := time.Since(start)
		if err == nil {
			metrics.ObserveFetchAttempt(name, "ok", dur)
			return bingo.Content{
				Title:    req.Title,
				HTML:     body,
				Endpoint: name,
				Duration: dur,
			}, nil
		}
		metrics.ObserveFetchAttempt(name, string(bingo.KindOf(err)), dur)
		lastErr = err
		if !bingo.IsTransient(err) {
			break
		}
		f.logger.Debug("transient fetch failure",
			zap.String("endpoint", name),
			zap.String("title", req.Title),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return bingo.Content{}, lastErr
}

// CacheLen returns the number of cached payloads.
func (f *Fetcher) CacheLen() int {
	return f.cache.Len()
}

func pause(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled during backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
