package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
)

type scriptedSource struct {
	mu          sync.Mutex
	lightweight []response
	full        []response
	lightCalls  int
	fullCalls   int
}

type response struct {
	body []byte
	err  error
}

func serverErr(title string) error {
	return &bingo.FetchError{Kind: bingo.ErrHTTPServer, StatusCode: 503, Title: title, Err: errors.New("unavailable")}
}

func notFoundErr(title string) error {
	return &bingo.FetchError{Kind: bingo.ErrNotFound, StatusCode: 404, Title: title, Err: errors.New("missing")}
}

func (s *scriptedSource) Lightweight(_ context.Context, title string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lightCalls++
	return s.next(&s.lightweight, title)
}

func (s *scriptedSource) Full(_ context.Context, title string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullCalls++
	return s.next(&s.full, title)
}

func (s *scriptedSource) next(script *[]response, title string) ([]byte, error) {
	if len(*script) == 0 {
		return nil, serverErr(title)
	}
	r := (*script)[0]
	*script = (*script)[1:]
	return r.body, r.err
}

func (s *scriptedSource) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lightCalls, s.fullCalls
}

func fastConfig() Config {
	return Config{RetryDelays: []time.Duration{0, time.Millisecond, 2 * time.Millisecond}}
}

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{lightweight: []response{{body: []byte("<p>ok</p>")}}}
	f := New(src, fastConfig(), zap.NewNop())

	content, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "Banana"})
	require.NoError(t, err)
	require.Equal(t, []byte("<p>ok</p>"), content.HTML)
	require.Equal(t, EndpointLightweight, content.Endpoint)
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{lightweight: []response{
		{err: serverErr("Banana")},
		{err: serverErr("Banana")},
		{body: []byte("third time")},
	}}
	f := New(src, fastConfig(), zap.NewNop())

	content, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "Banana"})
	require.NoError(t, err)
	require.Equal(t, []byte("third time"), content.HTML)

	light, full := src.counts()
	require.Equal(t, 3, light)
	require.Equal(t, 0, full)
}

func TestFetchFallsBackToFullEndpoint(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{
		lightweight: []response{
			{err: serverErr("Banana")},
			{err: serverErr("Banana")},
			{err: serverErr("Banana")},
		},
		full: []response{{body: []byte("full body")}},
	}
	f := New(src, fastConfig(), zap.NewNop())

	content, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "Banana"})
	require.NoError(t, err)
	require.Equal(t, EndpointFull, content.Endpoint)

	light, full := src.counts()
	require.Equal(t, 3, light)
	require.Equal(t, 1, full)
}

func TestFetchNotFoundSkipsRetriesAtEndpoint(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{
		lightweight: []response{{err: notFoundErr("Banana")}},
		full:        []response{{body: []byte("found via full")}},
	}
	f := New(src, fastConfig(), zap.NewNop())

	content, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "Banana"})
	require.NoError(t, err)
	require.Equal(t, []byte("found via full"), content.HTML)

	// Not-found is terminal at the lightweight endpoint: exactly one call.
	light, _ := src.counts()
	require.Equal(t, 1, light)
}

func TestFetchExhaustsBothEndpoints(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{} // every call fails with a server error
	f := New(src, fastConfig(), zap.NewNop())

	_, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "Banana"})
	require.Error(t, err)
	require.Equal(t, bingo.ErrHTTPServer, bingo.KindOf(err))

	light, full := src.counts()
	require.Equal(t, 3, light)
	require.Equal(t, 3, full)
}

func TestFetchStaleRetryDiscarded(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{lightweight: []response{
		{err: serverErr("Banana")},
		{body: []byte("never used")},
	}}
	f := New(src, fastConfig(), zap.NewNop())

	// The user navigates elsewhere after the first attempt fails, so the
	// scheduled retry must be discarded.
	stillCurrent := func() bool {
		light, _ := src.counts()
		return light == 0
	}

	_, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "Banana", StillCurrent: stillCurrent})
	require.ErrorIs(t, err, bingo.ErrStale)

	light, full := src.counts()
	require.Equal(t, 1, light)
	require.Equal(t, 0, full)
}

func TestFetchServesFromCacheOnRepeat(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{lightweight: []response{{body: []byte("cached")}}}
	f := New(src, fastConfig(), zap.NewNop())

	_, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "Banana Fruit"})
	require.NoError(t, err)

	// Formatting variants hit the same normalized cache key.
	content, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: "banana_fruit"})
	require.NoError(t, err)
	require.Equal(t, []byte("cached"), content.HTML)
	require.Equal(t, "cache", content.Endpoint)

	light, _ := src.counts()
	require.Equal(t, 1, light)
}

func TestFetchCacheBoundedAt100(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{}
	f := New(src, fastConfig(), zap.NewNop())

	for i := 0; i < 150; i++ {
		title := fmt.Sprintf("Article %d", i)
		src.mu.Lock()
		src.lightweight = []response{{body: []byte(title)}}
		src.mu.Unlock()
		_, err := f.Fetch(context.Background(), bingo.FetchRequest{Title: title})
		require.NoError(t, err)
		require.LessOrEqual(t, f.CacheLen(), 100)
	}
	require.Equal(t, 100, f.CacheLen())
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{}
	f := New(src, Config{RetryDelays: []time.Duration{0, 500 * time.Millisecond, time.Second}}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, bingo.FetchRequest{Title: "Banana"})
	require.Error(t, err)
}

var _ bingo.Fetcher = (*Fetcher)(nil)
