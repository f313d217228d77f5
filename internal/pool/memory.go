// Package pool supplies replacement article titles for slots whose
// articles failed to load.
package pool

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/okriker/wikibingo/internal/bingo"
)

// ErrExhausted is returned when every pool title is excluded.
var ErrExhausted = errors.New("title pool exhausted")

// defaultTitles seeds a pool when the host supplies no candidate list.
// Broad, stable articles that are unlikely to 404. The list must stay
// comfortably larger than a full grid: when a grid is drawn from the pool,
// the leftover candidates are the only source of replacement titles.
var defaultTitles = []string{
	"Albert Einstein", "Amazon River", "Ancient Rome", "Antarctica",
	"Basketball", "Bicycle", "Black hole", "Butterfly", "Calendar",
	"Chess", "Coffee", "Democracy", "DNA", "Earthquake", "Eiffel Tower",
	"Glacier", "Gravity", "Great Wall of China", "Honey bee", "Internet",
	"Jazz", "Leonardo da Vinci", "Lighthouse", "Microscope",
	"Mount Everest", "Niagara Falls", "Ocean", "Origami", "Penicillin",
	"Photosynthesis", "Piano", "Printing press", "Railway", "Sahara",
	"Solar System", "Tea", "Telescope", "Violin", "Volcano",
	"William Shakespeare",
}

// Memory is an in-process TitlePool drawing from a fixed candidate list.
// Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	titles []string
	rng    *rand.Rand
}

// Option configures a Memory pool.
type Option func(*Memory)

// WithTitles replaces the default candidate list.
func WithTitles(titles []string) Option {
	return func(m *Memory) {
		if len(titles) > 0 {
			m.titles = append([]string(nil), titles...)
		}
	}
}

// WithSeed makes selection deterministic.
func WithSeed(seed int64) Option {
	return func(m *Memory) {
		m.rng = rand.New(rand.NewSource(seed))
	}
}

// NewMemory builds a Memory pool.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		titles: defaultTitles,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ReplacementTitle picks a random candidate whose normalized form is not in
// exclude.
func (m *Memory) ReplacementTitle(_ context.Context, exclude map[bingo.NormalizedTitle]struct{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	eligible := make([]string, 0, len(m.titles))
	for _, title := range m.titles {
		if _, excluded := exclude[bingo.Normalize(title)]; excluded {
			continue
		}
		eligible = append(eligible, title)
	}
	if len(eligible) == 0 {
		return "", ErrExhausted
	}
	return eligible[m.rng.Intn(len(eligible))], nil
}

// Size returns the number of candidate titles.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.titles)
}
