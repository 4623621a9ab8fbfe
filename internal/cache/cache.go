// Package cache implements the phase-scoped advice response cache.
//
// Two kinds of entries exist. Query entries are keyed by the normalized
// question, expire after a TTL, and are bounded in number with
// least-recently-inserted eviction. The daily tip is a singleton valid only
// for the calendar day and phase it was generated for.
//
// The cache is best-effort: backend failures are logged and reported as a
// miss on read or ignored on write.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/logging"
	"github.com/hbiui/LunaCare/internal/metrics"
)

const (
	// DefaultTTL is how long a query entry stays valid.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxEntries bounds the number of query entries.
	DefaultMaxEntries = 50
)

// Entry is one cached answer to a normalized query.
type Entry struct {
	Key       string
	Content   string
	Phase     cycle.Phase
	CreatedAt time.Time
}

// Tip is the singleton daily tip.
type Tip struct {
	Content string
	Phase   cycle.Phase
	Date    string // YYYY-MM-DD the tip was generated for
}

// Backend stores cache entries. GetEntry and GetTip return (nil, nil) when
// nothing is stored.
type Backend interface {
	GetEntry(ctx context.Context, key string) (*Entry, error)

	// PutEntry inserts or overwrites e. Before inserting it evicts the
	// least-recently-inserted entries while at least maxEntries other keys
	// remain. An overwrite counts as a fresh insertion.
	PutEntry(ctx context.Context, e Entry, maxEntries int) error

	// Keys lists query keys, least-recently-inserted first.
	Keys(ctx context.Context) ([]string, error)

	GetTip(ctx context.Context) (*Tip, error)
	PutTip(ctx context.Context, t Tip) error

	// Clear drops every query entry and the tip.
	Clear(ctx context.Context) error
}

// Cache applies TTL, phase scoping, and bounding on top of a Backend.
type Cache struct {
	backend    Backend
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTTL sets the query entry lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries sets the query entry bound. Non-positive values are ignored.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a Cache over backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend:    backend,
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns cached content for (phase, query). An empty query addresses
// the daily tip. Misses, expiry, phase mismatch, and backend errors all
// report false.
func (c *Cache) Get(ctx context.Context, phase cycle.Phase, query string) (string, bool) {
	if query == "" {
		content, ok := c.getTip(ctx, phase)
		c.metrics.ObserveCacheLookup("tip", ok)
		return content, ok
	}
	content, ok := c.getEntry(ctx, phase, query)
	c.metrics.ObserveCacheLookup("query", ok)
	return content, ok
}

func (c *Cache) getTip(ctx context.Context, phase cycle.Phase) (string, bool) {
	tip, err := c.backend.GetTip(ctx)
	if err != nil {
		c.logger.Warn("cache tip read failed", zap.Error(err))
		return "", false
	}
	if tip == nil || tip.Phase != phase || tip.Date != cycle.Today(c.now()) {
		return "", false
	}
	return tip.Content, true
}

func (c *Cache) getEntry(ctx context.Context, phase cycle.Phase, query string) (string, bool) {
	key := Normalize(query)
	if key == "" {
		return "", false
	}
	e, err := c.backend.GetEntry(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if e == nil || e.Phase != phase {
		return "", false
	}
	if c.now().Sub(e.CreatedAt) >= c.ttl {
		return "", false
	}
	return e.Content, true
}

// Put stores content for (phase, query). An empty query overwrites the
// daily tip. Backend errors are logged and otherwise ignored.
func (c *Cache) Put(ctx context.Context, content string, phase cycle.Phase, query string) {
	now := c.now()
	if query == "" {
		err := c.backend.PutTip(ctx, Tip{Content: content, Phase: phase, Date: cycle.Today(now)})
		if err != nil {
			c.logger.Warn("cache tip write failed", zap.Error(err))
		}
		return
	}

	key := Normalize(query)
	if key == "" {
		return
	}
	err := c.backend.PutEntry(ctx, Entry{
		Key:       key,
		Content:   content,
		Phase:     phase,
		CreatedAt: now,
	}, c.maxEntries)
	if err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Len reports the number of cached query entries. The daily tip is not
// counted.
func (c *Cache) Len(ctx context.Context) (int, error) {
	keys, err := c.backend.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear drops all cached advice.
func (c *Cache) Clear(ctx context.Context) error {
	return c.backend.Clear(ctx)
}
