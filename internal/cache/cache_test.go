package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/db"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// backends has one factory per Backend implementation.
var backends = map[string]func(t *testing.T) Backend{
	"memory": func(*testing.T) Backend { return NewMemoryBackend() },
	"sqlite": func(t *testing.T) Backend {
		database, err := db.Init(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		return NewSQLiteBackend(database)
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestCache_PutThenGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		c := New(b)

		c.Put(ctx, "多喝温水，注意保暖。", cycle.PhaseMenstrual, "痛经怎么办")

		got, ok := c.Get(ctx, cycle.PhaseMenstrual, "痛经怎么办")
		require.True(t, ok)
		assert.Equal(t, "多喝温水，注意保暖。", got)

		_, ok = c.Get(ctx, cycle.PhaseLuteal, "痛经怎么办")
		assert.False(t, ok, "different phase must miss")
	})
}

func TestCache_NormalizedKeysShareEntry(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		c := New(b)

		c.Put(ctx, "answer", cycle.PhaseMenstrual, "痛经？")
		for _, q := range []string{"痛经", "  痛经  ", "痛经!"} {
			got, ok := c.Get(ctx, cycle.PhaseMenstrual, q)
			require.True(t, ok, q)
			assert.Equal(t, "answer", got)
		}
	})
}

func TestCache_TTL(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

		clock := &fakeClock{t: start}
		c := New(b, WithClock(clock.Now))
		c.Put(ctx, "fresh", cycle.PhaseFollicular, "can i run")

		clock.Advance(23 * time.Hour)
		_, ok := c.Get(ctx, cycle.PhaseFollicular, "can i run")
		assert.True(t, ok, "23h old entry should hit")

		clock.Advance(2 * time.Hour)
		_, ok = c.Get(ctx, cycle.PhaseFollicular, "can i run")
		assert.False(t, ok, "25h old entry should miss")
	})
}

func TestCache_TTLBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := New(NewMemoryBackend(), WithClock(clock.Now))

	c.Put(ctx, "x", cycle.PhaseLuteal, "q")
	clock.Advance(DefaultTTL)
	_, ok := c.Get(ctx, cycle.PhaseLuteal, "q")
	assert.False(t, ok)
}

func TestCache_DailyTip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
		c := New(b, WithClock(clock.Now))

		_, ok := c.Get(ctx, cycle.PhaseMenstrual, "")
		assert.False(t, ok)

		c.Put(ctx, "今天多休息", cycle.PhaseMenstrual, "")

		got, ok := c.Get(ctx, cycle.PhaseMenstrual, "")
		require.True(t, ok)
		assert.Equal(t, "今天多休息", got)

		_, ok = c.Get(ctx, cycle.PhaseLuteal, "")
		assert.False(t, ok, "tip for another phase must miss on the same day")

		clock.Advance(20 * time.Hour) // 2024-03-02 04:00
		_, ok = c.Get(ctx, cycle.PhaseMenstrual, "")
		assert.False(t, ok, "tip from yesterday must miss")

		c.Put(ctx, "新的一天", cycle.PhaseMenstrual, "")
		got, ok = c.Get(ctx, cycle.PhaseMenstrual, "")
		require.True(t, ok)
		assert.Equal(t, "新的一天", got)
	})
}

func TestCache_TipAndQueriesAreIndependent(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend())

	c.Put(ctx, "tip", cycle.PhaseOvulation, "")
	_, ok := c.Get(ctx, cycle.PhaseOvulation, "tip")
	assert.False(t, ok)

	c.Put(ctx, "answer", cycle.PhaseOvulation, "question")
	got, ok := c.Get(ctx, cycle.PhaseOvulation, "")
	require.True(t, ok)
	assert.Equal(t, "tip", got)
}

func TestCache_EvictsLeastRecentlyInserted(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		c := New(b, WithMaxEntries(3))

		c.Put(ctx, "1", cycle.PhaseLuteal, "q1")
		c.Put(ctx, "2", cycle.PhaseLuteal, "q2")
		c.Put(ctx, "3", cycle.PhaseLuteal, "q3")
		// Overwriting re-stamps q1 as the newest insertion.
		c.Put(ctx, "1b", cycle.PhaseLuteal, "q1")
		c.Put(ctx, "4", cycle.PhaseLuteal, "q4")

		keys, err := b.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"q3", "q1", "q4"}, keys)

		_, ok := c.Get(ctx, cycle.PhaseLuteal, "q2")
		assert.False(t, ok)
		got, ok := c.Get(ctx, cycle.PhaseLuteal, "q1")
		require.True(t, ok)
		assert.Equal(t, "1b", got)
	})
}

func TestCache_DefaultBound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		c := New(b)

		for i := 0; i < DefaultMaxEntries+5; i++ {
			c.Put(ctx, "x", cycle.PhaseLuteal, fmt.Sprintf("question %d", i))
		}

		keys, err := b.Keys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, DefaultMaxEntries)
		assert.Equal(t, "question 5", keys[0])
	})
}

func TestCache_EmptyNormalizedKeyIsIgnored(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	c := New(b)

	c.Put(ctx, "x", cycle.PhaseLuteal, "？？")
	keys, _ := b.Keys(ctx)
	assert.Empty(t, keys)

	_, ok := c.Get(ctx, cycle.PhaseLuteal, "？？")
	assert.False(t, ok)
}

func TestCache_Len(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		c := New(b)

		n, err := c.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		c.Put(ctx, "a", cycle.PhaseLuteal, "q1")
		c.Put(ctx, "b", cycle.PhaseLuteal, "q2")
		c.Put(ctx, "tip", cycle.PhaseLuteal, "")

		n, err = c.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "the daily tip is not a query entry")
	})
}

func TestCache_Clear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		c := New(b)

		c.Put(ctx, "a", cycle.PhaseLuteal, "q")
		c.Put(ctx, "tip", cycle.PhaseLuteal, "")
		require.NoError(t, c.Clear(ctx))

		_, ok := c.Get(ctx, cycle.PhaseLuteal, "q")
		assert.False(t, ok)
		_, ok = c.Get(ctx, cycle.PhaseLuteal, "")
		assert.False(t, ok)
	})
}

// brokenBackend fails every call.
type brokenBackend struct{}

var errBroken = fmt.Errorf("storage unavailable")

func (brokenBackend) GetEntry(context.Context, string) (*Entry, error) { return nil, errBroken }
func (brokenBackend) PutEntry(context.Context, Entry, int) error { return errBroken }
func (brokenBackend) Keys(context.Context) ([]string, error) { return nil, errBroken }
func (brokenBackend) GetTip(context.Context) (*Tip, error) { return nil, errBroken }
func (brokenBackend) PutTip(context.Context, Tip) error { return errBroken }
func (brokenBackend) Clear(context.Context) error { return errBroken }

func TestCache_BackendFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(brokenBackend{}, WithLogger(zap.New(core)))

	c.Put(ctx, "x", cycle.PhaseLuteal, "q")
	c.Put(ctx, "x", cycle.PhaseLuteal, "")

	_, ok := c.Get(ctx, cycle.PhaseLuteal, "q")
	assert.False(t, ok)
	_, ok = c.Get(ctx, cycle.PhaseLuteal, "")
	assert.False(t, ok)

	assert.Equal(t, 4, logs.Len())
}

func TestSQLiteBackend_CorruptRowIsMiss(t *testing.T) {
	ctx := context.Background()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec(`INSERT INTO advice_cache (key, content, phase, created_at_ms, seq) VALUES ('q', 'x', 'luteal', 'not-a-number', 1)`)
	require.NoError(t, err)

	c := New(NewSQLiteBackend(database))
	_, ok := c.Get(ctx, cycle.PhaseLuteal, "q")
	assert.False(t, ok)
}
