package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hbiui/LunaCare/internal/cycle"
)

// SQLiteBackend stores entries in the advice_cache and advice_tip tables
// created by db.Init.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend wraps an initialized database handle.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) GetEntry(ctx context.Context, key string) (*Entry, error) {
	var (
		e         Entry
		phase     string
		createdMs int64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT key, content, phase, created_at_ms FROM advice_cache WHERE key = ?`, key,
	).Scan(&e.Key, &e.Content, &phase, &createdMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	e.Phase = cycle.Phase(phase)
	e.CreatedAt = time.UnixMilli(createdMs)
	return &e, nil
}

// PutEntry evicts and inserts inside one transaction so concurrent writers
// never leave the table above its bound.
func (b *SQLiteBackend) PutEntry(ctx context.Context, e Entry, maxEntries int) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM advice_cache WHERE key = ?`, e.Key); err != nil {
		return fmt.Errorf("replace cache entry: %w", err)
	}

	if maxEntries > 0 {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM advice_cache`).Scan(&count); err != nil {
			return fmt.Errorf("count cache entries: %w", err)
		}
		if excess := count - maxEntries + 1; excess > 0 {
			_, err := tx.ExecContext(ctx, `
				DELETE FROM advice_cache WHERE key IN (
					SELECT key FROM advice_cache ORDER BY seq ASC LIMIT ?
				)`, excess)
			if err != nil {
				return fmt.Errorf("evict cache entries: %w", err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO advice_cache (key, content, phase, created_at_ms, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM advice_cache))`,
		e.Key, e.Content, string(e.Phase), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM advice_cache ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *SQLiteBackend) GetTip(ctx context.Context) (*Tip, error) {
	var (
		t     Tip
		phase string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT content, phase, date FROM advice_tip WHERE id = 1`,
	).Scan(&t.Content, &phase, &t.Date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tip: %w", err)
	}
	t.Phase = cycle.Phase(phase)
	return &t, nil
}

func (b *SQLiteBackend) PutTip(ctx context.Context, t Tip) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO advice_tip (id, content, phase, date) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, phase = excluded.phase, date = excluded.date`,
		t.Content, string(t.Phase), t.Date,
	)
	if err != nil {
		return fmt.Errorf("write tip: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Clear(ctx context.Context) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM advice_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM advice_tip`); err != nil {
		return fmt.Errorf("clear tip: %w", err)
	}
	return tx.Commit()
}

var _ Backend = (*SQLiteBackend)(nil)
