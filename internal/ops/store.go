package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/errors"
)

// AddLog validates input and stores a new cycle log under a fresh ULID.
func AddLog(ctx context.Context, database *sql.DB, input LogInput) (*cycle.CycleLog, error) {
	l, err := buildLog(input)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()
	l.ID = id
	l.CreatedAt = now
	l.UpdatedAt = now

	if err := db.InsertLog(database, l); err != nil {
		return nil, err
	}
	return l, nil
}
