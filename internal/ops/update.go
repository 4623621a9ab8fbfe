package ops

import (
	"context"
	"database/sql"

	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/db"
)

// UpdateLog replaces the editable fields of an existing log.
// The log keeps its ID and created_at.
func UpdateLog(ctx context.Context, database *sql.DB, id string, input LogInput) (*cycle.CycleLog, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}

	l, err := buildLog(input)
	if err != nil {
		return nil, err
	}
	l.ID = id

	if err := db.UpdateLog(database, l); err != nil {
		return nil, err
	}

	// Re-read so the caller sees created_at as stored.
	return db.GetLog(database, id)
}
