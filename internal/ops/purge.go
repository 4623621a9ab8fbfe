package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hbiui/LunaCare/internal/cache"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/errors"
)

// ClearOutput contains the result of the ClearAll operation.
type ClearOutput struct {
	LogsDeleted         int    `json:"logs_deleted"`
	CacheEntriesCleared int    `json:"cache_entries_cleared"`
	Message             string `json:"message"`
}

// ClearAll deletes every log and custom symptom, then drops cached advice.
// Logs and symptoms are removed in one transaction.
func ClearAll(ctx context.Context, database *sql.DB, c *cache.Cache) (*ClearOutput, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	count, err := db.ClearLogs(tx)
	if err != nil {
		return nil, err
	}
	if err := db.ClearSymptoms(tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	cleared := 0
	if c != nil {
		if n, err := c.Len(ctx); err == nil {
			cleared = n
		}
		if err := c.Clear(ctx); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to clear advice cache: %w", err))
		}
	}

	return &ClearOutput{
		LogsDeleted:         int(count),
		CacheEntriesCleared: cleared,
		Message:             formatClearMessage(int(count)),
	}, nil
}

// formatClearMessage creates a human-readable message for the clear result.
func formatClearMessage(count int) string {
	if count == 0 {
		return "No logs to delete; cached advice and custom symptoms cleared"
	}

	logWord := "log"
	if count > 1 {
		logWord = "logs"
	}
	return fmt.Sprintf("Permanently deleted %d %s along with custom symptoms and cached advice", count, logWord)
}
