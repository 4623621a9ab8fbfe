package ops

import (
	"context"
	"database/sql"

	"github.com/hbiui/LunaCare/internal/db"
)

// DeleteOutput contains the result of the DeleteLog operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteLog permanently removes a cycle log.
func DeleteLog(ctx context.Context, database *sql.DB, id string) (*DeleteOutput, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}

	if err := db.DeleteLog(database, id); err != nil {
		return nil, err
	}

	return &DeleteOutput{
		Deleted: true,
		ID:      id,
	}, nil
}
