package ops

import (
	"context"
	"database/sql"

	"github.com/hbiui/LunaCare/internal/cycle"
)

// ListInput contains parameters for the ListLogs operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListOutput contains the result of the ListLogs operation.
type ListOutput struct {
	Items      []cycle.CycleLog `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// ListLogs returns a page of logs, most recent start date first.
func ListLogs(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	logs, err := loadLogs(database)
	if err != nil {
		return nil, err
	}
	total := len(logs)

	items := []cycle.CycleLog{}
	if offset < total {
		items = logs[offset:min(offset+limit, total)]
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "start_date_desc",
	}, nil
}
