package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hbiui/LunaCare/internal/advisor"
	"github.com/hbiui/LunaCare/internal/cycle"
)

// AverageCycleOutput contains the result of the AverageCycle operation.
type AverageCycleOutput struct {
	AverageCycleLength int  `json:"average_cycle_length"`
	LogCount           int  `json:"log_count"`
	IsDefault          bool `json:"is_default"` // fewer than two usable logs
}

// AverageCycle reports the average cycle length over the recent history.
func AverageCycle(ctx context.Context, database *sql.DB) (*AverageCycleOutput, error) {
	logs, err := loadLogs(database)
	if err != nil {
		return nil, err
	}
	return averageCycle(logs), nil
}

func averageCycle(logs []cycle.CycleLog) *AverageCycleOutput {
	usable := 0
	for _, l := range logs {
		if _, ok := l.Start(); ok {
			usable++
		}
	}
	return &AverageCycleOutput{
		AverageCycleLength: cycle.AverageCycleLength(logs),
		LogCount:           len(logs),
		IsDefault:          usable < 2,
	}
}

// StatusInput contains parameters for the Status operation.
type StatusInput struct {
	Now time.Time // default: current time
}

// StatusOutput describes where the user is in the current cycle.
type StatusOutput struct {
	Date               string              `json:"date"`
	Phase              cycle.Phase         `json:"phase"`
	PhaseLabel         string              `json:"phase_label"`
	CycleDay           int                 `json:"cycle_day"`
	AverageCycleLength int                 `json:"average_cycle_length"`
	NextPeriod         *string             `json:"next_period,omitempty"`
	DaysUntilNext      *int                `json:"days_until_next,omitempty"`
	TodayLog           *cycle.CycleLog     `json:"today_log,omitempty"`
	Suggestions        advisor.Suggestions `json:"suggestions"`
}

// Status derives the current phase and cycle day, the next predicted period,
// and the log covering today, if any.
func Status(ctx context.Context, database *sql.DB, input StatusInput) (*StatusOutput, error) {
	logs, err := loadLogs(database)
	if err != nil {
		return nil, err
	}
	return status(logs, nowOr(input.Now)), nil
}

func status(logs []cycle.CycleLog, now time.Time) *StatusOutput {
	phase, day := cycle.PhaseAndDay(logs, now)
	today := cycle.Today(now)

	out := &StatusOutput{
		Date:               today,
		Phase:              phase,
		PhaseLabel:         phase.Label(),
		CycleDay:           day,
		AverageCycleLength: cycle.AverageCycleLength(logs),
		Suggestions:        advisor.SuggestionsFor(phase, len(logs) > 0),
	}

	if next, ok := cycle.PredictNext(logs); ok {
		out.NextPeriod = &next
		if d, ok := daysUntil(today, next); ok {
			out.DaysUntilNext = &d
		}
	}
	if l, ok := cycle.ActiveLogForDate(logs, today); ok {
		out.TodayLog = l
	}
	return out
}

// daysUntil returns whole days from one calendar date to another.
func daysUntil(from, to string) (int, bool) {
	a, err := cycle.ParseDate(from)
	if err != nil {
		return 0, false
	}
	b, err := cycle.ParseDate(to)
	if err != nil {
		return 0, false
	}
	return int(b.Sub(a).Hours() / 24), true
}

// PredictOutput contains the result of the PredictNext operation.
type PredictOutput struct {
	NextPeriod         *string `json:"next_period"`
	AverageCycleLength int     `json:"average_cycle_length"`
	Reason             string  `json:"reason,omitempty"` // set when there is no prediction
}

// PredictNext predicts the next period start date.
func PredictNext(ctx context.Context, database *sql.DB) (*PredictOutput, error) {
	logs, err := loadLogs(database)
	if err != nil {
		return nil, err
	}

	out := &PredictOutput{AverageCycleLength: cycle.AverageCycleLength(logs)}
	next, ok := cycle.PredictNext(logs)
	switch {
	case ok:
		out.NextPeriod = &next
	case len(logs) == 0:
		out.Reason = "no logs recorded"
	case logs[0].EndDate == nil || *logs[0].EndDate == "":
		out.Reason = "most recent period has no end date"
	default:
		out.Reason = "a log already starts on the predicted date"
	}
	return out, nil
}

// Stats summarizes the log history for trend views.
func Stats(ctx context.Context, database *sql.DB) (*cycle.Stats, error) {
	logs, err := loadLogs(database)
	if err != nil {
		return nil, err
	}
	s := cycle.Summarize(logs)
	return &s, nil
}
