package cycle

import (
	"math"
	"time"
)

const (
	// DefaultCycleLength is used when fewer than two usable logs exist.
	DefaultCycleLength = 28

	// maxAverageGaps bounds how many recent start-date gaps feed the average.
	maxAverageGaps = 3
)

// Phase thresholds on the 1-based cycle day. Fixed heuristics, not personalized.
const (
	MenstrualLastDay  = 5
	FollicularLastDay = 13
	OvulationLastDay  = 15
)

// datedLog pairs a log with its parsed start date.
type datedLog struct {
	log   CycleLog
	start time.Time
}

// dated drops logs whose start date does not parse, preserving order.
func dated(logs []CycleLog) []datedLog {
	result := make([]datedLog, 0, len(logs))
	for _, l := range logs {
		if start, ok := l.Start(); ok {
			result = append(result, datedLog{log: l, start: start})
		}
	}
	return result
}

// recentGaps returns up to maxAverageGaps consecutive start-date gaps,
// most recent first, for logs given in descending order.
func recentGaps(logs []CycleLog) []int {
	d := dated(logs)
	n := min(len(d)-1, maxAverageGaps)
	if n <= 0 {
		return nil
	}
	gaps := make([]int, 0, n)
	for i := 0; i < n; i++ {
		gaps = append(gaps, daysBetween(d[i+1].start, d[i].start))
	}
	return gaps
}

// roundHalfUp rounds x to the nearest integer, halves rounding up.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// AverageCycleLength averages the most recent start-date gaps.
// Returns DefaultCycleLength when fewer than two usable logs exist.
func AverageCycleLength(logs []CycleLog) int {
	gaps := recentGaps(logs)
	if len(gaps) == 0 {
		return DefaultCycleLength
	}
	total := 0
	for _, g := range gaps {
		total += g
	}
	return roundHalfUp(float64(total) / float64(len(gaps)))
}

// PhaseForDay classifies a 1-based cycle day.
func PhaseForDay(day int) Phase {
	switch {
	case day <= 0:
		return PhaseUnknown
	case day <= MenstrualLastDay:
		return PhaseMenstrual
	case day <= FollicularLastDay:
		return PhaseFollicular
	case day <= OvulationLastDay:
		return PhaseOvulation
	default:
		return PhaseLuteal
	}
}

// CycleDay returns the 1-based day in cycle for a start date, evaluated on
// calendar dates in now's location. The start date itself is day 1 at any
// time of day. A start date in the future counts the same distance forward.
func CycleDay(start, now time.Time) int {
	diff := daysBetween(start, CalendarDate(now))
	if diff < 0 {
		diff = -diff
	}
	return diff + 1
}

// PhaseAndDay derives the current phase and cycle day from the most recent log.
// Empty input (or no parseable start date) yields (PhaseUnknown, 0).
func PhaseAndDay(logs []CycleLog, now time.Time) (Phase, int) {
	d := dated(logs)
	if len(d) == 0 {
		return PhaseUnknown, 0
	}
	day := CycleDay(d[0].start, now)
	return PhaseForDay(day), day
}

// PredictNext predicts the next period start date.
// Requires the most recent log to be a completed period (has an end date).
// The prediction is suppressed when a log already starts on the predicted date.
func PredictNext(logs []CycleLog) (string, bool) {
	d := dated(logs)
	if len(d) == 0 {
		return "", false
	}
	latest := d[0]
	if latest.log.EndDate == nil || *latest.log.EndDate == "" {
		return "", false
	}

	next := FormatDate(latest.start.AddDate(0, 0, AverageCycleLength(logs)))
	for _, l := range logs {
		if l.StartDate == next {
			return "", false
		}
	}
	return next, true
}

// ActiveLogForDate returns the first log, in list order, whose
// [start, end] interval contains date. A missing, unparseable, or inverted
// end date collapses the interval to the start date alone.
func ActiveLogForDate(logs []CycleLog, date string) (*CycleLog, bool) {
	day, ok := parseDate(date)
	if !ok {
		return nil, false
	}
	for i := range logs {
		start, ok := logs[i].Start()
		if !ok {
			continue
		}
		end, ok := logs[i].End()
		if !ok || end.Before(start) {
			end = start
		}
		if !day.Before(start) && !day.After(end) {
			return &logs[i], true
		}
	}
	return nil, false
}
