package cycle

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for all stored dates.
const DateLayout = "2006-01-02"

// Flow is the logged menstrual flow intensity.
type Flow string

const (
	FlowLight  Flow = "Light"
	FlowMedium Flow = "Medium"
	FlowHeavy  Flow = "Heavy"
)

// Valid reports whether f is one of the known flow values.
func (f Flow) Valid() bool {
	switch f {
	case FlowLight, FlowMedium, FlowHeavy:
		return true
	}
	return false
}

// Phase is a derived classification of the current cycle position.
// It is never stored; it is recomputed from the log snapshot on every read.
type Phase string

const (
	PhaseMenstrual  Phase = "menstrual"
	PhaseFollicular Phase = "follicular"
	PhaseOvulation  Phase = "ovulation"
	PhaseLuteal     Phase = "luteal"
	PhaseUnknown    Phase = "unknown"
)

var phaseLabels = map[Phase]string{
	PhaseMenstrual:  "月经期",
	PhaseFollicular: "卵泡期",
	PhaseOvulation:  "排卵期",
	PhaseLuteal:     "黄体期",
	PhaseUnknown:    "未知",
}

// Label returns the display label for the phase.
func (p Phase) Label() string {
	if l, ok := phaseLabels[p]; ok {
		return l
	}
	return phaseLabels[PhaseUnknown]
}

// ParsePhase parses a phase identifier (case-insensitive).
func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := phaseLabels[p]; ok {
		return p, true
	}
	return PhaseUnknown, false
}

// CycleLog is one logged period. Logs are replaced wholesale by ID, never mutated in place.
type CycleLog struct {
	// ID is a ULID that uniquely identifies this log
	ID string `json:"id"`

	// StartDate is the first day of the period (YYYY-MM-DD); anchor for all cycle math
	StartDate string `json:"start_date"`

	// EndDate is the last day of the period (nullable, should not precede StartDate)
	EndDate *string `json:"end_date,omitempty"`

	Flow Flow   `json:"flow"`
	Mood string `json:"mood"`

	// Symptoms is a de-duplicated, sorted set of symptom names
	Symptoms []string `json:"symptoms"`

	Notes *string `json:"notes,omitempty"`

	// CreatedAt is the Unix timestamp when the log was created
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix timestamp when the log was last replaced
	UpdatedAt int64 `json:"updated_at"`
}

// Start returns the parsed start date.
func (l CycleLog) Start() (time.Time, bool) {
	return parseDate(l.StartDate)
}

// End returns the parsed end date, if present and parseable.
func (l CycleLog) End() (time.Time, bool) {
	if l.EndDate == nil {
		return time.Time{}, false
	}
	return parseDate(*l.EndDate)
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func parseDate(s string) (time.Time, bool) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CalendarDate truncates t to its calendar date in its own location,
// re-anchored at UTC midnight so it compares cleanly with parsed dates.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date string of now in now's location.
func Today(now time.Time) string {
	return FormatDate(CalendarDate(now))
}

// daysBetween returns whole days from a to b (both calendar dates).
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// NormalizeSymptoms trims, de-duplicates, and sorts symptom names.
func NormalizeSymptoms(symptoms []string) []string {
	seen := make(map[string]bool, len(symptoms))
	result := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// SortDescending orders logs most recent first by start date, ties by ID descending.
func SortDescending(logs []CycleLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].StartDate != logs[j].StartDate {
			return logs[i].StartDate > logs[j].StartDate
		}
		return logs[i].ID > logs[j].ID
	})
}

// Symptom is a user-defined symptom offered alongside the built-in list.
type Symptom struct {
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	CreatedAt int64  `json:"created_at"`
}
