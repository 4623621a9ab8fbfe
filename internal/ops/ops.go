// Package ops implements the cycle tracking and advice operations shared by
// the CLI, the MCP server, and the HTTP API.
package ops

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Field limits
const (
	MaxNotesChars   = 2000
	MaxMoodChars    = 32
	MaxSymptoms     = 32
	MaxSymptomChars = 20
	MaxQueryChars   = 500
)

// DefaultMood is recorded when a log is saved without one.
const DefaultMood = "Happy"

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// LogInput holds the user-editable fields of a cycle log.
type LogInput struct {
	StartDate string   `json:"start_date"`
	EndDate   *string  `json:"end_date,omitempty"`
	Flow      string   `json:"flow,omitempty"`
	Mood      string   `json:"mood,omitempty"`
	Symptoms  []string `json:"symptoms,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// buildLog validates input and returns a log with normalized fields.
// ID and timestamps are left to the caller.
func buildLog(input LogInput) (*cycle.CycleLog, error) {
	start, err := parseDateField("start_date", input.StartDate)
	if err != nil {
		return nil, err
	}

	flow, err := parseFlow(input.Flow)
	if err != nil {
		return nil, err
	}

	mood := strings.TrimSpace(input.Mood)
	if mood == "" {
		mood = DefaultMood
	}
	if utf8.RuneCountInString(mood) > MaxMoodChars {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("mood must be at most %d characters", MaxMoodChars))
	}

	symptoms := cycle.NormalizeSymptoms(input.Symptoms)
	if len(symptoms) > MaxSymptoms {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d symptoms per log", MaxSymptoms))
	}
	for _, s := range symptoms {
		if utf8.RuneCountInString(s) > MaxSymptomChars {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("symptom names must be at most %d characters", MaxSymptomChars))
		}
	}

	notes := cleanOptionalString(input.Notes)
	if notes != nil && utf8.RuneCountInString(*notes) > MaxNotesChars {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("notes must be at most %d characters", MaxNotesChars))
	}

	l := &cycle.CycleLog{
		StartDate: cycle.FormatDate(start),
		Flow:      flow,
		Mood:      mood,
		Symptoms:  symptoms,
		Notes:     notes,
	}

	if end := cleanOptionalString(input.EndDate); end != nil {
		endDate, err := parseDateField("end_date", *end)
		if err != nil {
			return nil, err
		}
		if endDate.Before(start) {
			return nil, errors.NewInvalidRequest("end_date must not be before start_date")
		}
		formatted := cycle.FormatDate(endDate)
		l.EndDate = &formatted
	}

	return l, nil
}

// parseDateField parses a required YYYY-MM-DD field.
func parseDateField(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.NewInvalidRequest(field + " is required")
	}
	t, err := cycle.ParseDate(value)
	if err != nil {
		return time.Time{}, errors.NewInvalidRequest(fmt.Sprintf("%s must be a YYYY-MM-DD date, got %q", field, value))
	}
	return t, nil
}

// parseFlow accepts flow names case-insensitively. Empty means Medium.
func parseFlow(s string) (cycle.Flow, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return cycle.FlowMedium, nil
	}
	for _, f := range []cycle.Flow{cycle.FlowLight, cycle.FlowMedium, cycle.FlowHeavy} {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", errors.NewInvalidRequest("flow must be one of: Light, Medium, Heavy")
}

// cleanOptionalString trims s and maps empty strings to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// requireID trims and checks a log ID argument.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// loadLogs returns the full log snapshot, most recent first.
func loadLogs(database *sql.DB) ([]cycle.CycleLog, error) {
	return db.ListLogs(database)
}

// nowOr returns t, or the current time when t is zero.
func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
