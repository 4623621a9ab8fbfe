package db

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.LunaError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const logColumns = `id, start_date, end_date, flow, mood, symptoms_json, notes, created_at, updated_at`

// InsertLog stores a new cycle log.
func InsertLog(q Querier, l *cycle.CycleLog) error {
	symptomsJSON, err := encodeSymptoms(l.Symptoms)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO cycle_logs (` + logColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.Exec(query,
		l.ID, l.StartDate, toNullString(l.EndDate), string(l.Flow), l.Mood,
		symptomsJSON, toNullString(l.Notes), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetLog retrieves a cycle log by its ULID.
func GetLog(q Querier, id string) (*cycle.CycleLog, error) {
	row := q.QueryRow(`SELECT `+logColumns+` FROM cycle_logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return l, nil
}

// UpdateLog replaces every mutable field of an existing log.
// Sets updated_at to current timestamp. Does NOT change: id, created_at.
func UpdateLog(q Querier, l *cycle.CycleLog) error {
	symptomsJSON, err := encodeSymptoms(l.Symptoms)
	if err != nil {
		return errors.NewInternal(err)
	}

	now := time.Now().Unix()

	query := `
		UPDATE cycle_logs
		SET start_date = ?, end_date = ?, flow = ?, mood = ?,
			symptoms_json = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := q.Exec(query,
		l.StartDate, toNullString(l.EndDate), string(l.Flow), l.Mood,
		symptomsJSON, toNullString(l.Notes), now,
		l.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(l.ID)
	}

	l.UpdatedAt = now
	return nil
}

// UpsertLog inserts l or, when its ID exists, replaces it keeping the stored created_at.
func UpsertLog(q Querier, l *cycle.CycleLog) error {
	symptomsJSON, err := encodeSymptoms(l.Symptoms)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO cycle_logs (` + logColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date, end_date = excluded.end_date,
			flow = excluded.flow, mood = excluded.mood,
			symptoms_json = excluded.symptoms_json, notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	_, err = q.Exec(query,
		l.ID, l.StartDate, toNullString(l.EndDate), string(l.Flow), l.Mood,
		symptomsJSON, toNullString(l.Notes), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteLog permanently removes a log.
func DeleteLog(q Querier, id string) error {
	result, err := q.Exec(`DELETE FROM cycle_logs WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// ListLogs returns every log, most recent start date first.
// Ties are broken by id descending so the order is stable.
func ListLogs(q Querier) ([]cycle.CycleLog, error) {
	rows, err := q.Query(`SELECT ` + logColumns + ` FROM cycle_logs ORDER BY start_date DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	logs := []cycle.CycleLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return logs, nil
}

// CountLogs returns the number of stored logs.
func CountLogs(q Querier) (int, error) {
	var n int
	if err := q.QueryRow(`SELECT COUNT(*) FROM cycle_logs`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ClearLogs deletes every log and returns how many were removed.
func ClearLogs(q Querier) (int64, error) {
	result, err := q.Exec(`DELETE FROM cycle_logs`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// InsertSymptom stores a custom symptom. Names are unique.
func InsertSymptom(q Querier, s *cycle.Symptom) error {
	_, err := q.Exec(
		`INSERT INTO custom_symptoms (name, emoji, created_at) VALUES (?, ?, ?)`,
		s.Name, s.Emoji, s.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteSymptom removes a custom symptom by name.
func DeleteSymptom(q Querier, name string) error {
	result, err := q.Exec(`DELETE FROM custom_symptoms WHERE name = ?`, name)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return &errors.LunaError{
			Code:    errors.ErrNotFound,
			Status:  404,
			Message: "symptom not found: " + name,
			Details: map[string]any{"name": name},
		}
	}
	return nil
}

// ListSymptoms returns custom symptoms in creation order.
func ListSymptoms(q Querier) ([]cycle.Symptom, error) {
	rows, err := q.Query(`SELECT name, emoji, created_at FROM custom_symptoms ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	symptoms := []cycle.Symptom{}
	for rows.Next() {
		var s cycle.Symptom
		if err := rows.Scan(&s.Name, &s.Emoji, &s.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		symptoms = append(symptoms, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return symptoms, nil
}

// ClearSymptoms deletes every custom symptom.
func ClearSymptoms(q Querier) error {
	if _, err := q.Exec(`DELETE FROM custom_symptoms`); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLog scans a single row into a CycleLog.
func scanLog(row rowScanner) (*cycle.CycleLog, error) {
	var (
		l            cycle.CycleLog
		flow         string
		endDate      sql.NullString
		symptomsJSON sql.NullString
		notes        sql.NullString
	)

	err := row.Scan(
		&l.ID, &l.StartDate, &endDate, &flow, &l.Mood,
		&symptomsJSON, &notes, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Flow = cycle.Flow(flow)
	l.EndDate = fromNullString(endDate)
	l.Notes = fromNullString(notes)

	l.Symptoms = []string{}
	if symptomsJSON.Valid && symptomsJSON.String != "" {
		if err := json.Unmarshal([]byte(symptomsJSON.String), &l.Symptoms); err != nil {
			return nil, err
		}
	}

	return &l, nil
}

// encodeSymptoms stores an empty set as NULL.
func encodeSymptoms(symptoms []string) (sql.NullString, error) {
	if len(symptoms) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(symptoms)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
