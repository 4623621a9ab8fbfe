package ops

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hbiui/LunaCare/internal/config"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // abort on any problem; nothing is written
	ImportModeReplace ImportMode = "replace" // overwrite logs with the same ID
	ImportModeRename  ImportMode = "rename"  // give colliding logs a new ID
)

// Import error codes.
const (
	ImportCodeParse         = "PARSE_ERROR"
	ImportCodeInvalidRecord = "INVALID_RECORD"
	ImportCodeIDCollision   = "ID_COLLISION"
	ImportCodeNameCollision = "NAME_COLLISION"
	ImportCodeRead          = "READ_ERROR"
)

// maxImportLine bounds a single JSONL line (notes are capped well below this).
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type parsedRecord struct {
	line int
	ExportRecord
}

// Import restores logs and custom symptoms from a backup file written by
// Export. Every record is validated the same way as user input.
//
// In error mode the import is all-or-nothing: unparseable lines or the first
// collision are reported and nothing is written. The other modes write what they can and
// report the rest as skipped. Custom symptoms that already exist are kept.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.LunaError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(bufio.NewScanner(file))

	out := &ImportOutput{Errors: []ImportError{}}
	if len(parseErrors) > 0 {
		if input.Mode == ImportModeError {
			out.Errors = parseErrors
			return out, nil
		}
		out.Errors = append(out.Errors, parseErrors...)
		out.Skipped += len(parseErrors)
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Unix()
	for _, rec := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		ierr, err := importRecord(tx, rec, input.Mode, now)
		if err != nil {
			return nil, err
		}
		if ierr != nil {
			if input.Mode == ImportModeError {
				return &ImportOutput{Errors: []ImportError{*ierr}}, nil
			}
			out.Errors = append(out.Errors, *ierr)
			out.Skipped++
			continue
		}
		out.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// parseExportFile reads every line, skipping the header. Lines that are not
// valid records are returned as errors.
func parseExportFile(scanner *bufio.Scanner) ([]parsedRecord, []ImportError) {
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	var records []parsedRecord
	var parseErrors []ImportError
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec ExportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    ImportCodeParse,
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if rec.LunaCareExport {
			continue
		}

		switch {
		case rec.Type == RecordTypeLog && rec.Log != nil && rec.Log.ID != "":
		case rec.Type == RecordTypeSymptom && rec.Symptom != nil:
		default:
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    ImportCodeInvalidRecord,
				Message: fmt.Sprintf("unrecognized record (type %q)", rec.Type),
			})
			continue
		}
		records = append(records, parsedRecord{line: lineNum, ExportRecord: rec})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    ImportCodeRead,
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return records, parseErrors
}

// importRecord writes one record. A non-nil ImportError means the record was
// rejected; a non-nil error aborts the whole import.
func importRecord(q db.Querier, rec parsedRecord, mode ImportMode, now int64) (*ImportError, error) {
	if rec.Type == RecordTypeSymptom {
		return importSymptom(q, rec, mode, now)
	}
	return importLog(q, rec, mode, now)
}

func importLog(q db.Querier, rec parsedRecord, mode ImportMode, now int64) (*ImportError, error) {
	src := rec.Log
	reject := func(code, msg string) (*ImportError, error) {
		return &ImportError{Line: rec.line, ID: src.ID, Code: code, Message: msg}, nil
	}

	l, err := buildLog(LogInput{
		StartDate: src.StartDate,
		EndDate:   src.EndDate,
		Flow:      string(src.Flow),
		Mood:      src.Mood,
		Symptoms:  src.Symptoms,
		Notes:     src.Notes,
	})
	if err != nil {
		return reject(ImportCodeInvalidRecord, err.Error())
	}
	l.ID = src.ID
	l.CreatedAt = src.CreatedAt
	l.UpdatedAt = src.UpdatedAt
	if l.CreatedAt == 0 {
		l.CreatedAt = now
	}
	if l.UpdatedAt == 0 {
		l.UpdatedAt = l.CreatedAt
	}

	_, err = db.GetLog(q, l.ID)
	switch {
	case err == nil:
		// collision, handled below
	case errors.Is(err, errors.ErrNotFound):
		return nil, db.InsertLog(q, l)
	default:
		return nil, err
	}

	switch mode {
	case ImportModeReplace:
		return nil, db.UpsertLog(q, l)
	case ImportModeRename:
		id, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		l.ID = id
		return nil, db.InsertLog(q, l)
	default:
		return reject(ImportCodeIDCollision, fmt.Sprintf("log %s already exists", l.ID))
	}
}

func importSymptom(q db.Querier, rec parsedRecord, mode ImportMode, now int64) (*ImportError, error) {
	s := *rec.Symptom
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return &ImportError{Line: rec.line, Code: ImportCodeInvalidRecord, Message: "symptom name is required"}, nil
	}
	if strings.TrimSpace(s.Emoji) == "" {
		s.Emoji = DefaultSymptomEmoji
	}
	if s.CreatedAt == 0 {
		s.CreatedAt = now
	}

	err := db.InsertSymptom(q, &s)
	if err == db.ErrUniqueConstraint {
		if mode == ImportModeError {
			return &ImportError{
				Line:    rec.line,
				Name:    s.Name,
				Code:    ImportCodeNameCollision,
				Message: fmt.Sprintf("symptom %q already exists", s.Name),
			}, nil
		}
		// The existing symptom wins; nothing to report.
		return nil, nil
	}
	return nil, err
}
