package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hbiui/LunaCare/internal/config"
	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/errors"
)

// ExportSchemaVersion is written to the header of every backup file.
const ExportSchemaVersion = "1.0"

// Record types in a backup file.
const (
	RecordTypeLog     = "log"
	RecordTypeSymptom = "symptom"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path  string // optional, default: ~/.lunacare/exports/<label>-<timestamp>.jsonl
	Label string // optional file name prefix for the default path, default: lunacare
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Logs       int    `json:"logs"`
	Symptoms   int    `json:"symptoms"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a backup file.
type ExportHeader struct {
	LunaCareExport bool   `json:"_lunacare_export"`
	SchemaVersion  string `json:"schema_version"`
	ExportedAt     int64  `json:"exported_at"`
}

// ExportRecord is one data line of a backup file. Exactly one of Log and
// Symptom is set, matching Type.
type ExportRecord struct {
	LunaCareExport bool            `json:"_lunacare_export,omitempty"`
	Type           string          `json:"type"`
	Log            *cycle.CycleLog `json:"log,omitempty"`
	Symptom        *cycle.Symptom  `json:"symptom,omitempty"`
}

// Export writes all logs and custom symptoms to a JSONL backup file. The file
// is written to a temporary name and renamed into place, so an existing backup
// at the same path survives a failed export.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(input.Label, now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	// Snapshot before touching the filesystem.
	symptoms, err := db.ListSymptoms(database)
	if err != nil {
		return nil, err
	}
	logs, err := db.ListLogs(database)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(ExportHeader{
		LunaCareExport: true,
		SchemaVersion:  ExportSchemaVersion,
		ExportedAt:     now.Unix(),
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	for i := range symptoms {
		if err := enc.Encode(ExportRecord{Type: RecordTypeSymptom, Symptom: &symptoms[i]}); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	for i := range logs {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		if err := enc.Encode(ExportRecord{Type: RecordTypeLog, Log: &logs[i]}); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename; Windows refuses to rename open files.
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if isSymlink(exportPath) {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows os.Rename fails when the destination exists; the existing
	// backup is kept rather than risking a delete-then-rename.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Logs:       len(logs),
		Symptoms:   len(symptoms),
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportPath returns ~/.lunacare/exports/<label>-<timestamp>.jsonl.
func defaultExportPath(label string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := "lunacare"
	if label != "" {
		name = SanitizeForFilename(label)
	}
	filename := fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))
	return filepath.Join(dir, filename), nil
}
