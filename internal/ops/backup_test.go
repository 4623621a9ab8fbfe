package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hbiui/LunaCare/internal/config"
	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/errors"
)

// backupConfig allows backups directly in dir.
func backupConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

func writeBackup(t *testing.T, path string, lines ...any) {
	t.Helper()
	var b strings.Builder
	header, _ := json.Marshal(ExportHeader{LunaCareExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: 1})
	b.Write(header)
	b.WriteByte('\n')
	for _, l := range lines {
		if s, ok := l.(string); ok {
			b.WriteString(s)
		} else {
			data, err := json.Marshal(l)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			b.Write(data)
		}
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		t.Fatalf("write backup: %v", err)
	}
}

func logRecord(l cycle.CycleLog) ExportRecord {
	return ExportRecord{Type: RecordTypeLog, Log: &l}
}

func TestExport_WritesHeaderAndRecords(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	addPeriod(t, database, "2024-02-01", 5)
	addPeriod(t, database, "2024-03-01", 4)
	if _, err := AddSymptom(ctx, database, SymptomInput{Name: "嗜睡", Emoji: "😴"}); err != nil {
		t.Fatalf("AddSymptom failed: %v", err)
	}

	path := filepath.Join(dir, "backup.jsonl")
	out, err := Export(ctx, database, backupConfig(dir), ExportInput{Path: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Path != path || out.Logs != 2 || out.Symptoms != 1 {
		t.Errorf("output = %+v", out)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 records", len(lines))
	}

	var header ExportHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header: %v", err)
	}
	if !header.LunaCareExport || header.SchemaVersion != ExportSchemaVersion || header.ExportedAt != out.ExportedAt {
		t.Errorf("header = %+v", header)
	}
	if !strings.Contains(lines[1], `"type":"symptom"`) || !strings.Contains(lines[1], "😴") {
		t.Errorf("symptom line = %s", lines[1])
	}
	if !strings.Contains(lines[2], `"start_date":"2024-03-01"`) {
		t.Errorf("logs should follow most recent first, got %s", lines[2])
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("file mode = %o, want 600", perm)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home directory override relies on HOME")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	database := newTestDB(t)
	out, err := Export(context.Background(), database, config.DefaultConfig(), ExportInput{Label: "../before/trip"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	wantDir := filepath.Join(home, ".lunacare", "exports")
	if filepath.Dir(out.Path) != wantDir {
		t.Errorf("dir = %q, want %q", filepath.Dir(out.Path), wantDir)
	}
	if base := filepath.Base(out.Path); !strings.HasPrefix(base, "before-trip-") || !strings.HasSuffix(base, ".jsonl") {
		t.Errorf("file name = %q", base)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("export not written: %v", err)
	}
}

func TestExport_RejectsBadPaths(t *testing.T) {
	database := newTestDB(t)
	dir := t.TempDir()
	cfg := backupConfig(dir)

	for _, p := range []string{
		filepath.Join(dir, "backup.json"),
		filepath.Join(dir, "..", "backup.jsonl"),
		filepath.Join(t.TempDir(), "backup.jsonl"),
	} {
		if _, err := Export(context.Background(), database, cfg, ExportInput{Path: p}); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Export(%q): expected ErrInvalidRequest, got: %v", p, err)
		}
	}
}

func TestImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := backupConfig(dir)

	src := newTestDB(t)
	first := addPeriod(t, src, "2024-02-01", 5)
	notes := "第一天很痛"
	if _, err := UpdateLog(ctx, src, first.ID, LogInput{
		StartDate: "2024-02-01",
		EndDate:   stringPtr("2024-02-05"),
		Flow:      "Heavy",
		Symptoms:  []string{"痛经", "嗜睡"},
		Notes:     &notes,
	}); err != nil {
		t.Fatalf("UpdateLog failed: %v", err)
	}
	addPeriod(t, src, "2024-03-01", 4)
	if _, err := AddSymptom(ctx, src, SymptomInput{Name: "嗜睡", Emoji: "😴"}); err != nil {
		t.Fatalf("AddSymptom failed: %v", err)
	}

	path := filepath.Join(dir, "backup.jsonl")
	if _, err := Export(ctx, src, cfg, ExportInput{Path: path}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := newTestDB(t)
	out, err := Import(ctx, dst, cfg, ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 3 || out.Skipped != 0 || len(out.Errors) != 0 {
		t.Fatalf("output = %+v", out)
	}

	want, _ := db.ListLogs(src)
	got, _ := db.ListLogs(dst)
	if len(got) != len(want) {
		t.Fatalf("got %d logs, want %d", len(got), len(want))
	}
	for i := range want {
		w, _ := json.Marshal(want[i])
		g, _ := json.Marshal(got[i])
		if string(w) != string(g) {
			t.Errorf("log %d differs:\n got  %s\n want %s", i, g, w)
		}
	}

	custom, _ := db.ListSymptoms(dst)
	if len(custom) != 1 || custom[0].Name != "嗜睡" || custom[0].Emoji != "😴" {
		t.Errorf("custom symptoms = %+v", custom)
	}
}

func TestImport_ModeError_IsAtomic(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	existing := addPeriod(t, database, "2024-02-01", 5)
	fresh := cycle.CycleLog{ID: "01HNEWLOG00000000000000000", StartDate: "2024-03-01", Flow: cycle.FlowLight}
	path := filepath.Join(dir, "backup.jsonl")
	writeBackup(t, path, logRecord(fresh), logRecord(*existing))

	out, err := Import(ctx, database, backupConfig(dir), ImportInput{Path: path, Mode: ImportModeError})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 1 {
		t.Fatalf("output = %+v", out)
	}
	if e := out.Errors[0]; e.Code != ImportCodeIDCollision || e.ID != existing.ID || e.Line != 3 {
		t.Errorf("error = %+v", e)
	}
	if n, _ := db.CountLogs(database); n != 1 {
		t.Errorf("CountLogs = %d, want 1 (nothing written)", n)
	}
}

func TestImport_ModeReplace(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	existing := addPeriod(t, database, "2024-02-01", 5)
	changed := *existing
	changed.Mood = "Calm"
	changed.UpdatedAt = existing.UpdatedAt + 100

	path := filepath.Join(dir, "backup.jsonl")
	writeBackup(t, path, logRecord(changed))

	out, err := Import(ctx, database, backupConfig(dir), ImportInput{Path: path, Mode: ImportModeReplace})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("output = %+v", out)
	}

	stored, err := db.GetLog(database, existing.ID)
	if err != nil {
		t.Fatalf("GetLog failed: %v", err)
	}
	if stored.Mood != "Calm" {
		t.Errorf("Mood = %q, want Calm", stored.Mood)
	}
	if n, _ := db.CountLogs(database); n != 1 {
		t.Errorf("CountLogs = %d, want 1", n)
	}
}

func TestImport_ModeRename(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	existing := addPeriod(t, database, "2024-02-01", 5)
	path := filepath.Join(dir, "backup.jsonl")
	writeBackup(t, path, logRecord(*existing))

	out, err := Import(ctx, database, backupConfig(dir), ImportInput{Path: path, Mode: ImportModeRename})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("output = %+v", out)
	}

	logs, _ := db.ListLogs(database)
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	if logs[0].ID == logs[1].ID {
		t.Error("renamed log kept the colliding ID")
	}
}

func TestImport_BadLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.jsonl")

	good := cycle.CycleLog{ID: "01HGOODLOG0000000000000000", StartDate: "2024-03-01"}
	inverted := cycle.CycleLog{ID: "01HBADLOG00000000000000000", StartDate: "2024-03-05", EndDate: stringPtr("2024-03-01")}
	writeBackup(t, path,
		`{not json`,
		ExportRecord{Type: "reminder"},
		logRecord(inverted),
		logRecord(good),
	)

	t.Run("error mode reports parse errors and writes nothing", func(t *testing.T) {
		database := newTestDB(t)
		out, err := Import(ctx, database, backupConfig(dir), ImportInput{Path: path})
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if out.Imported != 0 || len(out.Errors) != 2 {
			t.Fatalf("output = %+v", out)
		}
		if out.Errors[0].Code != ImportCodeParse || out.Errors[0].Line != 2 {
			t.Errorf("first error = %+v", out.Errors[0])
		}
		if out.Errors[1].Code != ImportCodeInvalidRecord || out.Errors[1].Line != 3 {
			t.Errorf("second error = %+v", out.Errors[1])
		}
		if n, _ := db.CountLogs(database); n != 0 {
			t.Errorf("CountLogs = %d, want 0", n)
		}
	})

	t.Run("replace mode skips bad lines", func(t *testing.T) {
		database := newTestDB(t)
		out, err := Import(ctx, database, backupConfig(dir), ImportInput{Path: path, Mode: ImportModeReplace})
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if out.Imported != 1 || out.Skipped != 3 || len(out.Errors) != 3 {
			t.Fatalf("output = %+v", out)
		}
		if last := out.Errors[2]; last.Code != ImportCodeInvalidRecord || last.ID != inverted.ID {
			t.Errorf("validation error = %+v", last)
		}
		stored, err := db.GetLog(database, good.ID)
		if err != nil {
			t.Fatalf("GetLog failed: %v", err)
		}
		if stored.Flow != cycle.FlowMedium || stored.Mood != DefaultMood || stored.CreatedAt == 0 {
			t.Errorf("imported log not normalized: %+v", stored)
		}
	})
}

func TestImport_SymptomCollision(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.jsonl")
	writeBackup(t, path, ExportRecord{Type: RecordTypeSymptom, Symptom: &cycle.Symptom{Name: "嗜睡", Emoji: "🥱"}})

	database := newTestDB(t)
	if _, err := AddSymptom(ctx, database, SymptomInput{Name: "嗜睡", Emoji: "😴"}); err != nil {
		t.Fatalf("AddSymptom failed: %v", err)
	}

	out, err := Import(ctx, database, backupConfig(dir), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(out.Errors) != 1 || out.Errors[0].Code != ImportCodeNameCollision || out.Errors[0].Name != "嗜睡" {
		t.Errorf("error mode output = %+v", out)
	}

	out, err = Import(ctx, database, backupConfig(dir), ImportInput{Path: path, Mode: ImportModeRename})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(out.Errors) != 0 {
		t.Errorf("rename mode output = %+v", out)
	}
	custom, _ := db.ListSymptoms(database)
	if len(custom) != 1 || custom[0].Emoji != "😴" {
		t.Errorf("existing symptom should be kept: %+v", custom)
	}
}

func TestImport_InputValidation(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()
	cfg := backupConfig(dir)

	if _, err := Import(ctx, database, cfg, ImportInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing path: expected ErrInvalidRequest, got: %v", err)
	}
	if _, err := Import(ctx, database, cfg, ImportInput{Path: filepath.Join(dir, "x.jsonl"), Mode: "merge"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("bad mode: expected ErrInvalidRequest, got: %v", err)
	}
	if _, err := Import(ctx, database, cfg, ImportInput{Path: filepath.Join(dir, "missing.jsonl")}); !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("missing file: expected ErrFileNotFound, got: %v", err)
	}
}
