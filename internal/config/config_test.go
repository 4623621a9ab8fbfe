package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// envMap returns a getenv func backed by m.
func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := DefaultConfig()
	if cfg.MaxAttempts != def.MaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", cfg.MaxAttempts, def.MaxAttempts)
	}
	if cfg.CacheMaxEntries != 50 {
		t.Errorf("CacheMaxEntries = %d, want 50", cfg.CacheMaxEntries)
	}
	if cfg.CacheTTL() != 24*time.Hour {
		t.Errorf("CacheTTL() = %v, want 24h", cfg.CacheTTL())
	}
	if cfg.RemoteTimeout() != 30*time.Second {
		t.Errorf("RemoteTimeout() = %v, want 30s", cfg.RemoteTimeout())
	}
	if cfg.PersonaName() != "guardian" {
		t.Errorf("PersonaName() = %q, want guardian", cfg.PersonaName())
	}
	if cfg.HasCredential() {
		t.Errorf("HasCredential() = true with no key")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"persona": "wit", "max_attempts": 2, "offline": true, "model": "gemini-2.0-flash"}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Persona != "wit" {
		t.Errorf("Persona = %q, want wit", cfg.Persona)
	}
	if cfg.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", cfg.MaxAttempts)
	}
	if !cfg.IsOffline() {
		t.Errorf("IsOffline() = false, want true")
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", cfg.Model)
	}
	// Untouched fields keep defaults
	if cfg.CacheTTLHours != 24 {
		t.Errorf("CacheTTLHours = %d, want 24", cfg.CacheTTLHours)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["cycle_log_delete", "advice_ask"]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "cycle_log_delete" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "cycle_log_delete")
	}
}

func TestLoadWithLocal_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	root := t.TempDir()

	writeConfig(t, globalDir, `{"persona": "expert", "disabled_tools": ["advice_ask"]}`)
	writeConfig(t, filepath.Join(root, ".lunacare"), `{"persona": "wit", "disabled_tools": ["cycle_stats"]}`)

	cfg, err := LoadWithLocal(globalDir, root)
	if err != nil {
		t.Fatalf("LoadWithLocal() error = %v", err)
	}

	// Local overrides scalar
	if cfg.Persona != "wit" {
		t.Errorf("Persona = %q, want wit (local override)", cfg.Persona)
	}
	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithLocal_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithLocal(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithLocal() error = %v", err)
	}
	if cfg.Persona != "guardian" {
		t.Errorf("Persona = %q, want guardian", cfg.Persona)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestLoadWithLocal_WalksUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, filepath.Join(root, ".lunacare"), `{"offline": true}`)

	subdir := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithLocal(t.TempDir(), subdir)
	if err != nil {
		t.Fatalf("LoadWithLocal() error = %v", err)
	}
	if !cfg.Offline {
		t.Errorf("Offline = false, want true from parent .lunacare")
	}
}

func TestFindLocalConfig_NotFound(t *testing.T) {
	if found := FindLocalConfig(t.TempDir()); found != "" {
		t.Errorf("FindLocalConfig() = %q, want empty string", found)
	}
	if found := FindLocalConfig(""); found != "" {
		t.Errorf("FindLocalConfig(\"\") = %q, want empty string", found)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{Model: "gpt-4o-mini", DBMaxOpenConns: 5}
	overlay := &Config{Model: "gemini-2.0-flash"} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want overlay", result.Model)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{AllowUnsafePaths: true}, &Config{Offline: true})

	if !result.AllowUnsafePaths || !result.Offline {
		t.Errorf("booleans should OR: %+v", result)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"advice_ask", " cycle_stats "}}
	overlay := &Config{DisabledTools: []string{"cycle_stats", "advice_tip"}}

	result := Merge(base, overlay)

	want := []string{"advice_ask", "cycle_stats", "advice_tip"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"LUNACARE_API_KEY":  "sk-luna",
		"OPENAI_API_KEY":    "sk-openai",
		"LUNACARE_MODEL":    "gemini-2.0-flash",
		"LUNACARE_BASE_URL": "https://example.test/v1",
		"LUNACARE_PERSONA":  "expert",
		"LUNACARE_OFFLINE":  "true",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.APIKey != "sk-luna" {
		t.Errorf("APIKey = %q, want LUNACARE_API_KEY to win", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.0-flash" || cfg.BaseURL != "https://example.test/v1" {
		t.Errorf("Model/BaseURL = %q/%q", cfg.Model, cfg.BaseURL)
	}
	if cfg.Persona != "expert" || !cfg.Offline {
		t.Errorf("Persona/Offline = %q/%v", cfg.Persona, cfg.Offline)
	}
}

func TestApplyEnv_OpenAIKeyFallback(t *testing.T) {
	cfg := DefaultConfig()
	if err := ApplyEnv(cfg, envMap(map[string]string{"OPENAI_API_KEY": "sk-openai"})); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.APIKey != "sk-openai" {
		t.Errorf("APIKey = %q, want sk-openai", cfg.APIKey)
	}

	// A key from the config file is not replaced by the generic variable
	cfg = DefaultConfig()
	cfg.APIKey = "sk-file"
	if err := ApplyEnv(cfg, envMap(map[string]string{"OPENAI_API_KEY": "sk-openai"})); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.APIKey != "sk-file" {
		t.Errorf("APIKey = %q, want sk-file", cfg.APIKey)
	}
}

func TestApplyEnv_BadOffline(t *testing.T) {
	if err := ApplyEnv(DefaultConfig(), envMap(map[string]string{"LUNACARE_OFFLINE": "maybe"})); err == nil {
		t.Errorf("ApplyEnv() expected error for bad LUNACARE_OFFLINE")
	}
}

func TestHasCredential(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"no key", Config{Provider: "openai"}, false},
		{"blank key", Config{Provider: "openai", APIKey: "  "}, false},
		{"key", Config{Provider: "openai", APIKey: "sk"}, true},
		{"provider none", Config{Provider: ProviderNone, APIKey: "sk"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.HasCredential(); got != tt.want {
				t.Errorf("HasCredential() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	for _, cfg := range []*Config{
		{RemoteTimeoutSeconds: -1},
		{MaxAttempts: -1},
		{CacheMaxEntries: -1},
		{CacheTTLHours: -1},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate(%+v) expected error", cfg)
		}
	}
}
