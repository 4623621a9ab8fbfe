package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ProviderNone disables the remote advisor entirely.
const ProviderNone = "none"

// Config holds application configuration.
type Config struct {
	// Provider selects the remote advisor backend: "openai" (any
	// OpenAI-compatible endpoint) or "none".
	Provider string `json:"provider,omitempty"`

	// APIKey is the remote advisor credential. Usually supplied through
	// LUNACARE_API_KEY rather than written to disk.
	APIKey string `json:"api_key,omitempty"`

	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`

	// Persona selects the advisor voice: guardian, expert, or wit.
	Persona string `json:"persona,omitempty"`

	// Offline forces local fallback advice even when a credential exists.
	Offline bool `json:"offline,omitempty"`

	// RemoteTimeoutSeconds bounds one whole remote resolution, retries included.
	RemoteTimeoutSeconds int `json:"remote_timeout_seconds,omitempty"`

	// MaxAttempts is the number of remote attempts per resolution (capped at 3).
	MaxAttempts int `json:"max_attempts,omitempty"`

	CacheMaxEntries int `json:"cache_max_entries,omitempty"`
	CacheTTLHours   int `json:"cache_ttl_hours,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.lunacare/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// When true, any directory is allowed (but symlink and extension checks still apply).
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "cycle", "advice". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:             "openai",
		Model:                "gpt-4o-mini",
		Persona:              "guardian",
		RemoteTimeoutSeconds: 30,
		MaxAttempts:          3,
		CacheMaxEntries:      50,
		CacheTTLHours:        24,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lunacare.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithLocal loads configuration from the global directory and from the
// nearest .lunacare/config.json found walking upward from startDir.
// Local config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithLocal(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	local, err := loadFileRaw(FindLocalConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then local
	return Merge(Merge(DefaultConfig(), global), local), nil
}

// FindLocalConfig walks upward from startDir to find the nearest .lunacare/config.json.
// Returns the path if found, or empty string if not found.
func FindLocalConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".lunacare", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Provider = pickString(overlay.Provider, base.Provider)
	result.APIKey = pickString(overlay.APIKey, base.APIKey)
	result.Model = pickString(overlay.Model, base.Model)
	result.BaseURL = pickString(overlay.BaseURL, base.BaseURL)
	result.Persona = pickString(overlay.Persona, base.Persona)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)

	result.RemoteTimeoutSeconds = pickInt(overlay.RemoteTimeoutSeconds, base.RemoteTimeoutSeconds)
	result.MaxAttempts = pickInt(overlay.MaxAttempts, base.MaxAttempts)
	result.CacheMaxEntries = pickInt(overlay.CacheMaxEntries, base.CacheMaxEntries)
	result.CacheTTLHours = pickInt(overlay.CacheTTLHours, base.CacheTTLHours)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.Offline = base.Offline || overlay.Offline
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// ApplyEnv overlays environment variables onto cfg. LUNACARE_API_KEY falls
// back to OPENAI_API_KEY. getenv is os.Getenv outside tests.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("LUNACARE_API_KEY"); v != "" {
		cfg.APIKey = v
	} else if cfg.APIKey == "" {
		cfg.APIKey = getenv("OPENAI_API_KEY")
	}
	if v := getenv("LUNACARE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := getenv("LUNACARE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv("LUNACARE_PERSONA"); v != "" {
		cfg.Persona = v
	}
	if v := getenv("LUNACARE_OFFLINE"); v != "" {
		offline, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LUNACARE_OFFLINE: %w", err)
		}
		cfg.Offline = offline
	}
	return nil
}

// Validate rejects settings that cannot be applied.
func (c *Config) Validate() error {
	switch {
	case c.RemoteTimeoutSeconds < 0:
		return fmt.Errorf("remote_timeout_seconds must not be negative")
	case c.MaxAttempts < 0:
		return fmt.Errorf("max_attempts must not be negative")
	case c.CacheMaxEntries < 0:
		return fmt.Errorf("cache_max_entries must not be negative")
	case c.CacheTTLHours < 0:
		return fmt.Errorf("cache_ttl_hours must not be negative")
	}
	return nil
}

// HasCredential reports whether a remote provider is configured with a key.
func (c *Config) HasCredential() bool {
	return c.Provider != ProviderNone && strings.TrimSpace(c.APIKey) != ""
}

func (c *Config) IsOffline() bool {
	return c.Offline
}

func (c *Config) PersonaName() string {
	return c.Persona
}

// RemoteTimeout returns the per-resolution remote budget.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

// CacheTTL returns the query cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}
