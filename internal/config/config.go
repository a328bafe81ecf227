package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// APIEndpoint is the MediaWiki api.php endpoint used for page fetches.
	APIEndpoint string `json:"api_endpoint"`

	// Language is the wiki language code attached to cache keys.
	Language string `json:"language"`

	// HTTPTimeoutSecs is the HTTP client timeout applied to connect, read,
	// and write (a single overall deadline per request).
	HTTPTimeoutSecs int `json:"http_timeout_secs"`

	// MaxSaveRetries is the number of failed save attempts tolerated before a
	// queued page transitions to the error status. ForceSave resets the count.
	MaxSaveRetries int `json:"max_save_retries"`

	// SyncIntervalMins is the period of the background sync scheduler.
	SyncIntervalMins int `json:"sync_interval_mins"`

	// LRUCapacity bounds the in-memory cache of per-URL offline status
	// maintained by the cache interceptor.
	LRUCapacity int `json:"lru_capacity,omitempty"`

	// AllowedExportPaths is an allowlist of directories for export operations.
	// Paths outside baseDir/exports require either being in this list or
	// AllowUnsafePaths=true. Paths should be absolute.
	AllowedExportPaths []string `json:"allowed_export_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for exports.
	// Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// All tools are enabled by default. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type prefixes to disable entirely.
	// All tools belonging to disabled types are excluded from registration.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIEndpoint:      "https://oldschool.runescape.wiki/api.php",
		Language:         "en",
		HTTPTimeoutSecs:  30,
		MaxSaveRetries:   5,
		SyncIntervalMins: 15,
		LRUCapacity:      64,
	}
}

// HTTPTimeout returns the configured HTTP timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

// SyncInterval returns the configured sync period as a duration.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMins) * time.Minute
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.wikivault.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.APIEndpoint = overlay.APIEndpoint
	if result.APIEndpoint == "" {
		result.APIEndpoint = base.APIEndpoint
	}

	result.Language = overlay.Language
	if result.Language == "" {
		result.Language = base.Language
	}

	result.HTTPTimeoutSecs = overlay.HTTPTimeoutSecs
	if result.HTTPTimeoutSecs == 0 {
		result.HTTPTimeoutSecs = base.HTTPTimeoutSecs
	}

	result.MaxSaveRetries = overlay.MaxSaveRetries
	if result.MaxSaveRetries == 0 {
		result.MaxSaveRetries = base.MaxSaveRetries
	}

	result.SyncIntervalMins = overlay.SyncIntervalMins
	if result.SyncIntervalMins == 0 {
		result.SyncIntervalMins = base.SyncIntervalMins
	}

	result.LRUCapacity = overlay.LRUCapacity
	if result.LRUCapacity == 0 {
		result.LRUCapacity = base.LRUCapacity
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedExportPaths = mergeStringSlice(base.AllowedExportPaths, overlay.AllowedExportPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
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
