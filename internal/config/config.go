package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	// Store selects the key-value backend: "sqlite" (default) or "redis".
	Store string `json:"store,omitempty"`

	// RedisURL is the connection URL used when Store is "redis".
	RedisURL string `json:"redis_url,omitempty"`

	// RedisNamespace prefixes every key written to Redis.
	RedisNamespace string `json:"redis_namespace,omitempty"`

	// PollIntervalMS is how often the library watcher re-reads the capsule index.
	PollIntervalMS int `json:"poll_interval_ms,omitempty"`

	// QuizAdvanceDelayMS is how long answer feedback stays visible before the next question.
	QuizAdvanceDelayMS int `json:"quiz_advance_delay_ms,omitempty"`

	// SaveRedirectDelayMS is how long the save confirmation stays visible before returning to the library.
	SaveRedirectDelayMS int `json:"save_redirect_delay_ms,omitempty"`

	// SessionTTLMinutes is how long an idle learn session is kept by the web UI.
	SessionTTLMinutes int `json:"session_ttl_minutes,omitempty"`

	// ImportMaxBytes caps the size of an imported capsule file.
	ImportMaxBytes int64 `json:"import_max_bytes,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.pocket/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogMode is "development" (console) or "production" (JSON).
	LogMode string `json:"log_mode,omitempty"`

	// LogFile is where rotated logs are written. Empty means baseDir/logs/pocket.log.
	LogFile string `json:"log_file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store:               StoreSQLite,
		RedisNamespace:      "pocket",
		PollIntervalMS:      1000,
		QuizAdvanceDelayMS:  700,
		SaveRedirectDelayMS: 1000,
		SessionTTLMinutes:   60,
		ImportMaxBytes:      5 * 1024 * 1024,
		LogMode:             "development",
	}
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// QuizAdvanceDelay returns QuizAdvanceDelayMS as a duration.
func (c *Config) QuizAdvanceDelay() time.Duration {
	return time.Duration(c.QuizAdvanceDelayMS) * time.Millisecond
}

// SaveRedirectDelay returns SaveRedirectDelayMS as a duration.
func (c *Config) SaveRedirectDelay() time.Duration {
	return time.Duration(c.SaveRedirectDelayMS) * time.Millisecond
}

// SessionTTL returns SessionTTLMinutes as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.pocket.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.pocket) and repo (.pocket) directories.
// Repo config is found by walking upward from startDir to find the nearest .pocket/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .pocket/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".pocket", "config.json")
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
		return nil, err
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
	result := &Config{
		Store:               firstString(overlay.Store, base.Store),
		RedisURL:            firstString(overlay.RedisURL, base.RedisURL),
		RedisNamespace:      firstString(overlay.RedisNamespace, base.RedisNamespace),
		PollIntervalMS:      firstInt(overlay.PollIntervalMS, base.PollIntervalMS),
		QuizAdvanceDelayMS:  firstInt(overlay.QuizAdvanceDelayMS, base.QuizAdvanceDelayMS),
		SaveRedirectDelayMS: firstInt(overlay.SaveRedirectDelayMS, base.SaveRedirectDelayMS),
		SessionTTLMinutes:   firstInt(overlay.SessionTTLMinutes, base.SessionTTLMinutes),
		DBMaxOpenConns:      firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:      firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		LogMode:             firstString(overlay.LogMode, base.LogMode),
		LogFile:             firstString(overlay.LogFile, base.LogFile),
	}

	result.ImportMaxBytes = overlay.ImportMaxBytes
	if result.ImportMaxBytes == 0 {
		result.ImportMaxBytes = base.ImportMaxBytes
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
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

// BaseDir returns the data directory: $POCKET_HOME when set, else ~/.pocket.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("POCKET_HOME")); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pocket"), nil
}
