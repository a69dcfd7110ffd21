package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`

	// APIBind enables the daemon's read-only HTTP API and /metrics when set.
	APIBind string `toml:"api_bind"`
}

// Schedule contains configuration for the upstream weekly schedule API.
type Schedule struct {
	URL            string `toml:"url"`
	MinMembers     int    `toml:"min_members"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Episodes contains configuration for the streaming index probed for new episodes.
type Episodes struct {
	SiteURL           string  `toml:"site_url"`
	NotFoundSentinel  string  `toml:"not_found_sentinel"`
	UserAgent         string  `toml:"user_agent"`
	RequestTimeout    int     `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	MaxProbes         int     `toml:"max_probes"`
}

// Scheduler contains the cadence of the two periodic tasks.
type Scheduler struct {
	WeeklyInterval   int  `toml:"weekly_interval"`
	FrequentInterval int  `toml:"frequent_interval"`
	WorkTimeout      int  `toml:"work_timeout"`
	RunOnStart       bool `toml:"run_on_start"`
}

// Notifications contains configuration for episode notifications.
type Notifications struct {
	// SystemIdentity is recorded as the sender of every notification.
	SystemIdentity string `toml:"system_identity"`
	// SiteURL is the public catalog root used to build work detail links.
	SiteURL        string `toml:"site_url"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`

	// MaxSizeMB rotates animetrack.log at this size; 0 disables rotation.
	MaxSizeMB  int  `toml:"max_size_mb"`
	MaxBackups int  `toml:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days"`
	Compress   bool `toml:"compress"`
}

// Config encapsulates all configuration values for animetrack.
//
// Configuration sections by subsystem:
//   - Paths: catalog database, day index and log locations, API bind address
//   - Schedule: weekly schedule API and popularity threshold
//   - Episodes: streaming index probing
//   - Scheduler: weekly and frequent task cadence
//   - Notifications: sender identity, detail links, optional ntfy push
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Schedule      Schedule      `toml:"schedule"`
	Episodes      Episodes      `toml:"episodes"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/animetrack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("animetrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the location of the SQLite catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// DayIndexPath returns the location of the persisted weekday index document.
func (c *Config) DayIndexPath() string {
	return filepath.Join(c.Paths.DataDir, "weekly_schedule.json")
}

// LogFilePath returns the daemon log file inside the log directory.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "animetrack.log")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "animetrackd.lock")
}

// WeeklyInterval returns the weekly task cadence.
func (c *Config) WeeklyInterval() time.Duration {
	return time.Duration(c.Scheduler.WeeklyInterval) * time.Second
}

// FrequentInterval returns the frequent task cadence.
func (c *Config) FrequentInterval() time.Duration {
	return time.Duration(c.Scheduler.FrequentInterval) * time.Second
}

// WorkTimeout bounds one work's probe and notify pipeline.
func (c *Config) WorkTimeout() time.Duration {
	return time.Duration(c.Scheduler.WorkTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
