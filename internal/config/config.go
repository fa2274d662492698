// Package config loads catalog settings
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/logger"
)

// Config is the complete catalog configuration
type Config struct {
	// DataDir holds everything below unless overridden
	DataDir string `mapstructure:"data_dir"`

	// IndexDir holds one index file per key id; defaults to <data_dir>/index
	IndexDirPath string `mapstructure:"index_dir"`

	// BackupsDir holds version fragments; defaults to <data_dir>/backups
	BackupsDirPath string `mapstructure:"backups_dir"`

	// SourceRoot is the local directory catalog paths are relative to
	SourceRoot string `mapstructure:"source_root"`

	// Owner is the id of the local user, "user@host"
	Owner string `mapstructure:"owner"`

	// RandomIDs selects randomized path id allocation
	RandomIDs bool `mapstructure:"random_ids"`

	// AutosaveInterval triggers calculate+save in serve mode; 0 disables it
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`

	History HistoryConfig `mapstructure:"history"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// HistoryConfig controls the merge history database
type HistoryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Retain  time.Duration `mapstructure:"retain"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	// Listen is the address of /metrics in serve mode, empty to disable
	Listen string `mapstructure:"listen"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig controls the rotated log file
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", domain.ErrConfigInvalid)
	}
	if c.Owner != "" {
		if _, err := domain.ParseOwner(c.Owner); err != nil {
			return fmt.Errorf("%w: owner: %v", domain.ErrConfigInvalid, err)
		}
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("%w: autosave_interval cannot be negative", domain.ErrConfigInvalid)
	}
	if c.History.Retain < 0 {
		return fmt.Errorf("%w: history.retain cannot be negative", domain.ErrConfigInvalid)
	}
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: unknown log level %q", domain.ErrConfigInvalid, c.Log.Level)
	}
	if !logger.ValidFormat(c.Log.Format) {
		return fmt.Errorf("%w: unknown log format %q", domain.ErrConfigInvalid, c.Log.Format)
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when file logging is enabled", domain.ErrConfigInvalid)
	}
	return nil
}

// OwnerID returns the parsed owner, zero when unset
func (c *Config) OwnerID() domain.Owner {
	o, _ := domain.ParseOwner(c.Owner)
	return o
}

// IndexDir returns the directory of the index files
func (c *Config) IndexDir() string {
	if c.IndexDirPath != "" {
		return ExpandPath(c.IndexDirPath)
	}
	return filepath.Join(ExpandPath(c.DataDir), "index")
}

// BackupsDir returns the directory of the version fragments
func (c *Config) BackupsDir() string {
	if c.BackupsDirPath != "" {
		return ExpandPath(c.BackupsDirPath)
	}
	return filepath.Join(ExpandPath(c.DataDir), "backups")
}

// HistoryPath returns the directory of the history database
func (c *Config) HistoryPath() string {
	return ExpandPath(c.DataDir)
}

// LockDir returns the directory holding the writer lock
func (c *Config) LockDir() string {
	return c.IndexDir()
}

// LoggerConfig converts the log section for logger.Init
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:  logger.ParseLevel(c.Log.Level),
		Format: logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{
			{Type: logger.OutputStderr},
		},
	}
	if c.Log.File.Enabled {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       ExpandPath(c.Log.File.Path),
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
	}
	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
