package config

import (
	"errors"
	"os"
	"time"

	"github.com/dshills/txt/internal/engine/sequence"
	"github.com/dshills/txt/internal/logging"
)

// Section accessor methods return snapshot structs. Mutating the returned
// struct does not modify the underlying configuration. Use Config.Set()
// to update configuration values.

// LineBreakConfig controls line-break standard detection.
type LineBreakConfig struct {
	// Fallback is used when detection is inconclusive. NoInit makes
	// inconclusive files fail to open.
	Fallback sequence.LineStd

	// DetectBytes is how much of a file detection scans.
	DetectBytes int
}

// EditConfig sizes the edit buffer.
type EditConfig struct {
	// InitialCapacity is the edit buffer's starting size.
	InitialCapacity int

	// MaxBytes caps the bytes a session may insert. Zero is unbounded.
	MaxBytes int
}

// HistoryConfig bounds the undo history.
type HistoryConfig struct {
	// MaxEntries is the maximum number of undo steps. Zero is unbounded.
	MaxEntries int
}

// BackupConfig places save recovery artifacts.
type BackupConfig struct {
	// Dir is the directory for backups. Empty means os.TempDir().
	Dir string
}

// LogConfig configures logging.
type LogConfig struct {
	Level logging.Level
}

// WatchConfig controls external-change detection.
type WatchConfig struct {
	// Enabled turns on watching of open files.
	Enabled bool

	// Debounce is how long after a save events are attributed to it.
	Debounce time.Duration
}

// LineBreak returns line-break detection settings.
func (c *Config) LineBreak() LineBreakConfig {
	fallback := sequence.Linux
	name := c.getStringOr("linebreak.fallback", "LINUX")
	if std, err := sequence.ParseLineStd(name); err != nil {
		c.recordConfigError("linebreak.fallback", &ValueError{Path: "linebreak.fallback", Value: name, Message: err.Error()})
	} else {
		fallback = std
	}
	return LineBreakConfig{
		Fallback:    fallback,
		DetectBytes: c.getPositiveOr("linebreak.detectBytes", sequence.DefaultDetectBytes),
	}
}

// Edit returns edit buffer settings.
func (c *Config) Edit() EditConfig {
	return EditConfig{
		InitialCapacity: c.getPositiveOr("edit.initialCapacity", sequence.DefaultEditCapacity),
		MaxBytes:        c.getNonNegativeOr("edit.maxBytes", 0),
	}
}

// History returns undo history settings.
func (c *Config) History() HistoryConfig {
	return HistoryConfig{
		MaxEntries: c.getNonNegativeOr("history.maxEntries", 0),
	}
}

// Backup returns backup settings.
func (c *Config) Backup() BackupConfig {
	dir := c.getStringOr("backup.dir", "")
	if dir == "" {
		dir = os.TempDir()
	}
	return BackupConfig{Dir: dir}
}

// Log returns logging settings.
func (c *Config) Log() LogConfig {
	name := c.getStringOr("log.level", "info")
	level, err := logging.ParseLevel(name)
	if err != nil {
		c.recordConfigError("log.level", &ValueError{Path: "log.level", Value: name, Message: err.Error()})
		level = logging.LevelInfo
	}
	return LogConfig{Level: level}
}

// Watch returns file watching settings.
func (c *Config) Watch() WatchConfig {
	d, err := c.GetDuration("watch.debounce")
	if err != nil || d < 0 {
		if err == nil {
			err = &ValueError{Path: "watch.debounce", Value: d, Message: "must not be negative"}
		}
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError("watch.debounce", err)
		}
		d = 100 * time.Millisecond
	}
	return WatchConfig{
		Enabled:  c.getBoolOr("watch.enabled", true),
		Debounce: d,
	}
}

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getPositiveOr(path string, defaultValue int) int {
	v := c.getIntOr(path, defaultValue)
	if v <= 0 {
		c.recordConfigError(path, &ValueError{Path: path, Value: v, Message: "must be positive"})
		return defaultValue
	}
	return v
}

func (c *Config) getNonNegativeOr(path string, defaultValue int) int {
	v := c.getIntOr(path, defaultValue)
	if v < 0 {
		c.recordConfigError(path, &ValueError{Path: path, Value: v, Message: "must not be negative"})
		return defaultValue
	}
	return v
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	v, err := c.GetBool(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) recordConfigError(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configErrors == nil {
		c.configErrors = make(map[string]error)
	}
	// Only store the first error for each path to preserve original cause
	if _, exists := c.configErrors[path]; !exists {
		c.configErrors[path] = err
	}
}

// ConfigErrors returns any configuration errors encountered during access.
// This allows callers to check for misconfigurations after loading.
func (c *Config) ConfigErrors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.configErrors == nil {
		return nil
	}
	result := make(map[string]error, len(c.configErrors))
	for k, v := range c.configErrors {
		result[k] = v
	}
	return result
}

// ClearConfigErrors clears any stored configuration errors.
func (c *Config) ClearConfigErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configErrors = nil
}
