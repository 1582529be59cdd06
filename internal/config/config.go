package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dshills/txt/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TXT_"

// Layer names, lowest priority first.
const (
	LayerDefaults = "defaults"
	LayerFile     = "file"
	LayerEnv      = "environment"
	LayerOverride = "override"
)

type layer struct {
	name string
	data map[string]any
}

// Config provides unified access to txt's configuration.
type Config struct {
	mu sync.RWMutex

	layers []layer
	merged map[string]any // nil when stale

	fs        loader.FileSystem
	path      string
	envPrefix string
	noEnv     bool

	// configErrors stores errors encountered during section access.
	configErrors map[string]error
}

// Option configures a Config instance.
type Option func(*Config)

// WithFile sets the configuration file. Its extension selects the format.
func WithFile(path string) Option {
	return func(c *Config) {
		c.path = path
	}
}

// WithFileSystem sets the file system the configuration file is read from.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithoutEnv skips the environment layer.
func WithoutEnv() Option {
	return func(c *Config) {
		c.noEnv = true
	}
}

// New creates a Config holding only the defaults. Call Load to read the
// file and environment layers.
func New(opts ...Option) *Config {
	c := &Config{
		fs:        loader.DefaultFS(),
		envPrefix: EnvPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.layers = []layer{{name: LayerDefaults, data: defaultConfig()}}
	return c
}

// Load reads the file and environment layers, replacing any loaded before.
// A configured file that does not exist is an error; an absent file path is not.
func (c *Config) Load() error {
	var fileData map[string]any
	if c.path != "" {
		l, err := loader.ForPath(c.fs, c.path)
		if err != nil {
			return err
		}
		fileData, err = l.Load()
		if err != nil {
			return err
		}
		if fileData == nil {
			return fmt.Errorf("config file %s: %w", c.path, os.ErrNotExist)
		}
	}

	var envData map[string]any
	if !c.noEnv {
		var err error
		envData, err = loader.NewEnvLoader(c.envPrefix).Load()
		if err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLayer(LayerFile, fileData)
	c.setLayer(LayerEnv, envData)
	return nil
}

// setLayer replaces or inserts a layer, keeping priority order.
func (c *Config) setLayer(name string, data map[string]any) {
	c.merged = nil
	kept := c.layers[:0]
	for _, l := range c.layers {
		if l.name != name {
			kept = append(kept, l)
		}
	}
	c.layers = kept
	if len(data) == 0 {
		return
	}
	c.layers = append(c.layers, layer{name: name, data: data})

	rank := map[string]int{LayerDefaults: 0, LayerFile: 1, LayerEnv: 2, LayerOverride: 3}
	for i := len(c.layers) - 1; i > 0 && rank[c.layers[i].name] < rank[c.layers[i-1].name]; i-- {
		c.layers[i], c.layers[i-1] = c.layers[i-1], c.layers[i]
	}
}

// mergedLocked returns the merged view. Caller holds at least a read lock
// and must not mutate the result.
func (c *Config) mergedLocked() map[string]any {
	if m := c.merged; m != nil {
		return m
	}
	m := make(map[string]any)
	for _, l := range c.layers {
		m = loader.DeepMerge(m, l.data)
	}
	c.merged = m
	return m
}

// Layers returns the names of the loaded layers, lowest priority first.
func (c *Config) Layers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.layers))
	for i, l := range c.layers {
		names[i] = l.name
	}
	return names
}

// Get returns the value at the given path from the merged configuration.
func (c *Config) Get(path string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return getPath(c.mergedLocked(), path)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			return 0, &TypeError{Path: path, Expected: "int", Actual: "float64"}
		}
		return int(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
	}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetDuration returns a duration at the given path. Strings are parsed
// with time.ParseDuration; bare integers are milliseconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &TypeError{Path: path, Expected: "duration", Actual: fmt.Sprintf("string %q", val)}
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	default:
		return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
	}
}

// Set sets a value at the given path in the override layer.
func (c *Config) Set(path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data map[string]any
	for _, l := range c.layers {
		if l.name == LayerOverride {
			data = l.data
		}
	}
	if data == nil {
		data = make(map[string]any)
	}
	if err := setPath(data, path, value); err != nil {
		return err
	}
	c.setLayer(LayerOverride, data)
	return nil
}

// Merged returns a copy of the fully merged configuration.
func (c *Config) Merged() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return loader.Clone(c.mergedLocked())
}

// defaultConfig returns the default configuration values.
func defaultConfig() map[string]any {
	return map[string]any{
		"linebreak": map[string]any{
			"fallback":    "LINUX",
			"detectBytes": 64 << 10,
		},
		"edit": map[string]any{
			"initialCapacity": 4096,
			"maxBytes":        0,
		},
		"history": map[string]any{
			"maxEntries": 0,
		},
		"backup": map[string]any{
			"dir": "",
		},
		"log": map[string]any{
			"level": "info",
		},
		"watch": map[string]any{
			"enabled":  true,
			"debounce": "100ms",
		},
	}
}

// getPath retrieves a value from a nested map using a dot-separated path.
func getPath(m map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}

	current := any(m)
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = cm[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// setPath sets a value in a nested map using a dot-separated path.
func setPath(m map[string]any, path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ErrInvalidPath
	}

	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s is not a section", ErrInvalidPath, part)
		}
		current = nextMap
	}

	current[parts[len(parts)-1]] = value
	return nil
}

// splitPath splits a dot-separated path into its non-empty parts.
func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '.' })
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
