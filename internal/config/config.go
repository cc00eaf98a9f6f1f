// Package config resolves tada's settings.
//
// Precedence, lowest first: built-in defaults, a config file (named by
// --config or TADA_CONFIG), environment variables, command-line flags.
// Config files are YAML, or JSON with comments and trailing commas when
// the name ends in .json or .jsonc.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig  = "TADA_CONFIG"
	EnvDataDir = "TADA_DATA_DIR"
	EnvStorage = "TADA_STORAGE"
)

// Config is everything the commands need to start.
type Config struct {
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// RemovalDelay is how long a completed entry stays before removal.
	RemovalDelay Duration `yaml:"removal_delay" json:"removal_delay"`

	// Theme is classic, neon or mono.
	Theme string `yaml:"theme" json:"theme"`

	Log LogConfig `yaml:"log" json:"log"`
}

type StorageConfig struct {
	// Backend is file, sqlite or memory.
	Backend string `yaml:"backend" json:"backend"`
	// Path is a directory for file, a database file or directory for
	// sqlite. Empty means the working directory.
	Path string `yaml:"path" json:"path"`
	// Key is the slot the list is stored under.
	Key string `yaml:"key" json:"key"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`
	// File receives logs. Empty means stderr for plain commands and
	// nowhere while the interactive UI owns the terminal.
	File string `yaml:"file" json:"file"`
}

// Duration reads "1s"-style strings in both YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"1s\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: "file",
			Key:     "todos",
		},
		RemovalDelay: Duration(time.Second),
		Theme:        "classic",
		Log:          LogConfig{Level: "info"},
	}
}

// Load applies the config file at path (or TADA_CONFIG when path is
// empty) and the environment on top of the defaults. No file at all is
// fine; a named file that cannot be read is not.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile merges the file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorage)); v != "" {
		c.Storage.Backend = v
	}
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Storage.Backend) {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown %q", c.Storage.Backend))
	}
	switch key := strings.TrimSpace(c.Storage.Key); {
	case key == "":
		errs = append(errs, errors.New("storage.key: empty"))
	case key == "." || key == ".." || strings.ContainsAny(key, `/\`):
		// The key names a file in the data directory.
		errs = append(errs, fmt.Errorf("storage.key: %q must be a plain name without path separators", c.Storage.Key))
	}
	if c.RemovalDelay <= 0 {
		errs = append(errs, fmt.Errorf("removal_delay: must be positive, got %s", c.RemovalDelay.Std()))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown %q", c.Log.Level))
	}
	return errors.Join(errs...)
}
