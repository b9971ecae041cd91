// Package config reads the classloader command configuration from YAML,
// TOML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/giantswarm/classloader"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config lists the libraries to load and how to manage them. Zero values
// mean "unspecified" and keep the classloader defaults.
//
// LibraryDirs are scanned for *.so files, which load after Libraries.
// LockTimeout is a time.ParseDuration string such as "5s", and LogLevel one
// of debug, info, warn or error.
type Config struct {
	Libraries     []string `json:"libraries" yaml:"libraries" toml:"libraries"`
	LibraryDirs   []string `json:"library_dirs" yaml:"library_dirs" toml:"library_dirs"`
	OnDemand      bool     `json:"on_demand" yaml:"on_demand" toml:"on_demand"`
	LockLibraries bool     `json:"lock_libraries" yaml:"lock_libraries" toml:"lock_libraries"`
	LockTimeout   string   `json:"lock_timeout" yaml:"lock_timeout" toml:"lock_timeout"`
	LogLevel      string   `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	for i, lib := range c.Libraries {
		if lib == "" {
			errs = append(errs, fmt.Errorf("libraries[%d] must not be empty", i))
		}
	}
	for i, dir := range c.LibraryDirs {
		if dir == "" {
			errs = append(errs, fmt.Errorf("library_dirs[%d] must not be empty", i))
		}
	}
	if _, err := c.lockTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) lockTimeout() (time.Duration, error) {
	if c.LockTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil {
		return 0, fmt.Errorf("lock_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("lock_timeout must be greater than 0, got %s", d)
	}
	return d, nil
}

// Level returns the configured log level, slog.LevelInfo when unset.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// Options converts c into MultiLoader options. c must be valid.
func (c Config) Options() []classloader.Option {
	opts := []classloader.Option{
		classloader.WithOnDemandLoadUnload(c.OnDemand),
		classloader.WithLibraryFileLock(c.LockLibraries),
	}
	if d, err := c.lockTimeout(); err == nil && d > 0 {
		opts = append(opts, classloader.WithLockTimeout(d))
	}
	return opts
}

// Merge returns c with the non-zero fields of override applied on top.
// Libraries and library directories are appended, skipping ones c already
// lists.
//
// Booleans are ORed: false in override cannot tell "unset" from "off", so
// Merge can only turn a setting on. Callers that know whether the override
// set a boolean explicitly, like the CLI through its flag set, assign it
// after merging.
func (c Config) Merge(override Config) Config {
	out := c
	out.Libraries = appendMissing(slices.Clone(c.Libraries), override.Libraries)
	out.LibraryDirs = appendMissing(slices.Clone(c.LibraryDirs), override.LibraryDirs)
	out.OnDemand = c.OnDemand || override.OnDemand
	out.LockLibraries = c.LockLibraries || override.LockLibraries
	if override.LockTimeout != "" {
		out.LockTimeout = override.LockTimeout
	}
	if override.LogLevel != "" {
		out.LogLevel = override.LogLevel
	}
	return out
}

func appendMissing(dst, src []string) []string {
	for _, v := range src {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
