// Package config loads ffctl defaults from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/equalsraf/ffcli/internal/marionette"
)

// PortEnv overrides the configured port.
const PortEnv = "FF_PORT"

// Config holds the settings shared by all ffctl commands.
type Config struct {
	Port          int
	ProbeAttempts int
	ProbeDelay    time.Duration
	DialTimeout   time.Duration
	LogLevel      zerolog.Level

	// Timeouts are pushed to the session after connecting when non-nil.
	Timeouts *marionette.Timeouts
}

// Default returns the built-in configuration.
func Default() Config {
	mc := marionette.DefaultConfig()
	return Config{
		Port:          marionette.DefaultPort,
		ProbeAttempts: mc.ProbeAttempts,
		ProbeDelay:    mc.ProbeDelay,
		DialTimeout:   mc.DialTimeout,
		LogLevel:      zerolog.WarnLevel,
	}
}

// Marionette returns the client configuration for cfg.
func (c Config) Marionette(log zerolog.Logger) marionette.Config {
	return marionette.Config{
		Logger:        log,
		DialTimeout:   c.DialTimeout,
		ProbeAttempts: c.ProbeAttempts,
		ProbeDelay:    c.ProbeDelay,
	}
}

// config.toml key mapping.
type fileConfig struct {
	Port          int          `toml:"port"`
	ProbeAttempts int          `toml:"probe_attempts"`
	ProbeDelay    string       `toml:"probe_delay"`
	DialTimeout   string       `toml:"dial_timeout"`
	LogLevel      string       `toml:"log_level"`
	Timeouts      fileTimeouts `toml:"timeouts"`
}

type fileTimeouts struct {
	Script   uint64 `toml:"script"`
	PageLoad uint64 `toml:"page_load"`
	Implicit uint64 `toml:"implicit"`
}

// DefaultPath returns $XDG_CONFIG_HOME/ffctl/config.toml, falling back to
// ~/.config/ffctl/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ffctl", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ffctl", "config.toml"), nil
}

// Load overlays the TOML file at path on Default and applies FF_PORT.
// A missing file is not an error when optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			if !(optional && errors.Is(err, fs.ErrNotExist)) {
				return Config{}, err
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv(PortEnv)); v != "" {
		port, err := parsePort(v)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %s: %w", PortEnv, err)
		}
		cfg.Port = port
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return fmt.Errorf("load config: port %d out of range", raw.Port)
		}
		cfg.Port = raw.Port
	}
	if meta.IsDefined("probe_attempts") {
		if raw.ProbeAttempts < 0 {
			return fmt.Errorf("load config: probe_attempts must not be negative")
		}
		cfg.ProbeAttempts = raw.ProbeAttempts
	}
	if meta.IsDefined("probe_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ProbeDelay))
		if err != nil {
			return fmt.Errorf("load config: probe_delay: %w", err)
		}
		cfg.ProbeDelay = d
	}
	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return fmt.Errorf("load config: dial_timeout: %w", err)
		}
		cfg.DialTimeout = d
	}
	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw.LogLevel)))
		if err != nil {
			return fmt.Errorf("load config: log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("timeouts") {
		// Unset keys keep the Firefox defaults.
		t := marionette.Timeouts{Script: 30000, PageLoad: 300000}
		if meta.IsDefined("timeouts", "script") {
			t.Script = raw.Timeouts.Script
		}
		if meta.IsDefined("timeouts", "page_load") {
			t.PageLoad = raw.Timeouts.PageLoad
		}
		if meta.IsDefined("timeouts", "implicit") {
			t.Implicit = raw.Timeouts.Implicit
		}
		cfg.Timeouts = &t
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	return nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
