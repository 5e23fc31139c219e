package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/equalsraf/ffcli/internal/marionette"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Overlay(t *testing.T) {
	t.Setenv(PortEnv, "")
	path := writeConfig(t, `
port = 2900
probe_attempts = 2
probe_delay = "250ms"
log_level = "debug"

[timeouts]
script = 5000
implicit = 100
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 2900 {
		t.Errorf("expected port 2900, got %d", cfg.Port)
	}
	if cfg.ProbeAttempts != 2 {
		t.Errorf("expected probe_attempts 2, got %d", cfg.ProbeAttempts)
	}
	if cfg.ProbeDelay != 250*time.Millisecond {
		t.Errorf("expected probe_delay 250ms, got %v", cfg.ProbeDelay)
	}
	if cfg.DialTimeout != Default().DialTimeout {
		t.Errorf("expected default dial timeout, got %v", cfg.DialTimeout)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	want := marionette.Timeouts{Script: 5000, PageLoad: 300000, Implicit: 100}
	if cfg.Timeouts == nil || *cfg.Timeouts != want {
		t.Errorf("expected timeouts %+v, got %+v", want, cfg.Timeouts)
	}
}

func TestLoad_ZeroValuesOverride(t *testing.T) {
	t.Setenv(PortEnv, "")
	path := writeConfig(t, "probe_attempts = 0\n")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProbeAttempts != 0 {
		t.Errorf("expected explicit 0 to disable the probe, got %d", cfg.ProbeAttempts)
	}
	if cfg.Timeouts != nil {
		t.Errorf("expected no timeouts without a [timeouts] table, got %+v", cfg.Timeouts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(PortEnv, "")
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("expected optional missing file to be ignored, got %v", err)
	}
	if cfg.Port != marionette.DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Port)
	}

	_, err = Load(path, false)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist for required file, got %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(PortEnv, "")

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad duration", `probe_delay = "soon"`, "probe_delay"},
		{"bad level", `log_level = "loud"`, "log_level"},
		{"port range", `port = 70000`, "out of range"},
		{"negative probes", `probe_attempts = -1`, "negative"},
		{"unknown key", `colour = "red"`, "unknown key"},
		{"syntax", `port = `, "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), false)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestLoad_PortFromEnv(t *testing.T) {
	path := writeConfig(t, "port = 2900\n")

	t.Setenv(PortEnv, "6000")
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 6000 {
		t.Errorf("expected env port 6000, got %d", cfg.Port)
	}

	t.Setenv(PortEnv, "abc")
	if _, err := Load(path, false); err == nil || !strings.Contains(err.Error(), PortEnv) {
		t.Errorf("expected %s error, got %v", PortEnv, err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if path != filepath.Join("/tmp/xdg", "ffctl", "config.toml") {
		t.Errorf("unexpected path %q", path)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	path, err = DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if path != filepath.Join("/home/tester", ".config", "ffctl", "config.toml") {
		t.Errorf("unexpected fallback path %q", path)
	}
}

func TestConfig_Marionette(t *testing.T) {
	cfg := Default()
	cfg.ProbeAttempts = 7
	mc := cfg.Marionette(zerolog.Nop())
	if mc.ProbeAttempts != 7 || mc.ProbeDelay != cfg.ProbeDelay || mc.DialTimeout != cfg.DialTimeout {
		t.Errorf("unexpected marionette config %+v", mc)
	}
}
