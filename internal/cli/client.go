package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/browser"
	"github.com/equalsraf/ffcli/internal/config"
	"github.com/equalsraf/ffcli/internal/marionette"
)

// session is a connected client plus the logger built for this invocation.
type session struct {
	*marionette.Client
	log zerolog.Logger

	// shared sessions belong to the shell and outlive single commands.
	shared bool
}

// shared is the shell's session while one is running.
var shared *session

// Close closes the connection unless the session is shared.
func (s *session) Close() error {
	if s.shared {
		return nil
	}
	return s.Client.Close()
}

// loadSettings resolves the config file, $FF_PORT and --port, in that order.
func loadSettings() (config.Config, error) {
	path := ConfigPath
	optional := false
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = p
		optional = true
	}

	cfg, err := config.Load(path, optional)
	if err != nil {
		return config.Config{}, err
	}
	if Port != 0 {
		cfg.Port = Port
	}
	return cfg, nil
}

// connect opens a session with the configured browser and applies any
// configured timeouts.
func connect(cmd *cobra.Command) (*session, error) {
	if shared != nil {
		return shared, nil
	}

	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	log := newLogger(logLevel(cfg.LogLevel))

	c, err := marionette.Dial(cmd.Context(), cfg.Port, cfg.Marionette(log))
	if err != nil {
		if !browser.PortOpen(cmd.Context(), cfg.Port) {
			return nil, fmt.Errorf("unable to connect to firefox on port %d (nothing is listening; was firefox started with --marionette?): %w", cfg.Port, err)
		}
		return nil, fmt.Errorf("unable to connect to firefox on port %d: %w", cfg.Port, err)
	}
	log.Debug().
		Str("session", c.SessionID()).
		Stringer("compat", c.Compatibility()).
		Msg("connected")

	if cfg.Timeouts != nil {
		if err := c.SetTimeouts(*cfg.Timeouts); err != nil {
			log.Warn().Err(err).Msg("failed to apply configured timeouts")
		}
	}
	return &session{Client: c, log: log}, nil
}
