package marionette

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SupportedProtocol is the only Marionette protocol version this client speaks.
const SupportedProtocol = 3

// handshake reads the server greeting, creates a session and probes it.
func (c *Client) handshake(ctx context.Context, cfg Config) error {
	frame, err := ReadFrame(c.reader)
	if err != nil {
		return fmt.Errorf("failed to read server greeting: %w", err)
	}
	c.log.Debug().Str("greeting", frame).Msg("marionette server info")

	var info serverInfo
	if err := json.Unmarshal([]byte(frame), &info); err != nil {
		return fmt.Errorf("%w: invalid server greeting: %v", ErrUnexpectedType, err)
	}
	if info.Protocol != SupportedProtocol {
		return &UnsupportedProtocolError{Version: info.Protocol}
	}

	if err := c.newSession(); err != nil {
		return err
	}

	c.probeErr = c.probe(ctx, cfg.ProbeAttempts, cfg.ProbeDelay)
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.probeErr != nil {
		c.log.Warn().Err(c.probeErr).Msg("session did not answer liveness probe")
	}
	return nil
}

// newSession tries the WebDriver command first and falls back to the
// legacy name once. The winner fixes the command set for the connection.
func (c *Client) newSession() error {
	var resp newSessionResponse
	wdErr := c.call("WebDriver:NewSession", empty{}, &resp)
	if wdErr == nil {
		c.compat = WebDriver
	} else {
		c.log.Debug().Err(wdErr).Msg("WebDriver:NewSession failed, retrying with legacy newSession")
		resp = newSessionResponse{}
		if err := c.call("newSession", empty{}, &resp); err != nil {
			return fmt.Errorf("failed to create session (webdriver: %v): %w", wdErr, err)
		}
		c.compat = Legacy
	}

	c.sessionID = resp.SessionID
	c.capabilities = resp.Capabilities
	if t, ok := capabilityTimeouts(resp.Capabilities); ok {
		c.timeouts = t
	}
	c.log.Debug().
		Str("session", c.sessionID).
		Stringer("compat", c.compat).
		Msg("marionette session created")
	return nil
}

// capabilityTimeouts extracts capabilities.timeouts when the server reports it.
func capabilityTimeouts(caps json.RawMessage) (Timeouts, bool) {
	if len(caps) == 0 || isNull(caps) {
		return Timeouts{}, false
	}
	var parsed struct {
		Timeouts *Timeouts `json:"timeouts"`
	}
	if err := json.Unmarshal(caps, &parsed); err != nil || parsed.Timeouts == nil {
		return Timeouts{}, false
	}
	return *parsed.Timeouts, true
}

// probe fetches the title until it succeeds, sleeping attempt*delay before
// each try. The page may not be ready right after the TCP connection is
// accepted. Returns the error of the final attempt.
func (c *Client) probe(ctx context.Context, attempts int, delay time.Duration) error {
	var err error
	for retry := 1; retry <= attempts; retry++ {
		timer := time.NewTimer(time.Duration(retry) * delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err = c.Title(); err == nil {
			return nil
		}
		c.log.Debug().Err(err).Int("attempt", retry).Msg("liveness probe failed")
		if IsFatal(err) {
			return err
		}
	}
	return err
}
