// Package browser waits for a running Firefox to accept Marionette sessions.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/equalsraf/ffcli/internal/marionette"
)

// ErrStartTimeout is returned when the browser does not accept a session in time.
var ErrStartTimeout = errors.New("marionette did not become ready")

// WaitOptions configures WaitForMarionette.
type WaitOptions struct {
	// Attempts is the number of connection attempts. Zero means 4.
	Attempts int
	// Delay is multiplied by the attempt number to get the sleep after each
	// failed attempt. Zero means 2s.
	Delay time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Attempts <= 0 {
		o.Attempts = 4
	}
	if o.Delay <= 0 {
		o.Delay = 2 * time.Second
	}
	return o
}

// WaitForMarionette dials 127.0.0.1:port until a session is created, backing
// off attempt*Delay between failures. The error of the last attempt is wrapped
// in ErrStartTimeout.
func WaitForMarionette(ctx context.Context, port int, cfg marionette.Config, opts WaitOptions) (*marionette.Client, error) {
	opts = opts.withDefaults()
	log := cfg.Logger

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		c, err := marionette.Dial(ctx, port, cfg)
		if err == nil {
			return c, nil
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt).Int("port", port).Msg("marionette not ready")

		var protoErr *marionette.UnsupportedProtocolError
		if errors.As(err, &protoErr) {
			return nil, err
		}
		if attempt == opts.Attempts {
			break
		}

		timer := time.NewTimer(time.Duration(attempt) * opts.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrStartTimeout, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrStartTimeout, opts.Attempts, lastErr)
}

// PortOpen reports whether something accepts TCP connections on 127.0.0.1:port.
func PortOpen(ctx context.Context, port int) bool {
	d := net.Dialer{Timeout: time.Second}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// FreePort returns a TCP port on 127.0.0.1 that is currently unused, for a
// profile's marionette.port preference.
func FreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find free port: %w", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
