// Package marionette is a synchronous client for the Firefox Marionette
// protocol (version 3): length-prefixed JSON frames over a TCP stream.
package marionette

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPort is the port Firefox listens on when started with --marionette.
const DefaultPort = 2828

// Config holds client configuration.
type Config struct {
	// Logger receives frame traces and recoverable failures. Zero value logs nothing.
	Logger zerolog.Logger

	// DialTimeout bounds the TCP connect. Zero means no limit beyond ctx.
	DialTimeout time.Duration

	// ProbeAttempts is the number of title fetches used to check the new
	// session is usable. Zero disables the probe.
	ProbeAttempts int

	// ProbeDelay is multiplied by the attempt number to get the sleep before
	// each probe.
	ProbeDelay time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Logger:        zerolog.Nop(),
		DialTimeout:   5 * time.Second,
		ProbeAttempts: 4,
		ProbeDelay:    time.Second,
	}
}

// Client is a Marionette connection with an active session.
//
// Calls are strictly sequential: each one writes a request and blocks until
// the matching response is read. A Client must not be used after Quit or
// InstallAddon.
type Client struct {
	mu     sync.Mutex
	conn   io.ReadWriteCloser
	reader *bufio.Reader
	msgID  uint64
	log    zerolog.Logger

	compat       Compatibility
	timeouts     Timeouts
	sessionID    string
	capabilities json.RawMessage
	probeErr     error

	// done is set once the session has been ended by Quit or InstallAddon.
	done string
}

// Dial connects to a Marionette server on 127.0.0.1:port and creates a session.
func Dial(ctx context.Context, port int, cfg Config) (*Client, error) {
	return DialAddr(ctx, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), cfg)
}

// DialAddr connects to a Marionette server at addr and creates a session.
func DialAddr(ctx context.Context, addr string, cfg Config) (*Client, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to marionette: %w", err)
	}
	c, err := NewClientContext(ctx, conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient runs the handshake over an established stream.
// The caller keeps ownership of conn if an error is returned.
func NewClient(conn io.ReadWriteCloser, cfg Config) (*Client, error) {
	return NewClientContext(context.Background(), conn, cfg)
}

// NewClientContext is NewClient with a context bounding the probe sleeps.
func NewClientContext(ctx context.Context, conn io.ReadWriteCloser, cfg Config) (*Client, error) {
	c := &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		log:    cfg.Logger,
	}
	if err := c.handshake(ctx, cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the stream without ending the remote session.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Compatibility returns the command set negotiated at connect time.
func (c *Client) Compatibility() Compatibility {
	return c.compat
}

// Timeouts returns the last timeouts set or reported by the server.
func (c *Client) Timeouts() Timeouts {
	return c.timeouts
}

// SessionID returns the server-assigned session id.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Capabilities returns the raw capabilities object of the session, if any.
func (c *Client) Capabilities() json.RawMessage {
	return c.capabilities
}

// ProbeErr returns the error of the last liveness probe made while
// connecting, or nil if the session answered.
func (c *Client) ProbeErr() error {
	return c.probeErr
}

// Ended reports whether Quit or InstallAddon has ended the session.
func (c *Client) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != ""
}

// pick returns the command name for the negotiated command set.
func (c *Client) pick(legacy, webdriver string) string {
	if c.compat == Legacy {
		return legacy
	}
	return webdriver
}

// call sends a command and decodes the result into result (may be nil).
func (c *Client) call(name string, args any, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != "" {
		panic(fmt.Sprintf("marionette: %s called after %s", name, c.done))
	}

	raw, err := c.roundTrip(name, args)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", name, err)
	}
	return nil
}

// roundTrip writes one command and reads until the response with its id.
func (c *Client) roundTrip(name string, args any) (json.RawMessage, error) {
	if args == nil {
		args = empty{}
	}
	id := c.msgID
	c.msgID++

	data, err := json.Marshal([]any{msgTypeCommand, id, name, args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	c.log.Trace().Str("dir", "->").RawJSON("frame", data).Msg("marionette")
	if err := WriteFrame(c.conn, string(data)); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", name, err)
	}

	for {
		frame, err := ReadFrame(c.reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", name, err)
		}
		c.log.Trace().Str("dir", "<-").Str("frame", frame).Msg("marionette")

		respID, errObj, result, err := parseResponse([]byte(frame))
		if err != nil {
			return nil, err
		}
		if respID != id {
			c.log.Debug().Uint64("want", id).Uint64("got", respID).Msg("discarding response with unexpected id")
			continue
		}
		if errObj != nil {
			return nil, errObj
		}
		return result, nil
	}
}

// parseResponse splits a [1, id, error, result] envelope.
func parseResponse(data []byte) (uint64, *CallError, json.RawMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %s", ErrUnexpectedType, truncate(data))
	}
	if len(arr) == 0 {
		return 0, nil, nil, ErrUnexpectedType
	}

	var typ uint64
	if err := json.Unmarshal(arr[0], &typ); err != nil || typ != msgTypeResponse {
		return 0, nil, nil, fmt.Errorf("%w: %s", ErrUnexpectedType, arr[0])
	}

	if len(arr) < 2 {
		return 0, nil, nil, ErrInvalidMsgID
	}
	var id uint64
	if err := json.Unmarshal(arr[1], &id); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %s", ErrInvalidMsgID, arr[1])
	}

	if len(arr) < 3 {
		return id, nil, nil, ErrInvalidResponseArray
	}
	if !isNull(arr[2]) {
		var errObj CallError
		if err := decodeErrorObject(arr[2], &errObj); err != nil {
			return id, nil, nil, fmt.Errorf("%w: %v", ErrInvalidErrorObject, err)
		}
		return id, &errObj, nil, nil
	}

	if len(arr) < 4 {
		return id, nil, nil, ErrInvalidResponseArray
	}
	return id, nil, arr[3], nil
}

// decodeErrorObject decodes an error object, requiring the error key.
func decodeErrorObject(raw json.RawMessage, errObj *CallError) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	if _, ok := fields["error"]; !ok {
		return errors.New(`missing "error" field`)
	}
	return json.Unmarshal(raw, errObj)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func truncate(data []byte) string {
	const limit = 120
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
