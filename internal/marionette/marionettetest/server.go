// Package marionettetest provides an in-process Marionette server for tests.
//
// The server speaks protocol 3 over TCP on 127.0.0.1 and keeps a small
// simulated browser: pages with element trees and frames, history,
// windows, chrome/content context, cookies, preferences and timeouts.
// It accepts either the WebDriver command names or, with Legacy set, only
// the old camelCase ones.
package marionettetest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/equalsraf/ffcli/internal/marionette"
)

// HandlerFunc answers one command. A returned *marionette.CallError is sent
// as the error object; any other error becomes an "unknown error".
type HandlerFunc func(args json.RawMessage) (any, error)

// ScriptFunc evaluates a script registered with HandleScript.
type ScriptFunc func(call ScriptCall) (any, error)

// ScriptCall describes one script execution.
type ScriptCall struct {
	Source  string
	Sandbox string
	Args    []json.RawMessage
	Async   bool
	Context marionette.Context
}

// Request is a command received by the server.
type Request struct {
	ID   uint64
	Name string
	Args json.RawMessage
}

// Options configures a Server.
type Options struct {
	// Legacy makes the server reject WebDriver command names.
	Legacy bool
	// Protocol is announced in the greeting. Zero means 3.
	Protocol int64
	// Pages are the documents reachable by Navigate, keyed by URL.
	Pages map[string]*Page
	// StartURL is the page loaded when the server starts. Defaults to about:blank.
	StartURL string
}

// Server is a fake Marionette endpoint.
type Server struct {
	legacy   bool
	protocol int64
	ln       net.Listener

	mu       sync.Mutex
	requests []Request
	handlers map[string]HandlerFunc
	scripts  map[string]ScriptFunc
	inject   []string
	conns    map[net.Conn]struct{}
	b        *browserState

	wg     sync.WaitGroup
	closed chan struct{}
}

// NewServer starts a server listening on a random local port.
func NewServer(opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	protocol := opts.Protocol
	if protocol == 0 {
		protocol = marionette.SupportedProtocol
	}
	s := &Server{
		legacy:   opts.Legacy,
		protocol: protocol,
		ln:       ln,
		handlers: make(map[string]HandlerFunc),
		scripts:  make(map[string]ScriptFunc),
		conns:    make(map[net.Conn]struct{}),
		b:        newBrowserState(opts.Pages, opts.StartURL),
		closed:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Handle overrides the command name (in either naming scheme) with fn.
func (s *Server) Handle(name string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[canonical(name)] = fn
}

// HandleScript registers fn for scripts whose trimmed source equals source.
func (s *Server) HandleScript(source string, fn ScriptFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[strings.TrimSpace(source)] = fn
}

// Inject queues raw frame payloads written before the next response.
func (s *Server) Inject(payloads ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inject = append(s.inject, payloads...)
}

// Requests returns a copy of the commands received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Names returns the command names received so far.
func (s *Server) Names() []string {
	reqs := s.Requests()
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name
	}
	return names
}

// Close stops the listener, drops open connections and waits for handlers.
func (s *Server) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)
	err := s.ln.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		select {
		case <-s.closed:
			s.mu.Unlock()
			_ = conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	greeting := fmt.Sprintf(`{"applicationType":"gecko","marionetteProtocol":%d}`, s.protocol)
	if err := marionette.WriteFrame(conn, greeting); err != nil {
		return
	}

	reader := bufio.NewReader(conn)
	for {
		frame, err := marionette.ReadFrame(reader)
		if err != nil {
			return
		}

		var msg []json.RawMessage
		if err := json.Unmarshal([]byte(frame), &msg); err != nil || len(msg) != 4 {
			return
		}
		var req Request
		if json.Unmarshal(msg[1], &req.ID) != nil || json.Unmarshal(msg[2], &req.Name) != nil {
			return
		}
		req.Args = msg[3]

		s.mu.Lock()
		s.requests = append(s.requests, req)
		injected := s.inject
		s.inject = nil
		s.mu.Unlock()

		for _, payload := range injected {
			if err := marionette.WriteFrame(conn, payload); err != nil {
				return
			}
		}

		result, callErr := s.dispatch(req)
		if err := writeResponse(conn, req.ID, result, callErr); err != nil {
			return
		}
		if canonical(req.Name) == "Marionette:Quit" && callErr == nil {
			return
		}
	}
}

func writeResponse(w io.Writer, id uint64, result any, callErr *marionette.CallError) error {
	var envelope []any
	if callErr != nil {
		envelope = []any{1, id, callErr, nil}
	} else {
		if result == nil {
			result = map[string]any{}
		}
		envelope = []any{1, id, nil, result}
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return marionette.WriteFrame(w, string(data))
}

// dispatch resolves the command name for the server's scheme and runs it.
func (s *Server) dispatch(req Request) (any, *marionette.CallError) {
	name := req.Name
	isWebDriver := strings.Contains(name, ":") && !strings.HasPrefix(name, "addon:")
	if s.legacy == isWebDriver {
		return nil, unknownCommand(name)
	}

	key := canonical(name)
	s.mu.Lock()
	h, ok := s.handlers[key]
	s.mu.Unlock()
	if !ok {
		h, ok = s.builtin(key)
	}
	if !ok {
		return nil, unknownCommand(name)
	}

	result, err := h(req.Args)
	if err != nil {
		var callErr *marionette.CallError
		if errors.As(err, &callErr) {
			return nil, callErr
		}
		return nil, &marionette.CallError{Code: "unknown error", Message: err.Error()}
	}
	return result, nil
}

func unknownCommand(name string) *marionette.CallError {
	return &marionette.CallError{
		Code:    "unknown command",
		Message: name,
	}
}

// legacyNames maps the legacy command names onto their WebDriver names.
var legacyNames = map[string]string{
	"newSession":          "WebDriver:NewSession",
	"get":                 "WebDriver:Navigate",
	"refresh":             "WebDriver:Refresh",
	"goBack":              "WebDriver:Back",
	"goForward":           "WebDriver:Forward",
	"getTitle":            "WebDriver:GetTitle",
	"getCurrentUrl":       "WebDriver:GetCurrentURL",
	"getPageSource":       "WebDriver:GetPageSource",
	"getWindowHandle":     "WebDriver:GetWindowHandle",
	"getWindowHandles":    "WebDriver:GetWindowHandles",
	"switchToWindow":      "WebDriver:SwitchToWindow",
	"close":               "WebDriver:CloseWindow",
	"getContext":          "Marionette:GetContext",
	"setContext":          "Marionette:SetContext",
	"executeScript":       "WebDriver:ExecuteScript",
	"executeAsyncScript":  "WebDriver:ExecuteAsyncScript",
	"timeouts":            "WebDriver:SetTimeouts",
	"findElements":        "WebDriver:FindElements",
	"findElement":         "WebDriver:FindElement",
	"getElementAttribute": "WebDriver:GetElementAttribute",
	"getElementProperty":  "WebDriver:GetElementProperty",
	"getElementText":      "WebDriver:GetElementText",
	"getActiveFrame":      "WebDriver:GetActiveFrame",
	"switchToFrame":       "WebDriver:SwitchToFrame",
	"switchToParentFrame": "WebDriver:SwitchToParentFrame",
	"log":                 "Marionette:Log",
	"getLogs":             "Marionette:GetLogs",
	"quitApplication":     "Marionette:Quit",
	"addon:install":       "Addon:Install",
}

func canonical(name string) string {
	if wd, ok := legacyNames[name]; ok {
		return wd
	}
	return name
}
