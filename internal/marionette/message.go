package marionette

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Message type tags in the first element of every envelope.
const (
	msgTypeCommand  = 0
	msgTypeResponse = 1
)

// elementKey is the W3C WebDriver web element identifier.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// serverInfo is the greeting sent by the server on connect.
type serverInfo struct {
	Protocol        int64  `json:"marionetteProtocol"`
	ApplicationType string `json:"applicationType,omitempty"`
}

// newSessionResponse is the reply to newSession / WebDriver:NewSession.
type newSessionResponse struct {
	SessionID    string          `json:"sessionId"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
}

type empty struct{}

// valueResponse unwraps the {"value": T} envelope most replies use.
type valueResponse[T any] struct {
	Value T `json:"value"`
}

// Compatibility selects the command naming scheme of a connection.
type Compatibility int

const (
	// WebDriver uses the "WebDriver:*" / "Marionette:*" command names.
	WebDriver Compatibility = iota
	// Legacy uses the pre-WebDriver camelCase command names.
	Legacy
)

// String returns a human-readable name for the compatibility mode.
func (c Compatibility) String() string {
	switch c {
	case WebDriver:
		return "webdriver"
	case Legacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Timeouts mirrors the server-side timeouts, in milliseconds.
type Timeouts struct {
	Script   uint64 `json:"script"`
	PageLoad uint64 `json:"pageLoad"`
	Implicit uint64 `json:"implicit"`
}

// ElementRef is an opaque, server-issued element reference.
type ElementRef string

// MarshalJSON writes both the legacy and the WebDriver element keys.
func (e ElementRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"ELEMENT":  string(e),
		elementKey: string(e),
	})
}

// UnmarshalJSON reads the WebDriver element key and ignores anything else.
func (e *ElementRef) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	raw, ok := obj[elementKey]
	if !ok {
		return fmt.Errorf("marionette: element reference without %q", elementKey)
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return err
	}
	*e = ElementRef(id)
	return nil
}

// WindowHandle identifies a browsing context (window or tab).
type WindowHandle string

// MarshalJSON writes the id under "name" and "handle"; servers read one or the other.
func (w WindowHandle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string `json:"name"`
		Handle string `json:"handle"`
	}{string(w), string(w)})
}

// UnmarshalJSON accepts a bare string or an object with handle, name or value.
func (w *WindowHandle) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = WindowHandle(s)
		return nil
	}
	var obj struct {
		Handle string `json:"handle"`
		Name   string `json:"name"`
		Value  string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.Handle != "":
		*w = WindowHandle(obj.Handle)
	case obj.Name != "":
		*w = WindowHandle(obj.Name)
	default:
		*w = WindowHandle(obj.Value)
	}
	return nil
}

// Context is the realm scripts and element queries run in.
type Context int

const (
	// Content is web content, such as a page or frame.
	Content Context = iota
	// Chrome is the privileged browser UI.
	Chrome
)

// String returns the wire name of the context.
func (c Context) String() string {
	if c == Chrome {
		return "chrome"
	}
	return "content"
}

// ParseContext maps a wire name onto a Context.
func ParseContext(s string) (Context, error) {
	switch s {
	case "chrome":
		return Chrome, nil
	case "content":
		return Content, nil
	default:
		return Content, &UnsupportedContextError{Value: s}
	}
}

// QueryMethod is an element location strategy.
type QueryMethod int

const (
	ByID QueryMethod = iota
	ByName
	ByClassName
	ByTagName
	ByCSSSelector
	ByLinkText
	ByPartialLinkText
	ByXPath
)

var queryMethodNames = [...]string{
	ByID:              "id",
	ByName:            "name",
	ByClassName:       "class name",
	ByTagName:         "tag name",
	ByCSSSelector:     "css selector",
	ByLinkText:        "link text",
	ByPartialLinkText: "partial link text",
	ByXPath:           "xpath",
}

// String returns the wire name of the strategy.
func (m QueryMethod) String() string {
	if m < 0 || int(m) >= len(queryMethodNames) {
		return "unknown"
	}
	return queryMethodNames[m]
}

// MarshalJSON writes the wire name.
func (m QueryMethod) MarshalJSON() ([]byte, error) {
	if m < 0 || int(m) >= len(queryMethodNames) {
		return nil, fmt.Errorf("marionette: invalid query method %d", int(m))
	}
	return json.Marshal(queryMethodNames[m])
}

// ParseQueryMethod accepts the wire name or a dashed/underscored variant
// ("css", "css-selector", "partial_link_text").
func ParseQueryMethod(s string) (QueryMethod, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(strings.TrimSpace(s)))
	if norm == "css" {
		return ByCSSSelector, nil
	}
	for i, name := range queryMethodNames {
		if name == norm {
			return QueryMethod(i), nil
		}
	}
	return 0, fmt.Errorf("unknown query method %q", s)
}

// findElementsArgs is the argument shape of findElements.
type findElementsArgs struct {
	Using   QueryMethod `json:"using"`
	Value   string      `json:"value"`
	Element *string     `json:"element,omitempty"`
}

// elementArgs addresses one element, optionally with an attribute or property name.
type elementArgs struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Script is a unit of remote JavaScript execution.
type Script struct {
	source  string
	sandbox string
	args    json.RawMessage
	timeout *uint64
	fresh   bool
}

// NewScript returns a script running in the "default" sandbox with no arguments.
func NewScript(source string) *Script {
	return &Script{
		source:  source,
		sandbox: "default",
		args:    json.RawMessage("[]"),
	}
}

// Source returns the script text.
func (s *Script) Source() string { return s.source }

// SetSandbox selects the named sandbox.
func (s *Script) SetSandbox(name string) *Script {
	s.sandbox = name
	return s
}

// SystemSandbox runs the script with chrome privileges.
func (s *Script) SystemSandbox() *Script {
	return s.SetSandbox("system")
}

// NewSandbox requests a fresh sandbox instead of reusing a named one.
func (s *Script) NewSandbox(fresh bool) *Script {
	s.fresh = fresh
	return s
}

// SetTimeout sets the per-call script timeout in milliseconds. Only older
// servers honour it; newer ones use SetTimeouts.
func (s *Script) SetTimeout(ms uint64) *Script {
	s.timeout = &ms
	return s
}

// SetArguments sets the script arguments. args must encode to a JSON array;
// nil encodes as an empty array.
func (s *Script) SetArguments(args any) error {
	if args == nil {
		s.args = json.RawMessage("[]")
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal script arguments: %w", err)
	}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		data = []byte("[]")
	}
	if data[0] != '[' {
		return fmt.Errorf("script arguments must be a JSON array, got %s", data)
	}
	s.args = data
	return nil
}

// MarshalJSON writes the executeScript argument object.
func (s *Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Script        string          `json:"script"`
		Sandbox       string          `json:"sandbox"`
		Args          json.RawMessage `json:"args"`
		NewSandbox    bool            `json:"newSandbox,omitempty"`
		ScriptTimeout *uint64         `json:"scriptTimeout,omitempty"`
	}{
		Script:        s.source,
		Sandbox:       s.sandbox,
		Args:          s.args,
		NewSandbox:    s.fresh,
		ScriptTimeout: s.timeout,
	})
}

// Cookie is a browser cookie. Only Name and Value are guaranteed to round trip.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Expiry   int64  `json:"expiry,omitempty"`
}

// LogMsg is a message stored in the server's log buffer.
type LogMsg struct {
	Value string `json:"value"`
	Level string `json:"level"`
}

// NewLogMsg returns an INFO level message.
func NewLogMsg(value string) LogMsg {
	return LogMsg{Value: value, Level: "INFO"}
}

// LogEntry is one record of the server's log buffer.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// UnmarshalJSON accepts the [level, message, time] triple servers send, or
// an object with the same fields.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		type plain LogEntry
		return json.Unmarshal(data, (*plain)(e))
	}
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) < 2 {
		return fmt.Errorf("log entry has %d fields, want at least 2", len(fields))
	}
	targets := []*string{&e.Level, &e.Message, &e.Time}
	for i, raw := range fields {
		if i == len(targets) {
			break
		}
		// Messages may be any JSON value; keep non-strings as their JSON text.
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			*targets[i] = string(bytes.TrimSpace(raw))
		}
	}
	return nil
}

// decodeList decodes a list reply that may arrive bare or wrapped in {"value": [...]}.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	var out []T
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped valueResponse[[]T]
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		out = wrapped.Value
	} else if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
