package marionettetest

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/equalsraf/ffcli/internal/marionette"
)

type valueReply struct {
	Value any `json:"value"`
}

// builtin returns the default handler for a WebDriver command name.
func (s *Server) builtin(name string) (HandlerFunc, bool) {
	var fn func(args json.RawMessage) (any, error)
	switch name {
	case "WebDriver:NewSession":
		fn = s.newSession
	case "WebDriver:Navigate":
		fn = s.navigate
	case "WebDriver:Refresh":
		fn = func(json.RawMessage) (any, error) { return nil, nil }
	case "WebDriver:Back":
		fn = s.back
	case "WebDriver:Forward":
		fn = s.forward
	case "WebDriver:GetTitle":
		fn = s.locked(func(b *browserState) any { return valueReply{b.page().Title} })
	case "WebDriver:GetCurrentURL":
		fn = s.locked(func(b *browserState) any { return valueReply{b.url()} })
	case "WebDriver:GetPageSource":
		fn = s.locked(func(b *browserState) any { return valueReply{b.page().Source} })
	case "WebDriver:GetWindowHandle":
		fn = s.locked(func(b *browserState) any { return valueReply{b.windows[b.window]} })
	case "WebDriver:GetWindowHandles":
		fn = s.locked(func(b *browserState) any { return s.list(append([]string{}, b.windows...)) })
	case "WebDriver:SwitchToWindow":
		fn = s.switchToWindow
	case "WebDriver:CloseWindow":
		fn = s.closeWindow
	case "Marionette:GetContext":
		fn = s.locked(func(b *browserState) any { return valueReply{b.context.String()} })
	case "Marionette:SetContext":
		fn = s.setContext
	case "WebDriver:ExecuteScript":
		fn = s.executeScript(false)
	case "WebDriver:ExecuteAsyncScript":
		fn = s.executeScript(true)
	case "WebDriver:SetTimeouts":
		fn = s.setTimeouts
	case "WebDriver:FindElements":
		fn = s.findElements
	case "WebDriver:FindElement":
		fn = s.findElement
	case "WebDriver:GetElementAttribute":
		fn = s.elementAttribute
	case "WebDriver:GetElementProperty":
		fn = s.elementProperty
	case "WebDriver:GetElementText":
		fn = s.elementText
	case "WebDriver:GetActiveFrame":
		fn = s.activeFrame
	case "WebDriver:SwitchToFrame":
		fn = s.switchToFrame
	case "WebDriver:SwitchToParentFrame":
		fn = s.locked(func(b *browserState) any {
			if len(b.frames) > 0 {
				b.frames = b.frames[:len(b.frames)-1]
			}
			return nil
		})
	case "WebDriver:AddCookie":
		fn = s.addCookie
	case "WebDriver:GetCookies":
		fn = s.locked(func(b *browserState) any { return append([]marionette.Cookie{}, b.cookies...) })
	case "WebDriver:DeleteCookie":
		fn = s.deleteCookie
	case "Marionette:Log":
		fn = s.log
	case "Marionette:GetLogs":
		fn = s.locked(func(b *browserState) any {
			entries := make([][]string, len(b.logs))
			copy(entries, b.logs)
			return s.list(entries)
		})
	case "Marionette:Quit":
		fn = func(json.RawMessage) (any, error) { return map[string]any{"cause": "shutdown"}, nil }
	case "Addon:Install":
		fn = s.installAddon
	default:
		return nil, false
	}
	return fn, true
}

// locked adapts a state accessor that cannot fail.
func (s *Server) locked(fn func(b *browserState) any) HandlerFunc {
	return func(json.RawMessage) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.b), nil
	}
}

// list replies bare for WebDriver servers and wrapped for legacy ones.
func (s *Server) list(v any) any {
	if s.legacy {
		return valueReply{v}
	}
	return v
}

func decode(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return &marionette.CallError{Code: "invalid argument", Message: err.Error()}
	}
	return nil
}

// Prefs returns the value of a preference set through the server.
func (s *Server) Prefs(name string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.prefs[name]
}

// SetPrefs seeds preference values.
func (s *Server) SetPrefs(prefs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range prefs {
		data, _ := json.Marshal(v)
		s.b.prefs[k] = data
	}
}

// Context returns the current context of the fake browser.
func (s *Server) Context() marionette.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.context
}

// Addons returns the paths of installed addons.
func (s *Server) Addons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.b.addons...)
}

// Timeouts returns the timeouts last set on the server.
func (s *Server) Timeouts() marionette.Timeouts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.timeouts
}

// OpenWindow adds a window handle.
func (s *Server) OpenWindow(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.windows = append(s.b.windows, handle)
}

func (s *Server) newSession(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"sessionId": "session-1",
		"capabilities": map[string]any{
			"browserName": "firefox",
			"timeouts":    s.b.timeouts,
		},
	}, nil
}

func (s *Server) navigate(args json.RawMessage) (any, error) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	if req.URL == "" {
		return nil, &marionette.CallError{Code: "invalid argument", Message: "missing url"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.navigate(req.URL)
	return nil, nil
}

func (s *Server) log(args json.RawMessage) (any, error) {
	var req struct {
		Value string `json:"value"`
		Level string `json:"level"`
	}
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	if req.Level == "" {
		req.Level = "INFO"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := fmt.Sprintf("2026-01-01T00:00:%02dZ", len(s.b.logs)%60)
	s.b.logs = append(s.b.logs, []string{req.Level, req.Value, stamp})
	return nil, nil
}

func (s *Server) back(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b.position > 0 {
		s.b.position--
		s.b.frames = nil
	}
	return nil, nil
}

func (s *Server) forward(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b.position < len(s.b.history)-1 {
		s.b.position++
		s.b.frames = nil
	}
	return nil, nil
}

func (s *Server) switchToWindow(args json.RawMessage) (any, error) {
	var req struct {
		Name   string `json:"name"`
		Handle string `json:"handle"`
	}
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	target := req.Handle
	if target == "" {
		target = req.Name
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.b.windows {
		if w == target {
			s.b.window = i
			return nil, nil
		}
	}
	return nil, &marionette.CallError{Code: "no such window", Message: target}
}

func (s *Server) closeWindow(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.b
	b.windows = append(b.windows[:b.window], b.windows[b.window+1:]...)
	b.window = 0
	remaining := append([]string{}, b.windows...)
	if len(b.windows) == 0 {
		b.windows = []string{"window-closed"}
	}
	return s.list(remaining), nil
}

func (s *Server) setContext(args json.RawMessage) (any, error) {
	var req valueReply
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	name, _ := req.Value.(string)
	ctx, err := marionette.ParseContext(name)
	if err != nil {
		return nil, &marionette.CallError{Code: "invalid argument", Message: err.Error()}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.context = ctx
	return nil, nil
}

func (s *Server) setTimeouts(args json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.b.timeouts
	if err := decode(args, &t); err != nil {
		return nil, err
	}
	s.b.timeouts = t
	return nil, nil
}

func (s *Server) executeScript(async bool) HandlerFunc {
	return func(args json.RawMessage) (any, error) {
		var req struct {
			Script  string            `json:"script"`
			Sandbox string            `json:"sandbox"`
			Args    []json.RawMessage `json:"args"`
		}
		if err := decode(args, &req); err != nil {
			return nil, err
		}

		s.mu.Lock()
		fn, ok := s.scripts[strings.TrimSpace(req.Script)]
		call := ScriptCall{
			Source:  req.Script,
			Sandbox: req.Sandbox,
			Args:    req.Args,
			Async:   async,
			Context: s.b.context,
		}
		s.mu.Unlock()

		if !ok {
			if strings.Contains(req.Script, "Services.prefs") {
				fn = s.prefScript
			} else {
				return nil, &marionette.CallError{
					Code:    "javascript error",
					Message: "no script registered for " + truncate(req.Script),
				}
			}
		}
		value, err := fn(call)
		if err != nil {
			return nil, err
		}
		return valueReply{value}, nil
	}
}

// prefScript emulates the preference scripts run through Services.prefs.
func (s *Server) prefScript(call ScriptCall) (any, error) {
	if call.Context != marionette.Chrome || call.Sandbox != "system" {
		return nil, &marionette.CallError{Code: "javascript error", Message: "ReferenceError: Services is not defined"}
	}
	if len(call.Args) == 0 {
		return nil, &marionette.CallError{Code: "javascript error", Message: "missing preference name"}
	}
	var name string
	if err := json.Unmarshal(call.Args[0], &name); err != nil {
		return nil, &marionette.CallError{Code: "javascript error", Message: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(call.Args) == 1 {
		if v, ok := s.b.prefs[name]; ok {
			return v, nil
		}
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(call.Args[1], &value); err != nil {
		return nil, &marionette.CallError{Code: "javascript error", Message: err.Error()}
	}
	switch v := value.(type) {
	case string, bool:
	case float64:
		if v != math.Trunc(v) {
			return nil, &marionette.CallError{Code: "javascript error", Message: fmt.Sprintf("TypeError: preference %s must be an integer, got %v", name, v)}
		}
	default:
		return nil, &marionette.CallError{Code: "javascript error", Message: fmt.Sprintf("TypeError: unsupported preference type %T", v)}
	}
	s.b.prefs[name] = call.Args[1]
	return nil, nil
}

type findArgs struct {
	Using   string  `json:"using"`
	Value   string  `json:"value"`
	Element *string `json:"element"`
}

func (s *Server) search(args json.RawMessage) ([]*Node, error) {
	var req findArgs
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	var root *Node
	if req.Element != nil {
		n, err := s.b.lookup(*req.Element)
		if err != nil {
			return nil, err
		}
		root = n
	}
	return s.b.find(req.Using, req.Value, root)
}

func (s *Server) findElements(args json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, err := s.search(args)
	if err != nil {
		return nil, err
	}
	refs := make([]map[string]string, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, s.b.encodeRef(n))
	}
	return s.list(refs), nil
}

func (s *Server) findElement(args json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, err := s.search(args)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &marionette.CallError{Code: "no such element", Message: "Unable to locate element"}
	}
	return valueReply{s.b.encodeRef(nodes[0])}, nil
}

type elementReq struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) element(args json.RawMessage) (*Node, elementReq, error) {
	var req elementReq
	if err := decode(args, &req); err != nil {
		return nil, req, err
	}
	n, err := s.b.lookup(req.ID)
	return n, req, err
}

func (s *Server) elementAttribute(args json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, req, err := s.element(args)
	if err != nil {
		return nil, err
	}
	if v, ok := n.attribute(req.Name); ok {
		return valueReply{v}, nil
	}
	return valueReply{nil}, nil
}

func (s *Server) elementProperty(args json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, req, err := s.element(args)
	if err != nil {
		return nil, err
	}
	return valueReply{n.Props[req.Name]}, nil
}

func (s *Server) elementText(args json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, err := s.element(args)
	if err != nil {
		return nil, err
	}
	return valueReply{n.Text}, nil
}

func (s *Server) activeFrame(json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.b.frames) == 0 {
		return valueReply{nil}, nil
	}
	return valueReply{s.b.encodeRef(s.b.frames[len(s.b.frames)-1])}, nil
}

func (s *Server) switchToFrame(args json.RawMessage) (any, error) {
	var req struct {
		Element *string `json:"element"`
	}
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Element == nil {
		s.b.frames = nil
		return nil, nil
	}
	n, err := s.b.lookup(*req.Element)
	if err != nil {
		return nil, err
	}
	if n.Frame == nil {
		return nil, &marionette.CallError{Code: "no such frame", Message: "element is not a frame"}
	}
	s.b.frames = append(s.b.frames, n)
	return nil, nil
}

func (s *Server) addCookie(args json.RawMessage) (any, error) {
	var req struct {
		Cookie marionette.Cookie `json:"cookie"`
	}
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.cookies = removeCookie(s.b.cookies, req.Cookie.Name)
	s.b.cookies = append(s.b.cookies, req.Cookie)
	return nil, nil
}

func (s *Server) deleteCookie(args json.RawMessage) (any, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.cookies = removeCookie(s.b.cookies, req.Name)
	return nil, nil
}

func removeCookie(cookies []marionette.Cookie, name string) []marionette.Cookie {
	out := cookies[:0]
	for _, c := range cookies {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) installAddon(args json.RawMessage) (any, error) {
	var req struct {
		Path      string `json:"path"`
		Temporary bool   `json:"temporary"`
	}
	if err := decode(args, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.addons = append(s.b.addons, req.Path)
	return valueReply{fmt.Sprintf("addon-%d@marionettetest", len(s.b.addons))}, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
