package marionette

import (
	"encoding/json"
	"fmt"
)

// Navigate loads url in the current browsing context and waits for the
// page load strategy of the session.
func (c *Client) Navigate(url string) error {
	args := struct {
		URL string `json:"url"`
	}{url}
	return c.call(c.pick("get", "WebDriver:Navigate"), args, nil)
}

// Refresh reloads the current page.
func (c *Client) Refresh() error {
	return c.call(c.pick("refresh", "WebDriver:Refresh"), nil, nil)
}

// GoBack goes to the previous page in history.
func (c *Client) GoBack() error {
	return c.call(c.pick("goBack", "WebDriver:Back"), nil, nil)
}

// GoForward goes to the next page in history.
func (c *Client) GoForward() error {
	return c.call(c.pick("goForward", "WebDriver:Forward"), nil, nil)
}

// Title returns the title of the current page.
func (c *Client) Title() (string, error) {
	var resp valueResponse[string]
	err := c.call(c.pick("getTitle", "WebDriver:GetTitle"), nil, &resp)
	return resp.Value, err
}

// URL returns the URL of the current page.
func (c *Client) URL() (string, error) {
	var resp valueResponse[string]
	err := c.call(c.pick("getCurrentUrl", "WebDriver:GetCurrentURL"), nil, &resp)
	return resp.Value, err
}

// PageSource returns the serialized DOM of the current page.
func (c *Client) PageSource() (string, error) {
	var resp valueResponse[string]
	err := c.call(c.pick("getPageSource", "WebDriver:GetPageSource"), nil, &resp)
	return resp.Value, err
}

// WindowHandle returns the handle of the current window.
func (c *Client) WindowHandle() (WindowHandle, error) {
	var resp valueResponse[WindowHandle]
	err := c.call(c.pick("getWindowHandle", "WebDriver:GetWindowHandle"), nil, &resp)
	return resp.Value, err
}

// WindowHandles returns the handles of all windows in the current context.
func (c *Client) WindowHandles() ([]WindowHandle, error) {
	var raw json.RawMessage
	if err := c.call(c.pick("getWindowHandles", "WebDriver:GetWindowHandles"), nil, &raw); err != nil {
		return nil, err
	}
	handles, err := decodeList[WindowHandle](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode window handles: %w", err)
	}
	return handles, nil
}

// SwitchToWindow makes win the current browsing context.
func (c *Client) SwitchToWindow(win WindowHandle) error {
	return c.call(c.pick("switchToWindow", "WebDriver:SwitchToWindow"), win, nil)
}

// CloseWindow closes the current window and returns the remaining handles.
func (c *Client) CloseWindow() ([]WindowHandle, error) {
	var raw json.RawMessage
	if err := c.call(c.pick("close", "WebDriver:CloseWindow"), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[WindowHandle](raw)
}

// SwitchToFrame focuses the frame element frame, or the top-level browsing
// context when frame is nil.
func (c *Client) SwitchToFrame(frame *ElementRef) error {
	args := struct {
		Focus   bool    `json:"focus"`
		Element *string `json:"element,omitempty"`
	}{Focus: true}
	if frame != nil {
		id := string(*frame)
		args.Element = &id
	}
	return c.call(c.pick("switchToFrame", "WebDriver:SwitchToFrame"), args, nil)
}

// SwitchToParentFrame focuses the parent of the current frame.
func (c *Client) SwitchToParentFrame() error {
	return c.call(c.pick("switchToParentFrame", "WebDriver:SwitchToParentFrame"), nil, nil)
}

// ActiveFrame returns the element of the current frame, or nil at the top level.
func (c *Client) ActiveFrame() (*ElementRef, error) {
	var resp valueResponse[*ElementRef]
	err := c.call(c.pick("getActiveFrame", "WebDriver:GetActiveFrame"), nil, &resp)
	return resp.Value, err
}

// Context returns the realm commands currently run in.
func (c *Client) Context() (Context, error) {
	var resp valueResponse[string]
	if err := c.call(c.pick("getContext", "Marionette:GetContext"), nil, &resp); err != nil {
		return Content, err
	}
	return ParseContext(resp.Value)
}

// SetContext switches the realm commands run in.
func (c *Client) SetContext(ctx Context) error {
	args := valueResponse[string]{Value: ctx.String()}
	return c.call(c.pick("setContext", "Marionette:SetContext"), args, nil)
}

// ExecuteScript runs s synchronously and returns its JSON return value.
func (c *Client) ExecuteScript(s *Script) (json.RawMessage, error) {
	return c.runScript(c.pick("executeScript", "WebDriver:ExecuteScript"), s)
}

// ExecuteAsyncScript runs s and waits for it to signal completion. Legacy
// servers expect the script to call marionetteScriptFinished(value); WebDriver
// servers pass a resolve callback as the last argument.
func (c *Client) ExecuteAsyncScript(s *Script) (json.RawMessage, error) {
	return c.runScript(c.pick("executeAsyncScript", "WebDriver:ExecuteAsyncScript"), s)
}

func (c *Client) runScript(name string, s *Script) (json.RawMessage, error) {
	var resp valueResponse[json.RawMessage]
	if err := c.call(name, s, &resp); err != nil {
		return nil, err
	}
	if resp.Value == nil {
		return json.RawMessage("null"), nil
	}
	return resp.Value, nil
}

// FindElements returns all elements matching target, searching inside
// within when it is not nil.
func (c *Client) FindElements(method QueryMethod, target string, within *ElementRef) ([]ElementRef, error) {
	args := findElementsArgs{Using: method, Value: target}
	if within != nil {
		id := string(*within)
		args.Element = &id
	}
	var raw json.RawMessage
	if err := c.call(c.pick("findElements", "WebDriver:FindElements"), args, &raw); err != nil {
		return nil, err
	}
	refs, err := decodeList[ElementRef](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode element references: %w", err)
	}
	return refs, nil
}

// FindElement returns the first element matching target. The server
// reports "no such element" as a CallError.
func (c *Client) FindElement(method QueryMethod, target string, within *ElementRef) (ElementRef, error) {
	args := findElementsArgs{Using: method, Value: target}
	if within != nil {
		id := string(*within)
		args.Element = &id
	}
	var resp valueResponse[ElementRef]
	err := c.call(c.pick("findElement", "WebDriver:FindElement"), args, &resp)
	return resp.Value, err
}

// ElementAttribute returns the named attribute of elem. The boolean is
// false when the element has no such attribute.
func (c *Client) ElementAttribute(elem ElementRef, name string) (string, bool, error) {
	var resp valueResponse[*string]
	args := elementArgs{ID: string(elem), Name: name}
	if err := c.call(c.pick("getElementAttribute", "WebDriver:GetElementAttribute"), args, &resp); err != nil {
		return "", false, err
	}
	if resp.Value == nil {
		return "", false, nil
	}
	return *resp.Value, true, nil
}

// ElementProperty returns the named DOM property of elem as raw JSON.
// A missing property is JSON null.
func (c *Client) ElementProperty(elem ElementRef, name string) (json.RawMessage, error) {
	var resp valueResponse[json.RawMessage]
	args := elementArgs{ID: string(elem), Name: name}
	if err := c.call(c.pick("getElementProperty", "WebDriver:GetElementProperty"), args, &resp); err != nil {
		return nil, err
	}
	if resp.Value == nil {
		return json.RawMessage("null"), nil
	}
	return resp.Value, nil
}

// ElementText returns the rendered text of elem.
func (c *Client) ElementText(elem ElementRef) (string, error) {
	var resp valueResponse[string]
	args := elementArgs{ID: string(elem)}
	err := c.call(c.pick("getElementText", "WebDriver:GetElementText"), args, &resp)
	return resp.Value, err
}

// SetTimeouts pushes t to the server and caches it on success.
func (c *Client) SetTimeouts(t Timeouts) error {
	if err := c.call(c.pick("timeouts", "WebDriver:SetTimeouts"), t, nil); err != nil {
		return err
	}
	c.timeouts = t
	return nil
}

// Log stores msg in the server's log buffer.
func (c *Client) Log(msg LogMsg) error {
	return c.call(c.pick("log", "Marionette:Log"), msg, nil)
}

// Logs returns the entries of the server's log buffer.
func (c *Client) Logs() ([]LogEntry, error) {
	var raw json.RawMessage
	if err := c.call(c.pick("getLogs", "Marionette:GetLogs"), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[LogEntry](raw)
}

// AddCookie adds a cookie to the current document. WebDriver servers only.
func (c *Client) AddCookie(cookie Cookie) error {
	if c.compat == Legacy {
		return fmt.Errorf("add cookie: %w", ErrNotSupported)
	}
	args := struct {
		Cookie Cookie `json:"cookie"`
	}{cookie}
	return c.call("WebDriver:AddCookie", args, nil)
}

// Cookies returns the cookies visible to the current document. WebDriver servers only.
func (c *Client) Cookies() ([]Cookie, error) {
	if c.compat == Legacy {
		return nil, fmt.Errorf("get cookies: %w", ErrNotSupported)
	}
	var raw json.RawMessage
	if err := c.call("WebDriver:GetCookies", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Cookie](raw)
}

// DeleteCookie removes the named cookie. WebDriver servers only.
func (c *Client) DeleteCookie(name string) error {
	if c.compat == Legacy {
		return fmt.Errorf("delete cookie: %w", ErrNotSupported)
	}
	args := struct {
		Name string `json:"name"`
	}{name}
	return c.call("WebDriver:DeleteCookie", args, nil)
}

// Quit asks the browser to exit and closes the connection. The Client
// cannot be used afterwards.
func (c *Client) Quit() error {
	args := struct {
		Flags []string `json:"flags"`
	}{[]string{"eAttemptQuit"}}
	err := c.call(c.pick("quitApplication", "Marionette:Quit"), args, nil)
	c.finish("Quit")
	return err
}

// InstallAddon installs the XPI at path (an absolute path on the browser's
// machine) and returns the addon id. The Client cannot be used afterwards.
func (c *Client) InstallAddon(path string, temporary bool) (string, error) {
	args := struct {
		Path      string `json:"path"`
		Temporary bool   `json:"temporary"`
	}{path, temporary}
	var resp valueResponse[string]
	err := c.call(c.pick("addon:install", "Addon:Install"), args, &resp)
	c.finish("InstallAddon")
	return resp.Value, err
}

// finish moves the client into its terminal state.
func (c *Client) finish(op string) {
	c.mu.Lock()
	c.done = op
	c.mu.Unlock()
	_ = c.conn.Close()
}
