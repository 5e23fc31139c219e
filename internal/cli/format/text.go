// Package format renders command results as text.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/equalsraf/ffcli/internal/marionette"
)

func colorFprint(w io.Writer, c color.Attribute, s string) {
	color.New(c).Fprint(w, s)
}

func colorFprintf(w io.Writer, c color.Attribute, format string, args ...any) {
	color.New(c).Fprintf(w, format, args...)
}

// OutputOptions controls text formatting behavior.
type OutputOptions struct {
	UseColor bool // Enable ANSI color codes
}

// NewOutputOptions returns output options based on flags and environment.
// Priority: jsonOutput > noColorFlag > NO_COLOR env > TTY detection.
func NewOutputOptions(jsonOutput bool, noColorFlag bool) OutputOptions {
	if jsonOutput || noColorFlag {
		return OutputOptions{UseColor: false}
	}
	if os.Getenv("NO_COLOR") != "" {
		return OutputOptions{UseColor: false}
	}
	return OutputOptions{
		UseColor: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// ActionSuccess outputs "OK" for successful action commands.
func ActionSuccess(w io.Writer) error {
	_, err := fmt.Fprintln(w, "OK")
	return err
}

// ActionError outputs "Error: <message>" for failed action commands.
func ActionError(w io.Writer, msg string, opts OutputOptions) error {
	if opts.UseColor {
		colorFprint(w, color.FgRed, "Error:")
		fmt.Fprintf(w, " %s\n", msg)
	} else {
		fmt.Fprintf(w, "Error: %s\n", msg)
	}
	return nil
}

// JSONValue prints a script or property result. Null prints nothing.
// With stringsOnly set, only string values print, unquoted.
func JSONValue(w io.Writer, raw json.RawMessage, stringsOnly bool) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid JSON value: %w", err)
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if stringsOnly {
			_, err := fmt.Fprintln(w, val)
			return err
		}
	default:
		if stringsOnly {
			return nil
		}
	}

	compact, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(compact))
	return err
}

// Window is one browser window as listed by the windows command.
type Window struct {
	Handle  marionette.WindowHandle `json:"handle"`
	Title   string                  `json:"title"`
	Current bool                    `json:"current"`
}

// Windows outputs one line per window, marking the current one with "*".
func Windows(w io.Writer, windows []Window, opts OutputOptions) error {
	for _, win := range windows {
		if opts.UseColor {
			if win.Current {
				colorFprint(w, color.FgCyan, "* ")
			} else {
				fmt.Fprint(w, "  ")
			}
			colorFprint(w, color.FgCyan, string(win.Handle))
			fmt.Fprintf(w, " %q\n", win.Title)
			continue
		}

		prefix := "  "
		if win.Current {
			prefix = "* "
		}
		fmt.Fprintf(w, "%s%s %q\n", prefix, win.Handle, win.Title)
	}
	return nil
}

// Cookies outputs cookies in text format (semicolon-separated attributes).
func Cookies(w io.Writer, cookies []marionette.Cookie, opts OutputOptions) error {
	for _, c := range cookies {
		var attrs []string
		if c.Domain != "" {
			attrs = append(attrs, "domain="+c.Domain)
		}
		if c.Path != "" {
			attrs = append(attrs, "path="+c.Path)
		}
		if c.Secure {
			attrs = append(attrs, "secure")
		}
		if c.HTTPOnly {
			attrs = append(attrs, "httponly")
		}
		if c.Expiry > 0 {
			attrs = append(attrs, "expires="+time.Unix(c.Expiry, 0).UTC().Format("2006-01-02"))
		}

		if !opts.UseColor {
			parts := append([]string{c.Name + "=" + c.Value}, attrs...)
			fmt.Fprintln(w, strings.Join(parts, "; "))
			continue
		}

		colorFprint(w, color.FgCyan, c.Name)
		fmt.Fprint(w, "=", c.Value)
		for _, a := range attrs {
			fmt.Fprint(w, "; ")
			colorFprint(w, color.Faint, a)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// Logs outputs one log entry per line: time, level, message.
func Logs(w io.Writer, entries []marionette.LogEntry, opts OutputOptions) error {
	for _, e := range entries {
		if e.Time != "" {
			if opts.UseColor {
				colorFprint(w, color.Faint, e.Time)
			} else {
				fmt.Fprint(w, e.Time)
			}
			fmt.Fprint(w, " ")
		}
		if opts.UseColor {
			colorFprint(w, levelColor(e.Level), e.Level)
		} else {
			fmt.Fprint(w, e.Level)
		}
		fmt.Fprintf(w, " %s\n", e.Message)
	}
	return nil
}

func levelColor(level string) color.Attribute {
	switch strings.ToUpper(level) {
	case "ERROR", "FATAL":
		return color.FgRed
	case "WARN", "WARNING":
		return color.FgYellow
	}
	return color.FgCyan
}

// StatusData describes the connected browser session.
type StatusData struct {
	Port          int                 `json:"port"`
	SessionID     string              `json:"sessionId"`
	Compatibility string              `json:"compatibility"`
	Context       string              `json:"context"`
	Window        string              `json:"window"`
	URL           string              `json:"url"`
	Title         string              `json:"title"`
	Timeouts      marionette.Timeouts `json:"timeouts"`
	ProbeError    string              `json:"probeError,omitempty"`
}

// Status outputs session status in text format.
func Status(w io.Writer, data StatusData, opts OutputOptions) error {
	switch {
	case data.ProbeError != "" && opts.UseColor:
		colorFprintf(w, color.FgYellow, "Not responding (%s)\n", data.ProbeError)
	case data.ProbeError != "":
		fmt.Fprintf(w, "Not responding (%s)\n", data.ProbeError)
	case opts.UseColor:
		colorFprint(w, color.FgGreen, "OK\n")
	default:
		fmt.Fprintln(w, "OK")
	}

	fmt.Fprintf(w, "port: %d\n", data.Port)
	fmt.Fprintf(w, "session: %s (%s)\n", data.SessionID, data.Compatibility)
	fmt.Fprintf(w, "context: %s\n", data.Context)
	if data.Window != "" {
		fmt.Fprintf(w, "window: %s\n", data.Window)
	}
	if data.URL != "" {
		fmt.Fprintf(w, "page: %s - %s\n", data.URL, strings.TrimSpace(data.Title))
	}
	fmt.Fprintf(w, "timeouts: script=%dms page-load=%dms implicit=%dms\n",
		data.Timeouts.Script, data.Timeouts.PageLoad, data.Timeouts.Implicit)
	return nil
}
