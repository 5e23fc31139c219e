package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/fatih/color"

	"github.com/equalsraf/ffcli/internal/marionette/marionettetest"
)

func init() {
	// Disable colors in tests to avoid ANSI codes in output assertions
	color.NoColor = true
}

// enableJSONOutput sets JSONOutput to true for the duration of the test.
func enableJSONOutput(t *testing.T) {
	old := JSONOutput
	JSONOutput = true
	t.Cleanup(func() { JSONOutput = old })
}

// result is the outcome of one command run.
type result struct {
	stdout string
	stderr string
	err    error
}

// captureOutput runs fn with os.Stdout and os.Stderr redirected to pipes.
func captureOutput(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	drain := func(r io.Reader, out chan<- string) {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		out <- buf.String()
	}
	outC := make(chan string, 1)
	errC := make(chan string, 1)
	go drain(rOut, outC)
	go drain(rErr, errC)

	oldOut, oldErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = wOut, wErr
	fn()
	os.Stdout, os.Stderr = oldOut, oldErr
	wOut.Close()
	wErr.Close()

	stdout, stderr = <-outC, <-errC
	rOut.Close()
	rErr.Close()
	return stdout, stderr
}

// writeConfig writes a config file that keeps the liveness probe short.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "probe_attempts = 1\nprobe_delay = \"1ms\"\n" + extra
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolateEnv keeps the user's config and $FF_PORT out of the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FF_PORT", "")
	t.Setenv("NO_COLOR", "1")
}

// runCLI executes args against srv, the way the REPL-style ExecuteArgs does.
func runCLI(t *testing.T, srv *marionettetest.Server, args ...string) result {
	t.Helper()
	return runCLIConfig(t, srv, writeConfig(t, ""), args...)
}

func runCLIConfig(t *testing.T, srv *marionettetest.Server, configPath string, args ...string) result {
	t.Helper()
	return runCLIPort(t, srv.Port(), configPath, args...)
}

func runCLIPort(t *testing.T, port int, configPath string, args ...string) result {
	t.Helper()
	isolateEnv(t)

	full := append([]string{}, args...)
	full = append(full, "--port", strconv.Itoa(port), "--config", configPath)

	var (
		recognized bool
		err        error
	)
	stdout, stderr := captureOutput(t, func() {
		recognized, err = ExecuteArgs(full)
	})
	if !recognized {
		t.Fatalf("command %q not recognized", args)
	}
	return result{stdout: stdout, stderr: stderr, err: err}
}

// mustRun is runCLI that fails the test when the command fails.
func mustRun(t *testing.T, srv *marionettetest.Server, args ...string) string {
	t.Helper()
	res := runCLI(t, srv, args...)
	if res.err != nil {
		t.Fatalf("%q failed: %v\nstderr: %s", args, res.err, res.stderr)
	}
	return res.stdout
}

func newServer(t *testing.T, opts marionettetest.Options) *marionettetest.Server {
	t.Helper()
	if opts.Pages == nil {
		opts.Pages = site()
	}
	if opts.StartURL == "" {
		opts.StartURL = "https://example.com/"
	}
	srv, err := marionettetest.NewServer(opts)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

// site is two pages; the first holds a frame with a nested frame inside.
func site() map[string]*marionettetest.Page {
	inner := &marionettetest.Page{
		Title: "inner",
		Body:  []*marionettetest.Node{{Tag: "p", ID: "deep", Text: "deep text"}},
	}
	child := &marionettetest.Page{
		Title: "child",
		Body: []*marionettetest.Node{
			{Tag: "p", ID: "para", Text: "in frame"},
			{Tag: "p", ID: "empty"},
			{Tag: "frame", ID: "nested", Frame: inner},
		},
	}
	return map[string]*marionettetest.Page{
		"https://example.com/": {
			Title:  "Example Domain",
			Source: "<html><head><title>Example Domain</title></head><body><h1>Example</h1></body></html>",
			Body: []*marionettetest.Node{
				{Tag: "h1", ID: "title", Class: "big header", Text: "Example"},
				{
					Tag:   "a",
					Text:  "More information",
					Attrs: map[string]string{"href": "https://www.iana.org/domains/example", "rel": ""},
					Props: map[string]any{"hidden": false, "tabIndex": 0, "text": "More information"},
				},
				{Tag: "iframe", ID: "frame1", Frame: child},
			},
		},
		"https://example.org/": {
			Title:  "Other",
			Source: "<html><body>other</body></html>\n",
		},
		"http://localhost:8080/": {
			Title: "Local",
		},
	}
}
