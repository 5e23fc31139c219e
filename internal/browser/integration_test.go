//go:build integration

package browser

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/equalsraf/ffcli/internal/marionette"
)

// Requires a Firefox started with --marionette. FF_PORT selects the port.
func marionettePort(t *testing.T) int {
	t.Helper()
	port := marionette.DefaultPort
	if v := os.Getenv("FF_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			t.Fatalf("invalid FF_PORT %q: %v", v, err)
		}
		port = p
	}
	if !PortOpen(context.Background(), port) {
		t.Skipf("no marionette server on port %d", port)
	}
	return port
}

func TestWaitForMarionette_RealBrowser(t *testing.T) {
	port := marionettePort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := WaitForMarionette(ctx, port, marionette.DefaultConfig(), WaitOptions{})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer c.Close()

	t.Logf("session %s (%s)", c.SessionID(), c.Compatibility())
	if c.ProbeErr() != nil {
		t.Errorf("probe failed: %v", c.ProbeErr())
	}
}

func TestRealBrowser_NavigateAndQuery(t *testing.T) {
	port := marionettePort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := WaitForMarionette(ctx, port, marionette.DefaultConfig(), WaitOptions{})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer c.Close()

	if err := c.Navigate("https://example.com/"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	title, err := c.Title()
	if err != nil {
		t.Fatalf("title: %v", err)
	}
	t.Logf("title: %s", title)

	if _, err := c.FindElement(marionette.ByTagName, "body", nil); err != nil {
		t.Errorf("find body: %v", err)
	}
	result, err := c.ExecuteScript(marionette.NewScript("return 1+1"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(result) != "2" {
		t.Errorf("expected 2, got %s", result)
	}
}
