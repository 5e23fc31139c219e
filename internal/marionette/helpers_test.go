package marionette_test

import (
	"context"
	"testing"
	"time"

	"github.com/equalsraf/ffcli/internal/marionette"
	"github.com/equalsraf/ffcli/internal/marionette/marionettetest"
)

func testConfig() marionette.Config {
	cfg := marionette.DefaultConfig()
	cfg.ProbeAttempts = 1
	cfg.ProbeDelay = time.Millisecond
	return cfg
}

func newServer(t *testing.T, opts marionettetest.Options) *marionettetest.Server {
	t.Helper()
	srv, err := marionettetest.NewServer(opts)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func dial(t *testing.T, srv *marionettetest.Server, cfg marionette.Config) *marionette.Client {
	t.Helper()
	c, err := marionette.Dial(context.Background(), srv.Port(), cfg)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newTestClient starts a server and returns a client connected to it.
func newTestClient(t *testing.T, opts marionettetest.Options) (*marionette.Client, *marionettetest.Server) {
	t.Helper()
	srv := newServer(t, opts)
	return dial(t, srv, testConfig()), srv
}

// testPages is a small site with a nested frame tree.
func testPages() map[string]*marionettetest.Page {
	inner := &marionettetest.Page{
		Title: "inner",
		Body: []*marionettetest.Node{
			{Tag: "p", ID: "deep", Text: "deep text"},
		},
	}
	child := &marionettetest.Page{
		Title: "child",
		Body: []*marionettetest.Node{
			{Tag: "p", ID: "para", Text: "in frame"},
			{Tag: "frame", ID: "nested", Frame: inner},
		},
	}
	return map[string]*marionettetest.Page{
		"https://example.com/": {
			Title:  "Example Domain",
			Source: "<html><head><title>Example Domain</title></head><body><h1>Example</h1></body></html>",
			Body: []*marionettetest.Node{
				{
					Tag: "body",
					Children: []*marionettetest.Node{
						{Tag: "h1", ID: "title", Class: "big header", Text: "Example"},
						{
							Tag:   "a",
							Text:  "More information",
							Attrs: map[string]string{"href": "https://www.iana.org/domains/example", "name": "more"},
							Props: map[string]any{"hidden": false, "tabIndex": 0},
						},
						{Tag: "iframe", ID: "frame1", Frame: child},
					},
				},
			},
		},
		"https://example.org/": {Title: "Example Org"},
	}
}
