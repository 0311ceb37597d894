package tui

import (
	"context"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/chat"
	"github.com/xonecas/typecast/internal/config"
	"github.com/xonecas/typecast/internal/provider"
	"github.com/xonecas/typecast/internal/render"
	"github.com/xonecas/typecast/internal/scroll"
	"github.com/xonecas/typecast/internal/selection"
	"github.com/xonecas/typecast/internal/server"
	"github.com/xonecas/typecast/internal/store"
)

// Test constants for consistent terminal dimensions
const (
	TestTerminalWidth  = 100
	TestTerminalHeight = 30
)

var ansiStripRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiStripRegex.ReplaceAllString(s, "")
}

// setupTestModel wires a model to a real server backed by a mock provider
// that replies with chunks.
func setupTestModel(t *testing.T, chunks ...string) (Model, func()) {
	t.Helper()
	return setupTestModelWithFactory(t, provider.NewMockFactory("mock", chunks...))
}

// failingFactory hands out providers whose stream fails after n chunks.
type failingFactory struct {
	chunks []string
	after  int
	err    error
}

func (f failingFactory) Name() string { return "mock" }

func (f failingFactory) Create(model string, temperature float64) provider.Provider {
	return provider.NewMock("mock", f.chunks...).WithFailureAfter(f.after, f.err)
}

func setupTestModelWithFactory(t *testing.T, factory provider.Factory) (Model, func()) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)

	reg := provider.NewRegistry()
	reg.RegisterFactory("mock", factory)
	srv := httptest.NewServer(server.New(server.Options{
		Registry: reg,
		Provider: "mock",
		Catalog: server.NewCatalog(map[string]config.ModelConfig{
			"gemini-2.0-flash": {Name: "Gemini 2.0 Flash"},
			"gemini-2.5-pro":   {Name: "Gemini 2.5 Pro"},
		}, "gemini-2.0-flash"),
	}).Handler())

	s, err := store.OpenMemory()
	if err != nil {
		srv.Close()
		t.Fatalf("open store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := api.New(srv.URL, time.Second)

	selector := selection.New(client, s)
	if err := selector.Load(ctx); err != nil {
		t.Fatalf("load models: %v", err)
	}

	policy := scroll.NewPolicy(scroll.Options{Debounce: 10 * time.Millisecond, QuietWindow: 50 * time.Millisecond})
	session := chat.NewSession(ctx, client, policy, 2*time.Millisecond).WithModels(selector)

	m := New(ctx, session, policy, selector, render.New(render.DefaultStyle))
	cleanup := func() {
		cancel()
		session.Close()
		policy.Close()
		srv.Close()
		s.Close()
	}
	return m, cleanup
}
