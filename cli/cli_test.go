package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvenner/skycast/internal/appconfig"
	"github.com/mvenner/skycast/internal/providers"
)

type stubProvider struct{}

func (stubProvider) LoadedModels(context.Context, appconfig.Host) ([]string, error) {
	return nil, nil
}
func (stubProvider) EnsureModelReady(context.Context, appconfig.Host, string) error { return nil }
func (stubProvider) Stream(context.Context, providers.StreamRequest, providers.StreamCallbacks) error {
	return nil
}
func (stubProvider) Close() error { return nil }

func testModel(t *testing.T) *model {
	t.Helper()
	cfg := &appconfig.Config{
		Hosts: []appconfig.Host{{Name: "local", URL: "http://localhost:11434", Models: []string{"llama3.2"}}},
	}
	return initialModel(context.Background(), cfg, stubProvider{})
}

func TestDeriveMCPStatus(t *testing.T) {
	if got := deriveMCPStatus(&appconfig.Config{}, stubProvider{}); got != mcpStatusOff {
		t.Fatalf("expected off, got %q", got)
	}
	if got := deriveMCPStatus(&appconfig.Config{MCPMode: true}, stubProvider{}); got != mcpStatusFallback {
		t.Fatalf("expected fallback for non-MCP provider, got %q", got)
	}
	if got := deriveMCPStatus(nil, nil); got != mcpStatusOff {
		t.Fatalf("expected off for nil config, got %q", got)
	}
}

func TestFormatMCPIndicator(t *testing.T) {
	if got := formatMCPIndicator(mcpStatusActive); got != "MCP Mode: active" {
		t.Fatalf("unexpected indicator: %q", got)
	}
	if got := formatMCPIndicator(mcpStatus("bogus")); got != "MCP Mode: off" {
		t.Fatalf("unexpected default indicator: %q", got)
	}
}

func TestFormatParam(t *testing.T) {
	k := 40
	if got := formatParam("TopK", &k); got != "TopK: 40" {
		t.Fatalf("unexpected param label: %q", got)
	}
	if got := formatParam[int]("TopK", nil); got != "TopK: n/a" {
		t.Fatalf("unexpected nil label: %q", got)
	}
}

func TestUpdateStreamChunkAccumulates(t *testing.T) {
	m := testModel(t)
	m.state = viewChat

	m.Update(streamChunkMsg("It is "))
	m.Update(streamChunkMsg("cloudy."))

	if got := m.responseBuf.String(); got != "It is cloudy." {
		t.Fatalf("unexpected buffer: %q", got)
	}
}

func TestUpdateStreamEndMovesBufferToHistory(t *testing.T) {
	m := testModel(t)
	m.state = viewChat
	m.isLoading = true
	m.responseBuf.WriteString("15C and cloudy")

	m.Update(streamEndMsg{meta: LLMResponseMeta{Done: true}})

	if m.isLoading {
		t.Fatal("expected loading to stop")
	}
	if len(m.chatHistory) != 1 || m.chatHistory[0].Role != "assistant" {
		t.Fatalf("unexpected history: %+v", m.chatHistory)
	}
	if m.responseBuf.Len() != 0 {
		t.Fatal("buffer not reset after stream end")
	}
}

func TestUpdateQuitOnCtrlC(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestViewShowsErrorState(t *testing.T) {
	m := testModel(t)
	m.width = 80
	m.Update(streamErr{error: errTest})

	out := m.View()
	if !strings.Contains(out, "Error:") {
		t.Fatalf("expected error view, got %q", out)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "boom" }

func TestLastUserPrompt(t *testing.T) {
	history := []chatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "weather in Paris?"},
	}
	if got := lastUserPrompt(history); got != "weather in Paris?" {
		t.Fatalf("unexpected prompt: %q", got)
	}
}
