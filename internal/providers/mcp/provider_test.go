package mcp

import (
	"encoding/json"
	"testing"

	"github.com/mvenner/skycast/internal/appconfig"
	"github.com/mvenner/skycast/internal/providers"
)

func TestToolLabel(t *testing.T) {
	if got := toolLabel(rpcMetadata{tool: "get_weather", method: "tools/call"}); got != "get_weather" {
		t.Fatalf("expected tool name, got %q", got)
	}
	if got := toolLabel(rpcMetadata{method: "initialize"}); got != "initialize" {
		t.Fatalf("expected method fallback, got %q", got)
	}
	if got := toolLabel(rpcMetadata{}); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestNormalizeID(t *testing.T) {
	if got := normalizeID(json.RawMessage(`42`)); got != "42" {
		t.Fatalf("numeric id: got %q", got)
	}
	if got := normalizeID(json.RawMessage(`"abc"`)); got != "abc" {
		t.Fatalf("string id: got %q", got)
	}
	if got := normalizeID(nil); got != "" {
		t.Fatalf("empty id: got %q", got)
	}
}

func TestLastUserPrompt(t *testing.T) {
	history := []providers.ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "weather in London?"},
	}
	if got := lastUserPrompt(history); got != "weather in London?" {
		t.Fatalf("unexpected prompt: %q", got)
	}
	if got := lastUserPrompt(nil); got != "" {
		t.Fatalf("expected empty for no history, got %q", got)
	}
}

func TestHostLabel(t *testing.T) {
	if got := hostLabel(appconfig.Host{Name: "dev", URL: "http://x"}); got != "dev" {
		t.Fatalf("expected name, got %q", got)
	}
	if got := hostLabel(appconfig.Host{URL: "http://x"}); got != "http://x" {
		t.Fatalf("expected url, got %q", got)
	}
	if got := hostLabel(appconfig.Host{}); got != "local-mcp" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestFormatArgs(t *testing.T) {
	if got := formatArgs(nil); got != "{}" {
		t.Fatalf("expected empty braces, got %q", got)
	}
	got := formatArgs(map[string]any{"city": "London"})
	if got != `{"city":"London"}` {
		t.Fatalf("unexpected encoding: %q", got)
	}
}
