package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mvenner/skycast/internal/appconfig"
	"github.com/mvenner/skycast/internal/providers"
)

func weatherToolDef() providers.ToolDefinition {
	return providers.ToolDefinition{
		Name:        "get_weather",
		Description: "Gets the current weather conditions for a specified city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []any{"city"},
		},
	}
}

func TestNormalizeToolArgsMapsLocationToCity(t *testing.T) {
	args := normalizeToolArgs("get_weather", map[string]any{"location": "London"}, nil)
	if args["city"] != "London" {
		t.Fatalf("expected city=London, got %v", args["city"])
	}

	args = normalizeToolArgs("get_weather", map[string]any{"town": "Portland", "state": "OR"}, nil)
	if args["city"] != "Portland, OR" {
		t.Fatalf("expected joined city, got %v", args["city"])
	}

	args = normalizeToolArgs("get_weather", map[string]any{"city": "Tokyo", "location": "ignored"}, nil)
	if args["city"] != "Tokyo" {
		t.Fatalf("explicit city must win, got %v", args["city"])
	}
}

func TestNormalizeToolArgsInfersSingleTool(t *testing.T) {
	tools := []providers.ToolDefinition{weatherToolDef()}
	args := normalizeToolArgs("", map[string]any{"location": "Oslo"}, tools)
	if args["city"] != "Oslo" {
		t.Fatalf("expected inferred tool normalization, got %v", args)
	}
}

func TestParseToolArguments(t *testing.T) {
	args, err := parseToolArguments(json.RawMessage(`{"city":"London"}`))
	if err != nil {
		t.Fatalf("parse object: %v", err)
	}
	if args["city"] != "London" {
		t.Fatalf("unexpected args: %v", args)
	}

	args, err = parseToolArguments(json.RawMessage(`"{\"city\":\"Paris\"}"`))
	if err != nil {
		t.Fatalf("parse string-wrapped object: %v", err)
	}
	if args["city"] != "Paris" {
		t.Fatalf("unexpected args: %v", args)
	}

	args, err = parseToolArguments(json.RawMessage(`null`))
	if err != nil || len(args) != 0 {
		t.Fatalf("expected empty args for null, got %v err=%v", args, err)
	}
}

func TestSanitizeLegacyJSON(t *testing.T) {
	in := `{'name': 'get_weather', 'arguments': {'city': 'Berlin',}}`
	out := sanitizeLegacyJSON(in)
	var data map[string]any
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("sanitized output still invalid: %v (%s)", err, out)
	}
	if data["name"] != "get_weather" {
		t.Fatalf("unexpected payload: %v", data)
	}
}

func TestParseLegacyToolCalls(t *testing.T) {
	content := `Sure thing. <tool_call>{"name":"get_weather","arguments":{"city":"London"}}</tool_call>`
	calls, cleaned := parseLegacyToolCalls(content, []providers.ToolDefinition{weatherToolDef()})
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	if calls[0].Function.Name != "get_weather" {
		t.Fatalf("unexpected tool name %q", calls[0].Function.Name)
	}
	if !strings.Contains(string(calls[0].Function.Arguments), "London") {
		t.Fatalf("arguments lost: %s", calls[0].Function.Arguments)
	}
	if strings.Contains(cleaned, "<tool_call>") {
		t.Fatalf("tag not stripped: %q", cleaned)
	}
}

func TestParseLegacyToolCallsNoTag(t *testing.T) {
	calls, cleaned := parseLegacyToolCalls("just a plain answer", nil)
	if calls != nil || cleaned != "just a plain answer" {
		t.Fatalf("expected passthrough, got %v %q", calls, cleaned)
	}
}

func TestRebuildToolCallFromContent(t *testing.T) {
	tools := []providers.ToolDefinition{weatherToolDef()}
	content := `I will call the tool: {"function": {"name": "get_weather", "arguments": {"city": "Madrid"}}}`
	call, err := rebuildToolCallFromContent(content, tools)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if call.Function.Name != "get_weather" {
		t.Fatalf("unexpected tool %q", call.Function.Name)
	}

	if _, err := rebuildToolCallFromContent("no json here", tools); err == nil {
		t.Fatal("expected error for content without tool json")
	}
}

func TestRebuildToolCallRejectsSchemaViolation(t *testing.T) {
	tools := []providers.ToolDefinition{weatherToolDef()}
	content := `{"function": {"name": "get_weather", "arguments": {"city": 99}}}`
	if _, err := rebuildToolCallFromContent(content, tools); err == nil {
		t.Fatal("expected schema validation failure")
	}
}

func TestExecuteToolCallsNormalizesAndRuns(t *testing.T) {
	var gotName string
	var gotArgs map[string]any
	req := providers.StreamRequest{
		Tools: []providers.ToolDefinition{weatherToolDef()},
		ToolExecutor: func(_ context.Context, name string, args map[string]any) (string, error) {
			gotName = name
			gotArgs = args
			return "15C and cloudy", nil
		},
	}
	call := toolCall{Type: "function"}
	call.Function.Name = "get_weather"
	call.Function.Arguments = json.RawMessage(`{"location":"Rome"}`)

	out, err := executeToolCalls(context.Background(), req, []toolCall{call})
	if err != nil {
		t.Fatalf("executeToolCalls: %v", err)
	}
	if gotName != "get_weather" || gotArgs["city"] != "Rome" {
		t.Fatalf("executor saw name=%q args=%v", gotName, gotArgs)
	}
	if !strings.Contains(out, "[Tool get_weather]") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestIsNoToolCapabilityResponse(t *testing.T) {
	if !isNoToolCapabilityResponse([]byte(`{"error":"model does not support tools"}`)) {
		t.Fatal("expected tool-capability detection")
	}
	if isNoToolCapabilityResponse([]byte(`{"error":"model not found"}`)) {
		t.Fatal("unexpected detection for unrelated error")
	}
}

func TestBuildOptions(t *testing.T) {
	temp := 0.2
	topK := 40
	opts := buildOptions(appconfig.Parameters{Temperature: &temp, TopK: &topK})
	if opts["temperature"] != temp || opts["top_k"] != topK {
		t.Fatalf("unexpected options: %v", opts)
	}
	if _, ok := opts["top_p"]; ok {
		t.Fatal("unset parameter leaked into options")
	}
}

func TestStreamNonStreamingToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if stream, _ := payload["stream"].(bool); stream {
			t.Error("expected stream=false")
		}
		resp := map[string]any{
			"model": "llama3.2",
			"message": map[string]any{
				"role": "assistant",
				"tool_calls": []map[string]any{{
					"type": "function",
					"function": map[string]any{
						"name":      "get_weather",
						"arguments": map[string]any{"city": "London"},
					},
				}},
			},
			"done": true,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := &appconfig.Config{TimeoutSeconds: 5}
	provider := New(cfg)

	var chunks []string
	var completed bool
	req := providers.StreamRequest{
		Host:             appconfig.Host{Name: "test", URL: srv.URL},
		Model:            "llama3.2",
		History:          []providers.ChatMessage{{Role: "user", Content: "weather in London?"}},
		Tools:            []providers.ToolDefinition{weatherToolDef()},
		DisableStreaming: true,
		ToolExecutor: func(_ context.Context, name string, args map[string]any) (string, error) {
			if name != "get_weather" || args["city"] != "London" {
				t.Errorf("unexpected tool dispatch: %s %v", name, args)
			}
			return `{"location":{"city":"London"}}`, nil
		},
	}
	callbacks := providers.StreamCallbacks{
		OnChunk: func(msg providers.ChatMessage) error {
			chunks = append(chunks, msg.Content)
			return nil
		},
		OnComplete: func(meta providers.StreamMetadata) error {
			completed = meta.Done
			return nil
		},
	}

	if err := provider.Stream(context.Background(), req, callbacks); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(chunks) == 0 || !strings.Contains(chunks[0], "London") {
		t.Fatalf("tool output never surfaced: %v", chunks)
	}
	if !completed {
		t.Fatal("OnComplete not invoked with done=true")
	}
}

func TestStreamStreamingChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		_ = enc.Encode(map[string]any{"model": "llama3.2", "message": map[string]any{"role": "assistant", "content": "It is "}, "done": false})
		_ = enc.Encode(map[string]any{"model": "llama3.2", "message": map[string]any{"role": "assistant", "content": "cloudy."}, "done": true, "eval_count": 12})
	}))
	defer srv.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})

	var out strings.Builder
	var meta providers.StreamMetadata
	req := providers.StreamRequest{
		Host:    appconfig.Host{URL: srv.URL},
		Model:   "llama3.2",
		History: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	}
	callbacks := providers.StreamCallbacks{
		OnChunk: func(msg providers.ChatMessage) error {
			out.WriteString(msg.Content)
			return nil
		},
		OnComplete: func(m providers.StreamMetadata) error {
			meta = m
			return nil
		},
	}
	if err := provider.Stream(context.Background(), req, callbacks); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if out.String() != "It is cloudy." {
		t.Fatalf("unexpected assembled output: %q", out.String())
	}
	if !meta.Done || meta.EvalCount != 12 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}
