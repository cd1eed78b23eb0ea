package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitCreatesLogDirAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "skycast.log")

	if err := Init(path); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	LogEvent("hello %s", "world")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Fatalf("expected event in log file, got %q", string(data))
	}
}

func TestBuildRequestMessageFormatsParts(t *testing.T) {
	msg := buildRequestMessage("skycast->mcp", "local", "llama3.2:3b", "get_weather", map[string]string{"city": "London"})
	for _, want := range []string{"[SKYCAST->MCP]", "host=local", "model=llama3.2:3b", "tool=get_weather", `"city":"London"`} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in message, got %q", want, msg)
		}
	}
}

func TestBuildRequestMessageDefaults(t *testing.T) {
	msg := buildRequestMessage("", "", "", "", nil)
	if !strings.Contains(msg, "host=unknown") || !strings.Contains(msg, "model=unknown") {
		t.Fatalf("expected unknown defaults, got %q", msg)
	}
	if !strings.Contains(msg, "payload=null") {
		t.Fatalf("expected null payload, got %q", msg)
	}
}

func TestLogRequestWritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	LogRequest("LLM->SKYCAST", "home", "qwen2.5:7b", "", []byte(`{"ok":true}`))

	if !strings.Contains(buf.String(), `payload={"ok":true}`) {
		t.Fatalf("expected payload bytes in output, got %q", buf.String())
	}
}
