package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"hosts":[{"name":"local","url":"http://localhost:11434","models":["llama3.2:3b"]}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected ConfigPath %q, got %q", path, cfg.ConfigPath)
	}
	if got := cfg.RequestTimeout(); got != 600*time.Second {
		t.Fatalf("expected default request timeout, got %v", got)
	}
	if got := cfg.WeatherTimeoutDuration(); got != 30*time.Second {
		t.Fatalf("expected default weather timeout, got %v", got)
	}
	if got := cfg.ListenAddress(); got != ":8080" {
		t.Fatalf("expected default listen address, got %q", got)
	}
	if got := cfg.RateLimitPerMinute(); got != 60 {
		t.Fatalf("expected default rate limit, got %d", got)
	}
	if got := cfg.LogFilePath(); got != "skycast.log" {
		t.Fatalf("expected default log file, got %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestMCPRetryAttempts(t *testing.T) {
	if got := (Config{}).MCPRetryAttempts(); got != 1 {
		t.Fatalf("expected default retry count 1, got %d", got)
	}
	if got := (Config{MCPRetryCount: -1}).MCPRetryAttempts(); got != 0 {
		t.Fatalf("expected 0 for negative retry count, got %d", got)
	}
	if got := (Config{MCPRetryCount: 3}).MCPRetryAttempts(); got != 3 {
		t.Fatalf("expected configured retry count, got %d", got)
	}
}

func TestWeatherOverrides(t *testing.T) {
	cfg := Config{WeatherTimeout: 5, ListenAddr: "127.0.0.1:9000", RateLimit: 10}
	if got := cfg.WeatherTimeoutDuration(); got != 5*time.Second {
		t.Fatalf("expected 5s weather timeout, got %v", got)
	}
	if got := cfg.ListenAddress(); got != "127.0.0.1:9000" {
		t.Fatalf("unexpected listen address %q", got)
	}
	if got := cfg.RateLimitPerMinute(); got != 10 {
		t.Fatalf("unexpected rate limit %d", got)
	}
}
