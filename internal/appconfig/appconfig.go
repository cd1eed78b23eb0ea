// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default timeout for LLM HTTP requests.
	defaultRequestTimeout = 600 * time.Second
	// defaultMCPInitTimeout defines the fallback timeout used while initializing the MCP server.
	defaultMCPInitTimeout = 10 * time.Second
	// defaultMCPRetryCount defines how many times MCP tools are retried when the config omits the value.
	defaultMCPRetryCount = 1
	// defaultWeatherTimeout bounds the single provider attempt.
	defaultWeatherTimeout = 30 * time.Second
	// defaultListenAddr is the REST server bind address.
	defaultListenAddr = ":8080"
	// defaultRateLimit is the REST per-IP request budget per minute.
	defaultRateLimit = 60
)

// Config represents the top-level application configuration.
type Config struct {
	Hosts            []Host `json:"hosts"`
	Debug            bool   `json:"debug"`
	MCPMode          bool   `json:"mcpMode"`
	MCPBinary        string `json:"mcpBinary,omitempty"`
	MCPInitTimeout   int    `json:"mcpInitTimeout,omitempty"`
	MCPRetryCount    int    `json:"mcpRetryCount,omitempty"`
	TimeoutSeconds   int    `json:"timeout,omitempty"`
	LogFile          string `json:"logFile,omitempty"`
	WeatherBaseURL   string `json:"weatherBaseUrl,omitempty"`
	WeatherUserAgent string `json:"weatherUserAgent,omitempty"`
	WeatherInsecure  bool   `json:"weatherInsecure"`
	WeatherTimeout   int    `json:"weatherTimeout,omitempty"`
	WeatherDetail    string `json:"weatherDetail,omitempty"`
	ListenAddr       string `json:"listen,omitempty"`
	RateLimit        int    `json:"rateLimit,omitempty"`
	ConfigPath       string `json:"-"`
}

// Host represents a single host that can serve language models.
type Host struct {
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Models       []string   `json:"models"`
	SystemPrompt string     `json:"systemprompt"`
	Parameters   Parameters `json:"parameters"`
}

// Parameters defines the set of parameters that can be used to control a language model's behavior.
type Parameters struct {
	TopK             *int     `json:"top_k,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	MinP             *float64 `json:"min_p,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

// RequestTimeout returns the timeout duration for LLM requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MCPInitTimeoutDuration returns the timeout duration for MCP initialization.
func (c Config) MCPInitTimeoutDuration() time.Duration {
	if c.MCPInitTimeout <= 0 {
		return defaultMCPInitTimeout
	}
	return time.Duration(c.MCPInitTimeout) * time.Second
}

// MCPRetryAttempts returns the configured number of retry attempts for MCP tools.
func (c Config) MCPRetryAttempts() int {
	if c.MCPRetryCount < 0 {
		return 0
	}
	if c.MCPRetryCount == 0 {
		return defaultMCPRetryCount
	}
	return c.MCPRetryCount
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "skycast.log"
}

// MCPBinaryPath returns the resolved MCP server binary path, choosing a default based on the OS if not provided.
func (c Config) MCPBinaryPath() string {
	if b := strings.TrimSpace(c.MCPBinary); b != "" {
		return b
	}
	if runtime.GOOS == "windows" {
		return "dist/skycast-mcp.exe"
	}
	return "dist/skycast-mcp"
}

// WeatherTimeoutDuration bounds the single provider attempt. The fetch is
// never retried, so this is the worst-case latency per lookup.
func (c Config) WeatherTimeoutDuration() time.Duration {
	if c.WeatherTimeout <= 0 {
		return defaultWeatherTimeout
	}
	return time.Duration(c.WeatherTimeout) * time.Second
}

// ListenAddress returns the REST bind address.
func (c Config) ListenAddress() string {
	if addr := strings.TrimSpace(c.ListenAddr); addr != "" {
		return addr
	}
	return defaultListenAddr
}

// RateLimitPerMinute returns the REST per-IP request budget.
func (c Config) RateLimitPerMinute() int {
	if c.RateLimit <= 0 {
		return defaultRateLimit
	}
	return c.RateLimit
}

// Load reads the application configuration from the specified path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("no configuration file found at %q", path)
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	config.ConfigPath = path
	return config, nil
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}

	return config, nil
}
