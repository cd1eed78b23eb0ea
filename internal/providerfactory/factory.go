// internal/providerfactory/factory.go

// Package providerfactory selects the chat provider implementation based on
// the application configuration.
package providerfactory

import (
	"context"

	"github.com/mvenner/skycast/internal/appconfig"
	"github.com/mvenner/skycast/internal/providers"
	"github.com/mvenner/skycast/internal/providers/mcp"
	"github.com/mvenner/skycast/internal/providers/ollama"
)

// NewProvider returns the ChatProvider for the current configuration. When MCP
// mode is enabled the MCP server process is spawned and wired in front of the
// Ollama backend; otherwise the Ollama provider is used directly.
func NewProvider(ctx context.Context, cfg *appconfig.Config) (providers.ChatProvider, error) {
	if cfg.MCPMode {
		return mcp.New(ctx, cfg)
	}
	return ollama.New(cfg), nil
}
