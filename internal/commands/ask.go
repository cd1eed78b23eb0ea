// internal/commands/ask.go
package skycast

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvenner/skycast/internal/providerfactory"
	"github.com/mvenner/skycast/internal/providers"
	"github.com/mvenner/skycast/servers/mcp/tools"
)

// askCmd implements 'skycast ask <question>': a one-shot question answered by
// the configured model, with the weather tools available for function calling.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the configured model a question with weather tools available",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if len(cfg.Hosts) == 0 {
			return fmt.Errorf("no hosts configured; add at least one host to %s", cfg.ConfigPath)
		}
		host := cfg.Hosts[0]
		if len(host.Models) == 0 {
			return fmt.Errorf("host %q has no models configured", host.Name)
		}
		model := host.Models[0]
		question := strings.Join(args, " ")

		provider, err := providerfactory.NewProvider(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer provider.Close()

		req := providers.StreamRequest{
			Host:             host,
			Model:            model,
			History:          []providers.ChatMessage{{Role: "user", Content: question}},
			SystemPrompt:     host.SystemPrompt,
			Parameters:       host.Parameters,
			Tools:            toolDefinitions(),
			DisableStreaming: true,
		}
		if !cfg.MCPMode {
			req.ToolExecutor = localToolExecutor
		}

		var out strings.Builder
		callbacks := providers.StreamCallbacks{
			OnChunk: func(msg providers.ChatMessage) error {
				out.WriteString(msg.Content)
				return nil
			},
			OnComplete: func(meta providers.StreamMetadata) error { return nil },
		}

		if err := provider.Stream(cmd.Context(), req, callbacks); err != nil {
			return err
		}

		answer := strings.TrimSpace(out.String())
		if answer == "" {
			answer = "The model returned no output."
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

// toolDefinitions converts the tool catalog into provider tool definitions.
func toolDefinitions() []providers.ToolDefinition {
	catalog := tools.Catalog()
	defs := make([]providers.ToolDefinition, 0, len(catalog))
	for _, def := range catalog {
		defs = append(defs, providers.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return defs
}

// localToolExecutor runs a tool handler in-process and flattens its content
// parts into the string form the chat stream expects. Used when the MCP
// server is not in the loop.
func localToolExecutor(_ context.Context, name string, args map[string]any) (string, error) {
	handler := tools.HandlerFor(name)
	if handler == nil {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	parts, err := handler(args)
	if err != nil {
		return "", err
	}
	var texts []string
	for _, part := range parts {
		switch part.Type {
		case "json", "text":
			if strings.TrimSpace(part.Text) != "" {
				texts = append(texts, part.Text)
			}
		}
	}
	return strings.Join(texts, "\n"), nil
}

func init() {
	rootCmd.AddCommand(askCmd)
}
