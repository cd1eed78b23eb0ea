package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/mvenner/skycast/internal/appconfig"
	"github.com/mvenner/skycast/internal/logging"
	"github.com/mvenner/skycast/internal/providers"
	"github.com/mvenner/skycast/internal/util"
)

// Provider proxies chat traffic through a spawned MCP server process,
// delegating model inference to an Ollama backend.
type Provider struct {
	cfg       *appconfig.Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	reader    *bufio.Reader
	writer    *bufio.Writer
	seqMu     sync.Mutex
	seq       int64
	fallback  providers.ChatProvider
	rpcMu     sync.Mutex
	rpcMetaMu sync.Mutex
	rpcMeta   map[string]rpcMetadata
	toolIndex map[string]providers.ToolDefinition
	toolDefs  []providers.ToolDefinition
}

func (p *Provider) log(format string, args ...any) {
	logging.LogEvent(format, args...)
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}

func hostLabel(host appconfig.Host) string {
	name := strings.TrimSpace(host.Name)
	if name != "" {
		return name
	}
	if url := strings.TrimSpace(host.URL); url != "" {
		return url
	}
	return "local-mcp"
}

func lastUserPrompt(history []providers.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if strings.ToLower(history[i].Role) == "user" {
			return history[i].Content
		}
	}
	return ""
}

func (p *Provider) logToolRequest(name, host, model string, args map[string]any) {
	payload := formatArgs(args)
	logging.LogEvent("Tool requested: tool=%s host=%s model=%s args=%s", name, host, model, payload)
}

func (p *Provider) logToolSuccess(name, result, host, model string) {
	truncated := util.TruncateRunes(result, 160)
	logging.LogEvent("Tool executed: tool=%s host=%s model=%s output=%s", name, host, model, truncated)
}

func (p *Provider) defaultMCPHost() string {
	if p.cfg != nil {
		if strings.TrimSpace(p.cfg.MCPBinary) != "" {
			return p.cfg.MCPBinary
		}
		if strings.TrimSpace(p.cfg.ConfigPath) != "" {
			return p.cfg.ConfigPath
		}
	}
	return "local-mcp"
}

// LoadedModels delegates to the underlying Ollama provider; the MCP server
// has no notion of model inventory.
func (p *Provider) LoadedModels(ctx context.Context, host appconfig.Host) ([]string, error) {
	models, err := p.fallback.LoadedModels(ctx, host)
	if err != nil {
		p.log("Tool bypassed: tool=loaded_models host=%s reason=%v", host.Name, err)
		return nil, err
	}
	return models, nil
}

// EnsureModelReady proxies to the Ollama provider.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	if err := p.fallback.EnsureModelReady(ctx, host, model); err != nil {
		p.log("Tool bypassed: tool=ensure_model host=%s model=%s reason=%v", host.Name, model, err)
		return err
	}
	return nil
}

// Stream wires the MCP tool catalog into the chat request and routes tool
// executions through the spawned server before delegating to Ollama.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	userPrompt := lastUserPrompt(req.History)
	hostName := hostLabel(req.Host)
	logging.LogEvent("[SKYCAST->MCP] Incoming request metadata: user_prompt='%s'", userPrompt)

	forwardReq := req
	if len(p.toolDefs) > 0 {
		forwardReq.Tools = append([]providers.ToolDefinition(nil), p.toolDefs...)
	}

	// Replace the system prompt for MCP mode so the model knows it can call tools.
	newSystemPrompt := "You are a helpful assistant with access to the following tools. When the user asks a question, first determine if one of the tools can help."
	foundSystemPrompt := false
	for i, msg := range forwardReq.History {
		if msg.Role == "system" {
			forwardReq.History[i].Content = newSystemPrompt
			foundSystemPrompt = true
			break
		}
	}
	if !foundSystemPrompt {
		forwardReq.History = append([]providers.ChatMessage{{Role: "system", Content: newSystemPrompt}}, forwardReq.History...)
	}

	forwardReq.DisableStreaming = true
	retryState := make(map[string]int)
	retryLimit := p.cfg.MCPRetryAttempts()
	forwardReq.ToolExecutor = func(execCtx context.Context, name string, callArgs map[string]any) (string, error) {
		wireArgs := make(map[string]any, len(callArgs)+2)
		for k, v := range callArgs {
			wireArgs[k] = v
		}
		if _, ok := wireArgs["__user_prompt"]; !ok {
			if prompt := lastUserPrompt(req.History); prompt != "" {
				wireArgs["__user_prompt"] = prompt
			}
		}
		for {
			attempt := retryState[name]
			if attempt <= 0 {
				attempt = 1
			}
			retryState[name] = attempt
			wireArgs["__mcp_attempt"] = attempt
			toolCtx, cancel := context.WithTimeout(execCtx, p.cfg.MCPInitTimeoutDuration())
			logging.LogEvent("MCP tool attempt: tool=%s host=%s model=%s attempt=%d/%d", name, hostName, req.Model, attempt, retryLimit)
			p.logToolRequest(name, hostName, req.Model, wireArgs)
			result, err := p.callTool(toolCtx, hostName, req.Model, name, wireArgs)
			cancel()
			if err != nil {
				p.log("[ERROR] Tool bypassed: tool=%s host=%s model=%s reason=%v", name, hostName, req.Model, err)
				return "", err
			}
			if result.Retry && attempt < retryLimit {
				// Strict retry loop: only exit on success or reaching max attempts.
				for attempt < retryLimit {
					nextAttempt := attempt + 1
					fixedOut, called, retryAgain, fixErr := p.fixWithLLMRoundTrip(execCtx, req, name, result.Output, nextAttempt)
					if fixErr != nil {
						if ctxErr := execCtx.Err(); ctxErr != nil {
							return "", ctxErr
						}
						if ctxErr := ctx.Err(); ctxErr != nil {
							return "", ctxErr
						}
						if errors.Is(fixErr, context.Canceled) || errors.Is(fixErr, context.DeadlineExceeded) {
							return "", fixErr
						}
						// Fix round-trip failed (no call executed). Try again without consuming attempts.
						continue
					}
					if !called {
						continue
					}
					attempt = nextAttempt
					retryState[name] = attempt
					if retryAgain && attempt < retryLimit {
						result.Output = fixedOut
						continue
					}
					retryState[name] = 0
					if interp, ok := p.maybeInterpretResult(execCtx, req, name, fixedOut); ok {
						p.logToolSuccess(name, interp, hostName, req.Model)
						return interp, nil
					}
					p.logToolSuccess(name, fixedOut, hostName, req.Model)
					return fixedOut, nil
				}
			}
			retryState[name] = 0
			if interp, ok := p.maybeInterpretResult(execCtx, req, name, result.Output); ok {
				p.logToolSuccess(name, interp, hostName, req.Model)
				return interp, nil
			}
			p.logToolSuccess(name, result.Output, hostName, req.Model)
			return result.Output, nil
		}
	}

	p.log("Forwarding request: host=%s model=%s messages=%d tools=%d", hostName, forwardReq.Model, len(forwardReq.History), len(forwardReq.Tools))
	return p.fallback.Stream(ctx, forwardReq, callbacks)
}
