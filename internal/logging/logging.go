// internal/logging/logging.go
// Package logging routes application events to stdout and an optional log
// file. Request traffic between skycast, the MCP server, the LLM host and
// the weather provider is logged with a uniform direction/host/tool prefix.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init points the standard logger at stdout plus, when logPath is set, an
// append-mode file. Calling it again closes the previous file first.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	writers := []io.Writer{os.Stdout}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// LogEvent records a free-form application event.
func LogEvent(format string, args ...any) {
	log.Println(fmt.Sprintf(format, args...))
}

// LogRequest records one hop of request traffic, e.g. direction
// "SKYCAST->MCP" or "LLM->SKYCAST", with the payload rendered inline.
func LogRequest(direction, host, model, tool string, payload any) {
	log.Println(buildRequestMessage(direction, host, model, tool, payload))
}

func buildRequestMessage(direction, host, model, tool string, payload any) string {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}

	parts := []string{
		fmt.Sprintf("[%s]", dir),
		fmt.Sprintf("host=%s", hostValue),
		fmt.Sprintf("model=%s", modelValue),
	}
	if tool = strings.TrimSpace(tool); tool != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", tool))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
