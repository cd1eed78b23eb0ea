package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mvenner/skycast/internal/wttr"
)

// weatherClient is shared across invocations so the transport is reused.
// SetWeatherClient swaps it in once the server has loaded its config.
var weatherClient = wttr.NewClient(wttr.ClientOptions{})

// weatherTimeout bounds one provider round trip from inside the tool.
var weatherTimeout = wttr.DefaultTimeout

// SetWeatherClient installs the configured provider client.
func SetWeatherClient(client *wttr.Client, timeout time.Duration) {
	if client != nil {
		weatherClient = client
	}
	if timeout > 0 {
		weatherTimeout = timeout
	}
}

// GetWeatherDefinition describes the weather tool to the MCP host.
func GetWeatherDefinition() Definition {
	return Definition{
		Name:        GetWeatherName,
		Description: "Get the current weather and a 3-day forecast for a given city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "The city name, e.g. London or New York",
				},
			},
			"required": []string{"city"},
		},
	}
}

// GetWeatherTool returns the complete, wrapped tool definition.
func GetWeatherTool() Tool {
	return Tool{
		Type:     "function",
		Function: GetWeatherDefinition(),
	}
}

// ValidateGetWeatherData takes a JSON string, extracts the "arguments"
// object, and validates it against the GetWeatherDefinition's schema.
func ValidateGetWeatherData(jsonString string) (bool, error) {
	schemaLoader := gojsonschema.NewGoLoader(GetWeatherDefinition().Parameters)

	var inputData map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonString), &inputData); err != nil {
		return false, fmt.Errorf("could not parse outer JSON: %w", err)
	}

	argumentsJSON, ok := inputData["arguments"]
	if !ok {
		return false, fmt.Errorf("input JSON missing 'arguments' key")
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(argumentsJSON))
	if err != nil {
		return false, fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return true, nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Errorf("JSON validation failed: %s", strings.Join(errs, ", "))
}

// GetWeather executes the weather lookup and returns JSON content for the
// LLM to interpret.
func GetWeather(args map[string]any) ([]ContentPart, error) {
	cityVal, ok := args["city"]
	if !ok {
		return nil, fmt.Errorf("Error: 'city' argument is required.")
	}
	city, ok := cityVal.(string)
	if !ok {
		return nil, fmt.Errorf("Error: 'city' argument must be a string.")
	}
	if strings.TrimSpace(city) == "" {
		return nil, fmt.Errorf("Error: 'city' argument cannot be empty.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), weatherTimeout)
	defer cancel()

	weather, err := weatherClient.Lookup(ctx, city, wttr.DetailFull)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(weather)
	if err != nil {
		return nil, fmt.Errorf("Error preparing weather response: %w", err)
	}

	interpretPrompt := strings.Join([]string{
		"You are a helpful assistant. Interpret the provided JSON weather data and reply in natural language in 2 sentences or less.",
		"Avoid repeating raw numbers unnecessarily; keep it concise and readable by a non-technical user.",
		"JSON Weather Data: " + string(payload),
	}, " ")

	return []ContentPart{
		{Type: "json", Text: string(payload)},
		{Type: "interpret", Text: interpretPrompt},
	}, nil
}
