package tools

// Definition describes the metadata the MCP server exposes for a tool.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool wraps a Definition to match the required "function" wrapper structure.
type Tool struct {
	Type     string     `json:"type"`
	Function Definition `json:"function"`
}

// ContentPart represents a piece of data returned from a tool invocation.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Handler executes a tool using the provided arguments and returns content for the LLM.
type Handler func(map[string]any) ([]ContentPart, error)

const (
	// GetWeatherName is the canonical name for the weather tool.
	GetWeatherName = "get_weather"
	// CurrentTimeName is the canonical name for the time tool.
	CurrentTimeName = "current_time"
	// AvailableToolsName is the canonical name for the available-tools helper.
	AvailableToolsName = "available_tools"
)

// Catalog lists every tool definition the server exposes, in the order they
// are advertised. The REST /api/tools endpoint serves the same list.
func Catalog() []Definition {
	return []Definition{
		AvailableToolsDefinition(),
		CurrentTimeDefinition(),
		GetWeatherDefinition(),
	}
}

// HandlerFor returns the handler registered for the named tool, or nil when
// the name is unknown.
func HandlerFor(name string) Handler {
	switch name {
	case AvailableToolsName:
		return AvailableTools
	case CurrentTimeName:
		return CurrentTime
	case GetWeatherName:
		return GetWeather
	}
	return nil
}
