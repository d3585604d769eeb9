package providers

// Provider names.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Local     = "local"
)

// Model describes a model id the gateway can route.
type Model struct {
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	MaxTokens      int    `json:"max_tokens"`
	SupportsVision bool   `json:"supports_vision"`
}

var catalog = []Model{
	{ID: "gpt-4", Provider: OpenAI, Name: "GPT-4", Description: "Most capable GPT model, best for complex tasks", MaxTokens: 4000},
	{ID: "gpt-3.5-turbo", Provider: OpenAI, Name: "GPT-3.5 Turbo", Description: "Fast and efficient, good for most tasks", MaxTokens: 4000},
	{ID: "claude-3-opus", Provider: Anthropic, Name: "Claude 3 Opus", Description: "Most capable Claude model, excellent for complex reasoning", MaxTokens: 4000, SupportsVision: true},
	{ID: "claude-3-sonnet", Provider: Anthropic, Name: "Claude 3 Sonnet", Description: "Balanced performance and speed", MaxTokens: 4000, SupportsVision: true},
	{ID: "claude-3-haiku", Provider: Anthropic, Name: "Claude 3 Haiku", Description: "Fastest Claude model, good for simple tasks", MaxTokens: 4000, SupportsVision: true},
	{ID: "gemini-pro", Provider: Gemini, Name: "Gemini Pro", Description: "Google's most capable model, excellent for reasoning", MaxTokens: 4000},
	{ID: "gemini-pro-vision", Provider: Gemini, Name: "Gemini Pro Vision", Description: "Gemini with vision capabilities", MaxTokens: 4000, SupportsVision: true},
	{ID: "local-llama", Provider: Local, Name: "Local Llama", Description: "Locally hosted model", MaxTokens: 2000},
}

var modelIndex = func() map[string]Model {
	m := make(map[string]Model, len(catalog))
	for _, model := range catalog {
		m[model.ID] = model
	}
	return m
}()

// Lookup returns the catalog entry for a model id.
func Lookup(id string) (Model, bool) {
	m, ok := modelIndex[id]
	return m, ok
}

// ProviderNames lists every provider the gateway knows, in probe order.
func ProviderNames() []string {
	return []string{OpenAI, Anthropic, Gemini, Local}
}
