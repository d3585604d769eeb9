package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvLocalAgentConfig = "PROVIDERS_LOCAL_AGENT_CONFIG"
	EnvProvidersTimeout = "PROVIDERS_REQUEST_TIMEOUT"
)

// ProvidersConfig holds credentials and endpoints for the model providers.
// A provider is available only when its API key is set; the local
// provider is always available.
type ProvidersConfig struct {
	OpenAIAPIKey     string `toml:"openai_api_key"`
	AnthropicAPIKey  string `toml:"anthropic_api_key"`
	GeminiAPIKey     string `toml:"gemini_api_key"`
	OpenAIBaseURL    string `toml:"openai_base_url"`
	AnthropicBaseURL string `toml:"anthropic_base_url"`
	AnthropicVersion string `toml:"anthropic_version"`
	GeminiBaseURL    string `toml:"gemini_base_url"`
	RequestTimeout   string `toml:"request_timeout"`
	LocalAgentConfig string `toml:"local_agent_config"`
}

func (c *ProvidersConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

func (c *ProvidersConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *ProvidersConfig) Merge(overlay *ProvidersConfig) {
	if overlay.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = overlay.OpenAIAPIKey
	}
	if overlay.AnthropicAPIKey != "" {
		c.AnthropicAPIKey = overlay.AnthropicAPIKey
	}
	if overlay.GeminiAPIKey != "" {
		c.GeminiAPIKey = overlay.GeminiAPIKey
	}
	if overlay.OpenAIBaseURL != "" {
		c.OpenAIBaseURL = overlay.OpenAIBaseURL
	}
	if overlay.AnthropicBaseURL != "" {
		c.AnthropicBaseURL = overlay.AnthropicBaseURL
	}
	if overlay.AnthropicVersion != "" {
		c.AnthropicVersion = overlay.AnthropicVersion
	}
	if overlay.GeminiBaseURL != "" {
		c.GeminiBaseURL = overlay.GeminiBaseURL
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.LocalAgentConfig != "" {
		c.LocalAgentConfig = overlay.LocalAgentConfig
	}
}

func (c *ProvidersConfig) loadDefaults() {
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = "https://api.openai.com"
	}
	if c.AnthropicBaseURL == "" {
		c.AnthropicBaseURL = "https://api.anthropic.com"
	}
	if c.AnthropicVersion == "" {
		c.AnthropicVersion = "2023-06-01"
	}
	if c.GeminiBaseURL == "" {
		c.GeminiBaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "120s"
	}
}

func (c *ProvidersConfig) loadEnv() {
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv(EnvAnthropicAPIKey); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv(EnvGeminiAPIKey); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv(EnvLocalAgentConfig); v != "" {
		c.LocalAgentConfig = v
	}
	if v := os.Getenv(EnvProvidersTimeout); v != "" {
		c.RequestTimeout = v
	}
}

func (c *ProvidersConfig) validate() error {
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	return nil
}
