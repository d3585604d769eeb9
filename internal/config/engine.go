package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvEngineMaxAgents     = "ENGINE_MAX_AGENTS"
	EnvEngineAgentTimeout  = "ENGINE_AGENT_TIMEOUT"
	EnvEngineTaskTimeout   = "ENGINE_TASK_TIMEOUT"
	EnvEngineMaxDepth      = "ENGINE_MAX_DEPTH"
	EnvEngineMaxSubtasks   = "ENGINE_MAX_SUBTASKS"
	EnvEngineQueueInterval = "ENGINE_QUEUE_INTERVAL"
)

// ModelSettings selects the model and sampling parameters for one kind
// of engine-issued completion. A nil Temperature takes the default.
type ModelSettings struct {
	Model       string   `toml:"model"`
	Temperature *float64 `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
}

func (s *ModelSettings) merge(overlay *ModelSettings) {
	if overlay.Model != "" {
		s.Model = overlay.Model
	}
	if overlay.Temperature != nil {
		t := *overlay.Temperature
		s.Temperature = &t
	}
	if overlay.MaxTokens != 0 {
		s.MaxTokens = overlay.MaxTokens
	}
}

func (s *ModelSettings) defaults(model string, temperature float64, maxTokens int) {
	if s.Model == "" {
		s.Model = model
	}
	if s.Temperature == nil {
		s.Temperature = &temperature
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = maxTokens
	}
}

// EngineConfig bounds the agent registry and the task execution engine.
type EngineConfig struct {
	MaxAgents          int           `toml:"max_agents"`
	AgentTimeout       string        `toml:"agent_timeout"`
	TaskTimeout        string        `toml:"task_timeout"`
	MaxDepth           int           `toml:"max_depth"`
	MaxSubtasks        int           `toml:"max_subtasks"`
	DecomposeThreshold int           `toml:"decompose_threshold"`
	QueueInterval      string        `toml:"queue_interval"`
	Decompose          ModelSettings `toml:"decompose"`
	Direct             ModelSettings `toml:"direct"`
}

func (c *EngineConfig) AgentTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.AgentTimeout)
	return d
}

func (c *EngineConfig) TaskTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.TaskTimeout)
	return d
}

func (c *EngineConfig) QueueIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.QueueInterval)
	return d
}

func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if overlay.MaxAgents != 0 {
		c.MaxAgents = overlay.MaxAgents
	}
	if overlay.AgentTimeout != "" {
		c.AgentTimeout = overlay.AgentTimeout
	}
	if overlay.TaskTimeout != "" {
		c.TaskTimeout = overlay.TaskTimeout
	}
	if overlay.MaxDepth != 0 {
		c.MaxDepth = overlay.MaxDepth
	}
	if overlay.MaxSubtasks != 0 {
		c.MaxSubtasks = overlay.MaxSubtasks
	}
	if overlay.DecomposeThreshold != 0 {
		c.DecomposeThreshold = overlay.DecomposeThreshold
	}
	if overlay.QueueInterval != "" {
		c.QueueInterval = overlay.QueueInterval
	}
	c.Decompose.merge(&overlay.Decompose)
	c.Direct.merge(&overlay.Direct)
}

func (c *EngineConfig) loadDefaults() {
	if c.MaxAgents == 0 {
		c.MaxAgents = 10
	}
	if c.AgentTimeout == "" {
		c.AgentTimeout = "300s"
	}
	if c.TaskTimeout == "" {
		c.TaskTimeout = "600s"
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = 3
	}
	if c.MaxSubtasks == 0 {
		c.MaxSubtasks = 5
	}
	if c.DecomposeThreshold == 0 {
		c.DecomposeThreshold = 1000
	}
	if c.QueueInterval == "" {
		c.QueueInterval = "1s"
	}
	c.Decompose.defaults("gpt-4", 0.3, 1000)
	c.Direct.defaults("gpt-4", 0.7, 2000)
}

func (c *EngineConfig) loadEnv() {
	if v := os.Getenv(EnvEngineMaxAgents); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAgents = n
		}
	}
	if v := os.Getenv(EnvEngineAgentTimeout); v != "" {
		c.AgentTimeout = v
	}
	if v := os.Getenv(EnvEngineTaskTimeout); v != "" {
		c.TaskTimeout = v
	}
	if v := os.Getenv(EnvEngineMaxDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		}
	}
	if v := os.Getenv(EnvEngineMaxSubtasks); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxSubtasks = n
		}
	}
	if v := os.Getenv(EnvEngineQueueInterval); v != "" {
		c.QueueInterval = v
	}
}

func (c *EngineConfig) validate() error {
	if c.MaxAgents < 1 {
		return fmt.Errorf("max_agents must be positive")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth cannot be negative")
	}
	if c.MaxSubtasks < 1 {
		return fmt.Errorf("max_subtasks must be positive")
	}
	for name, v := range map[string]string{
		"agent_timeout":  c.AgentTimeout,
		"task_timeout":   c.TaskTimeout,
		"queue_interval": c.QueueInterval,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	for name, s := range map[string]*ModelSettings{"decompose": &c.Decompose, "direct": &c.Direct} {
		if *s.Temperature < 0 || *s.Temperature > 2 {
			return fmt.Errorf("%s temperature must be within [0, 2]", name)
		}
		if s.MaxTokens < 1 {
			return fmt.Errorf("%s max_tokens must be positive", name)
		}
	}
	return nil
}
