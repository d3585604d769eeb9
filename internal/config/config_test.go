package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TAPUZE/project-chimera/internal/config"
)

func minimal() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Name = "chimera"
	cfg.Database.User = "chimera"
	return cfg
}

func TestConfig_Finalize_Defaults(t *testing.T) {
	cfg := minimal()

	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Engine.MaxAgents != 10 {
		t.Errorf("MaxAgents = %d, want 10", cfg.Engine.MaxAgents)
	}
	if cfg.Engine.AgentTimeoutDuration() != 300*time.Second {
		t.Errorf("AgentTimeout = %v", cfg.Engine.AgentTimeoutDuration())
	}
	if cfg.Engine.TaskTimeoutDuration() != 600*time.Second {
		t.Errorf("TaskTimeout = %v", cfg.Engine.TaskTimeoutDuration())
	}
	if cfg.Engine.Decompose.Model != "gpt-4" || *cfg.Engine.Decompose.Temperature != 0.3 || cfg.Engine.Decompose.MaxTokens != 1000 {
		t.Errorf("Decompose = %+v", cfg.Engine.Decompose)
	}
	if *cfg.Engine.Direct.Temperature != 0.7 || cfg.Engine.Direct.MaxTokens != 2000 {
		t.Errorf("Direct = %+v", cfg.Engine.Direct)
	}
	if cfg.Realtime.ReadLimitBytes() != 64000 {
		t.Errorf("ReadLimitBytes() = %d", cfg.Realtime.ReadLimitBytes())
	}
	if len(cfg.API.CORS.Origins) != 2 {
		t.Errorf("CORS origins = %v", cfg.API.CORS.Origins)
	}
}

func TestConfig_Finalize_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvOpenAIAPIKey, "sk-test")
	t.Setenv(config.EnvEngineMaxDepth, "1")
	t.Setenv(config.EnvServerPort, "9000")

	cfg := minimal()
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Providers.OpenAIAPIKey != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q", cfg.Providers.OpenAIAPIKey)
	}
	if cfg.Engine.MaxDepth != 1 {
		t.Errorf("MaxDepth = %d, want 1", cfg.Engine.MaxDepth)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
}

func TestConfig_Finalize_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad port", func(c *config.Config) { c.Server.Port = 70000 }},
		{"bad task timeout", func(c *config.Config) { c.Engine.TaskTimeout = "later" }},
		{"bad body size", func(c *config.Config) { c.API.MaxBodySize = "lots" }},
		{"nested realtime path", func(c *config.Config) { c.Realtime.Path = "/ws/v1" }},
		{"temperature out of range", func(c *config.Config) {
			hot := 3.0
			c.Engine.Direct.Temperature = &hot
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimal()
			tt.mutate(cfg)
			if err := cfg.Finalize(); err == nil {
				t.Error("Finalize() should fail")
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	zero := 0.0
	base := minimal()
	base.Engine.MaxSubtasks = 5

	overlay := &config.Config{}
	overlay.Engine.MaxSubtasks = 2
	overlay.Engine.Decompose.Temperature = &zero
	overlay.Providers.GeminiAPIKey = "g-key"

	base.Merge(overlay)
	if err := base.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if base.Engine.MaxSubtasks != 2 {
		t.Errorf("MaxSubtasks = %d, want 2", base.Engine.MaxSubtasks)
	}
	if *base.Engine.Decompose.Temperature != 0 {
		t.Errorf("explicit zero temperature lost: %v", *base.Engine.Decompose.Temperature)
	}
	if base.Providers.GeminiAPIKey != "g-key" {
		t.Errorf("GeminiAPIKey = %q", base.Providers.GeminiAPIKey)
	}
}

func TestLoad_Overlay(t *testing.T) {
	dir := t.TempDir()
	base := `
[database]
name = "chimera"
user = "chimera"

[engine]
max_agents = 4
`
	overlay := `
[engine]
max_agents = 8
`
	if err := os.WriteFile(filepath.Join(dir, config.BaseConfigFile), []byte(base), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.test.toml"), []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	t.Chdir(dir)
	t.Setenv(config.EnvServiceEnv, "test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.MaxAgents != 8 {
		t.Errorf("MaxAgents = %d, want 8 from overlay", cfg.Engine.MaxAgents)
	}
}
