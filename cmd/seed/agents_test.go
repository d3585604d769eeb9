package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TAPUZE/project-chimera/internal/agents"
)

func TestEmbeddedAgentSeed(t *testing.T) {
	content, err := seedFiles.ReadFile("seeds/agents.json")
	if err != nil {
		t.Fatal(err)
	}

	data, err := parseAgentSeed(content)
	if err != nil {
		t.Fatalf("parseAgentSeed() error = %v", err)
	}
	if len(data.Agents) == 0 {
		t.Fatal("embedded seed has no agents")
	}
}

func TestParseAgentSeed_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", `{"agents": [`},
		{"missing name", `{"agents": [{"agent_type": "assistant"}]}`},
		{"unknown type", `{"agents": [{"name": "x", "agent_type": "wizard"}]}`},
		{"unknown model", `{"agents": [{"name": "x", "agent_type": "assistant", "model": "gpt-99"}]}`},
		{"array capabilities", `{"agents": [{"name": "x", "agent_type": "assistant", "capabilities": ["chat"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseAgentSeed([]byte(tt.content)); err == nil {
				t.Error("parseAgentSeed() should fail")
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	cmd := withDefaults(agents.CreateCommand{Name: "x", AgentType: "assistant"})

	if cmd.Model != agents.DefaultModel {
		t.Errorf("Model = %q, want %q", cmd.Model, agents.DefaultModel)
	}
	if cmd.Temperature == nil || *cmd.Temperature != agents.DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", cmd.Temperature, agents.DefaultTemperature)
	}
	if cmd.MaxTokens == nil || *cmd.MaxTokens != agents.DefaultMaxTokens {
		t.Errorf("MaxTokens = %v, want %v", cmd.MaxTokens, agents.DefaultMaxTokens)
	}

	temp := 0.1
	kept := withDefaults(agents.CreateCommand{Name: "y", AgentType: "assistant", Temperature: &temp})
	if *kept.Temperature != 0.1 {
		t.Errorf("explicit temperature replaced: %v", *kept.Temperature)
	}
}

func TestListSeeders_Sorted(t *testing.T) {
	got := listSeeders()
	if len(got) != 2 || got[0].Name() != "agents" || got[1].Name() != "users" {
		names := make([]string, len(got))
		for i, s := range got {
			names[i] = s.Name()
		}
		t.Errorf("listSeeders() = %v, want [agents users]", names)
	}
}

func TestYAMLSeed(t *testing.T) {
	content := []byte(`
agents:
  - name: Field Researcher
    agent_type: researcher
    model: claude-3-haiku
    system_prompt: Find primary sources.
    capabilities:
      web_search: true
      languages: [en, de]
`)

	converted, err := yamlToJSON(content)
	if err != nil {
		t.Fatalf("yamlToJSON() error = %v", err)
	}
	data, err := parseAgentSeed(converted)
	if err != nil {
		t.Fatalf("parseAgentSeed() error = %v", err)
	}

	if len(data.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(data.Agents))
	}
	a := data.Agents[0]
	if a.Name != "Field Researcher" || a.AgentType != "researcher" || a.SystemPrompt != "Find primary sources." {
		t.Errorf("agent = %+v", a)
	}
	if string(a.Capabilities) != `{"languages":["en","de"],"web_search":true}` {
		t.Errorf("capabilities = %s", a.Capabilities)
	}
}

func TestAgentSeeder_LoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yml")
	if err := os.WriteFile(path, []byte("agents:\n  - name: x\n    agent_type: wizard\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := &AgentSeeder{}
	s.SetFile(path)
	if _, err := s.load(); err == nil {
		t.Error("load() should reject an unknown agent type from a YAML file")
	}
}
