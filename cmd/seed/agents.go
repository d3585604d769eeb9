package main

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/TAPUZE/project-chimera/internal/agents"
	"github.com/TAPUZE/project-chimera/internal/providers"
)

//go:embed seeds/*.json
var seedFiles embed.FS

func init() {
	registerSeeder(&AgentSeeder{})
}

// AgentSeedData is the JSON layout of an agent seed file.
type AgentSeedData struct {
	Agents []agents.CreateCommand `json:"agents"`
}

// AgentSeeder inserts demo agents that do not exist yet, matched by name.
type AgentSeeder struct {
	file string
}

func (s *AgentSeeder) Name() string { return "agents" }

func (s *AgentSeeder) Description() string {
	return "Seeds one demo agent per common agent type"
}

// SetFile replaces the embedded seed data with an external JSON or YAML
// file, chosen by extension.
func (s *AgentSeeder) SetFile(path string) {
	s.file = path
}

func (s *AgentSeeder) Seed(ctx context.Context, tx *sql.Tx) error {
	data, err := s.load()
	if err != nil {
		return err
	}

	inserted := 0
	for _, cmd := range data.Agents {
		ok, err := insertAgent(ctx, tx, withDefaults(cmd))
		if err != nil {
			return fmt.Errorf("save agent %s: %w", cmd.Name, err)
		}
		if ok {
			inserted++
		}
	}

	fmt.Printf("agents: %d inserted, %d already present\n", inserted, len(data.Agents)-inserted)
	return nil
}

func (s *AgentSeeder) load() (*AgentSeedData, error) {
	var content []byte
	var err error

	if s.file != "" {
		content, err = os.ReadFile(s.file)
	} else {
		content, err = seedFiles.ReadFile("seeds/agents.json")
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(s.file)) {
	case ".yaml", ".yml":
		if content, err = yamlToJSON(content); err != nil {
			return nil, err
		}
	}
	return parseAgentSeed(content)
}

// yamlToJSON re-encodes a YAML document so that seed files share the
// JSON field names of agents.CreateCommand.
func yamlToJSON(content []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml seed: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml seed: %w", err)
	}
	return out, nil
}

func parseAgentSeed(content []byte) (*AgentSeedData, error) {
	var data AgentSeedData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}

	for _, cmd := range data.Agents {
		if cmd.Name == "" {
			return nil, fmt.Errorf("seed agent without name")
		}
		if !agents.ValidType(cmd.AgentType) {
			return nil, fmt.Errorf("agent %s: unknown type %q", cmd.Name, cmd.AgentType)
		}
		if cmd.Model != "" {
			if _, ok := providers.Lookup(cmd.Model); !ok {
				return nil, fmt.Errorf("agent %s: unsupported model %q", cmd.Name, cmd.Model)
			}
		}
		if len(cmd.Capabilities) > 0 {
			if !gjson.ParseBytes(cmd.Capabilities).IsObject() {
				return nil, fmt.Errorf("agent %s: capabilities must be a JSON object", cmd.Name)
			}
		}
	}
	return &data, nil
}

func withDefaults(cmd agents.CreateCommand) agents.CreateCommand {
	if cmd.Model == "" {
		cmd.Model = agents.DefaultModel
	}
	if cmd.Temperature == nil {
		t := agents.DefaultTemperature
		cmd.Temperature = &t
	}
	if cmd.MaxTokens == nil {
		n := agents.DefaultMaxTokens
		cmd.MaxTokens = &n
	}
	return cmd
}

func insertAgent(ctx context.Context, tx *sql.Tx, cmd agents.CreateCommand) (bool, error) {
	const query = `
		INSERT INTO agents (name, description, agent_type, model, temperature, max_tokens,
			system_prompt, capabilities, config)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (SELECT 1 FROM agents WHERE name = $1)`

	res, err := tx.ExecContext(ctx, query,
		cmd.Name, cmd.Description, cmd.AgentType, cmd.Model, *cmd.Temperature, *cmd.MaxTokens,
		cmd.SystemPrompt, nullJSON(cmd.Capabilities), nullJSON(cmd.Config),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
