package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/JaimeStill/go-agents/pkg/agent"
	agtconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const mockPrefixRunes = 100

type chatFunc func(ctx context.Context, prompt string, opts map[string]any) (string, error)

// localClient serves local models. Without an agent config it returns a
// canned response; with one, prompts go to a go-agents agent.
type localClient struct {
	chat chatFunc
}

func newLocalClient(configPath string) (*localClient, error) {
	if configPath == "" {
		return &localClient{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read local agent config: %w", err)
	}

	var userCfg agtconfig.AgentConfig
	if err := json.Unmarshal(data, &userCfg); err != nil {
		return nil, fmt.Errorf("parse local agent config: %w", err)
	}

	cfg := agtconfig.DefaultAgentConfig()
	cfg.Merge(&userCfg)

	a, err := agent.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("create local agent: %w", err)
	}

	return &localClient{
		chat: func(ctx context.Context, prompt string, opts map[string]any) (string, error) {
			resp, err := a.Chat(ctx, prompt, opts)
			if err != nil {
				return "", err
			}
			return resp.Content(), nil
		},
	}, nil
}

func (c *localClient) complete(ctx context.Context, req Request) (string, error) {
	if c.chat == nil {
		return mockResponse(req.Prompt), nil
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}

	out, err := c.chat(ctx, prompt, map[string]any{
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: local: %w", ErrProvider, err)
	}
	return out, nil
}

func (c *localClient) stream(ctx context.Context, req Request) (*Stream, error) {
	out, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return StreamOf(out), nil
}

func (c *localClient) probe(context.Context) error {
	return nil
}

func mockResponse(prompt string) string {
	r := []rune(prompt)
	if len(r) > mockPrefixRunes {
		r = r[:mockPrefixRunes]
	}
	return "[Local Model Response] This is a mock response for prompt: " + string(r) + "..."
}
