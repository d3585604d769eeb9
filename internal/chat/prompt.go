package chat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/TAPUZE/project-chimera/internal/agents"
)

const defaultSystemPrompt = `You are a helpful AI assistant. You are part of Project Chimera,
a multi-agent AI system. Provide helpful, accurate, and engaging responses.`

var typeGuidance = map[string]string{
	"researcher": "Focus on providing well-researched, factual information with sources when possible.",
	"analyst":    "Provide analytical insights, identify patterns, and offer data-driven recommendations.",
	"creative":   "Be creative and innovative in your responses. Think outside the box.",
	"assistant":  "Be helpful, clear, and comprehensive in your assistance.",
}

// SystemPrompt describes agent to the model. A nil agent gets the
// default assistant prompt.
func SystemPrompt(agent *agents.Agent) string {
	if agent == nil {
		return defaultSystemPrompt
	}

	description := agent.Description
	if description == "" {
		description = "No description provided"
	}

	capabilities := "General assistance"
	if list := capabilityNames(agent.Capabilities); len(list) > 0 {
		capabilities = strings.Join(list, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a %s agent in Project Chimera.\n\n", agent.Name, agent.AgentType)
	fmt.Fprintf(&sb, "Agent Description: %s\n\n", description)
	fmt.Fprintf(&sb, "Your capabilities include: %s\n", capabilities)

	if agent.SystemPrompt != "" {
		fmt.Fprintf(&sb, "\nAdditional Instructions: %s\n", agent.SystemPrompt)
	}
	if guidance, ok := typeGuidance[agent.AgentType]; ok {
		sb.WriteString("\n" + guidance)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// capabilityNames lists an array's strings, or an object's keys whose
// value is not false, in sorted order.
func capabilityNames(raw []byte) []string {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}

	var names []string
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.IsArray():
		doc.ForEach(func(_, v gjson.Result) bool {
			if s := strings.TrimSpace(v.String()); s != "" {
				names = append(names, s)
			}
			return true
		})
	case doc.IsObject():
		doc.ForEach(func(k, v gjson.Result) bool {
			if v.Type != gjson.False && v.Type != gjson.Null {
				names = append(names, k.String())
			}
			return true
		})
	}
	slices.Sort(names)
	return names
}

// ConversationPrompt renders history as Human/Assistant lines followed by
// the new message and an open Assistant turn.
func ConversationPrompt(history []Turn, message string) string {
	var sb strings.Builder
	for _, t := range history {
		sb.WriteString(speaker(t.Role))
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("Human: ")
	sb.WriteString(message)
	sb.WriteString("\nAssistant:")
	return sb.String()
}

func speaker(role string) string {
	if role == RoleUser {
		return "Human"
	}
	return "Assistant"
}

func transcript(turns []Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = t.Role + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

func summaryPrompt(turns []Turn) string {
	return "Please provide a concise summary of this conversation:\n\n" +
		transcript(turns) +
		"\n\nSummary:"
}

func suggestionsPrompt(turns []Turn) string {
	return "Based on this conversation, suggest 3 helpful follow-up questions or responses:\n\n" +
		transcript(turns) +
		"\n\nPlease provide 3 short, relevant suggestions:"
}

// parseSuggestions keeps the first limit non-empty lines.
func parseSuggestions(text string, limit int) []string {
	out := make([]string, 0, limit)
	for line := range strings.Lines(text) {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
