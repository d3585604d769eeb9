package tasktype

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func agentPrompt(intro string, b Brief, inputLabel, instructions string) string {
	var sb strings.Builder
	sb.WriteString(intro)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Task: %s\n", b.Title)
	fmt.Fprintf(&sb, "Description: %s\n", b.Description)
	fmt.Fprintf(&sb, "%s: %s\n\n", inputLabel, FormatInput(b.Input))
	sb.WriteString(instructions)
	return sb.String()
}

type research struct{}

func (research) sealed()                       {}
func (research) Type() Type                    { return Research }
func (research) Name() string                  { return "Research Task" }
func (research) Description() string           { return "Gather and analyze information from various sources" }
func (research) SystemPrompt(p Profile) string { return p.SystemPrompt }

func (research) AgentPrompt(p Profile, b Brief) string {
	return agentPrompt(
		fmt.Sprintf("You are a research agent named %s.", p.Name),
		b, "Input Data",
		"Please conduct thorough research on the given topic and provide:\n"+
			"1. Key findings\n"+
			"2. Sources and references\n"+
			"3. Summary of insights\n"+
			"4. Recommendations for further research\n\n"+
			"Format your response as structured data.",
	)
}

func (research) DirectInstruction() string {
	return "Please conduct thorough research and provide detailed findings with sources."
}

func (research) Envelope(content string, _ Profile, _ Brief) map[string]any {
	return map[string]any{
		"type":        "research_results",
		"content":     content,
		"methodology": "AI-powered research",
		"sources":     []any{},
		"confidence":  0.8,
	}
}

type analysis struct{}

func (analysis) sealed()                       {}
func (analysis) Type() Type                    { return Analysis }
func (analysis) Name() string                  { return "Data Analysis" }
func (analysis) Description() string           { return "Analyze data and extract insights" }
func (analysis) SystemPrompt(p Profile) string { return p.SystemPrompt }

func (analysis) AgentPrompt(p Profile, b Brief) string {
	return agentPrompt(
		fmt.Sprintf("You are a data analyst agent named %s.", p.Name),
		b, "Data to analyze",
		"Please analyze the provided data and provide:\n"+
			"1. Key patterns and trends\n"+
			"2. Statistical insights\n"+
			"3. Anomalies or outliers\n"+
			"4. Conclusions and recommendations\n\n"+
			"Format your response as structured analysis results.",
	)
}

func (analysis) DirectInstruction() string {
	return "Please analyze the data and provide insights, patterns, and recommendations."
}

func (analysis) Envelope(content string, _ Profile, _ Brief) map[string]any {
	return map[string]any{
		"type":           "analysis_results",
		"content":        content,
		"data_points":    0,
		"confidence":     0.85,
		"visualizations": []any{},
	}
}

type generation struct{}

func (generation) sealed()                       {}
func (generation) Type() Type                    { return Generation }
func (generation) Name() string                  { return "Content Generation" }
func (generation) Description() string           { return "Generate text, code, or other content" }
func (generation) SystemPrompt(p Profile) string { return p.SystemPrompt }

func (generation) AgentPrompt(p Profile, b Brief) string {
	return agentPrompt(
		fmt.Sprintf("You are a creative generation agent named %s.", p.Name),
		b, "Requirements",
		"Please generate high-quality content based on the requirements.\n"+
			"Be creative, original, and ensure the content meets the specified criteria.",
	)
}

func (generation) DirectInstruction() string {
	return "Please generate high-quality content that meets the requirements."
}

func (generation) Envelope(content string, _ Profile, _ Brief) map[string]any {
	return map[string]any{
		"type":             "generated_content",
		"content":          content,
		"word_count":       len(strings.Fields(content)),
		"creativity_score": 0.9,
	}
}

type classification struct{}

func (classification) sealed()                       {}
func (classification) Type() Type                    { return Classification }
func (classification) Name() string                  { return "Classification" }
func (classification) Description() string           { return "Classify or categorize items" }
func (classification) SystemPrompt(p Profile) string { return p.SystemPrompt }

func (classification) AgentPrompt(p Profile, b Brief) string {
	return agentPrompt(
		fmt.Sprintf("You are a classification agent named %s.", p.Name),
		b, "Items to classify",
		"Please classify the provided items according to the specified criteria.\n"+
			"Provide clear categories and confidence scores for each classification.",
	)
}

func (classification) DirectInstruction() string {
	return "Please classify the items according to the specified criteria."
}

func (classification) Envelope(content string, _ Profile, _ Brief) map[string]any {
	return map[string]any{
		"type":              "classification_results",
		"content":           content,
		"categories":        []any{},
		"confidence_scores": []any{},
		"accuracy":          0.9,
	}
}

type summary struct{}

func (summary) sealed()                       {}
func (summary) Type() Type                    { return Summary }
func (summary) Name() string                  { return "Summarization" }
func (summary) Description() string           { return "Summarize text or information" }
func (summary) SystemPrompt(p Profile) string { return p.SystemPrompt }

func (summary) AgentPrompt(p Profile, b Brief) string {
	return agentPrompt(
		fmt.Sprintf("You are a summarization agent named %s.", p.Name),
		b, "Content to summarize",
		"Please provide a comprehensive summary that captures the key points,\n"+
			"main ideas, and important details while being concise and well-structured.",
	)
}

func (summary) DirectInstruction() string {
	return "Please provide a comprehensive summary of the content."
}

func (summary) Envelope(content string, _ Profile, b Brief) map[string]any {
	return map[string]any{
		"type":              "summary_results",
		"content":           content,
		"original_length":   utf8.RuneCountInString(FormatInput(b.Input)),
		"summary_length":    utf8.RuneCountInString(content),
		"compression_ratio": 0.3,
	}
}

// custom embeds the agent system prompt in the prompt body rather than
// sending it separately.
type custom struct{}

const defaultSystemPrompt = "You are a helpful AI assistant."

func (custom) sealed()                     {}
func (custom) Type() Type                  { return Custom }
func (custom) Name() string                { return "Custom Task" }
func (custom) Description() string         { return "Custom task with specific requirements" }
func (custom) SystemPrompt(Profile) string { return "" }

func (custom) AgentPrompt(p Profile, b Brief) string {
	system := p.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	return agentPrompt(system, b, "Input", "Please complete this task according to the requirements.")
}

func (custom) DirectInstruction() string {
	return "Please complete the task according to the requirements."
}

func (custom) Envelope(content string, p Profile, b Brief) map[string]any {
	return map[string]any{
		"type":       "custom_results",
		"content":    content,
		"task_type":  string(b.Type),
		"agent_type": p.AgentType,
	}
}
