package agent

import (
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/prompts"
)

// buildSystemPrompt returns the system prompt for one run. A prompt set with
// WithSystemPrompt is used verbatim.
func (a *DefaultAgent) buildSystemPrompt(vision bool) string {
	if a.systemPrompt != "" {
		return a.systemPrompt
	}
	return prompts.NewPromptBuilder().
		WithCustomInstructions(a.customInstructions).
		WithVision(vision).
		Build()
}
