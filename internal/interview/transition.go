package interview

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"github.com/prism-labs/prism/internal/ai"
)

//go:embed transition.md
var transitionTemplate string

const transitionSystem = "You are a friendly, engaging interviewer having a casual, supportive conversation. " +
	"When provided with a user's previous response and a next question, create a natural, conversational transition. " +
	"Acknowledge or positively reflect on the user's response, and then smoothly ask the next question. " +
	"Keep the tone friendly, curious, and encouraging, and avoid robotic phrasing. " +
	"Do not rigidly repeat the question; weave it naturally into your words."

// AITransitioner rephrases follow-up questions conversationally using the
// text-generation service.
type AITransitioner struct {
	generator ai.Generator
}

func NewAITransitioner(generator ai.Generator) *AITransitioner {
	return &AITransitioner{generator: generator}
}

func (t *AITransitioner) Transition(ctx context.Context, nextQuestion, previousAnswer string) (string, error) {
	if t == nil || t.generator == nil {
		return "", fmt.Errorf("no generator configured")
	}

	prompt := strings.ReplaceAll(transitionTemplate, "{{NEXT_QUESTION}}", nextQuestion)
	prompt = strings.ReplaceAll(prompt, "{{PREVIOUS_ANSWER}}", previousAnswer)

	raw, err := t.generator.GenerateContent(ctx, transitionSystem, prompt)
	if err != nil {
		return "", &ai.GenerationError{Op: "question transition", Err: err}
	}

	return strings.TrimSpace(raw), nil
}
