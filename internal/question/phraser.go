package question

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/ai"
	"github.com/prism-labs/prism/internal/logger"
	"github.com/prism-labs/prism/internal/schema"
)

//go:embed phrase.md
var phraseTemplate string

const phraseSystem = "You are a friendly AI assistant helping users build their personalized digital twin for better recommendations. Your tone should be warm, encouraging, and respectful."

type phraserStage struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewPhraser creates the stage that turns fields into conversational
// questions. A generation failure degrades to a templated question instead
// of aborting the batch.
func NewPhraser(generator ai.Generator, logger *zap.Logger) Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &phraserStage{generator: generator, logger: logger}
}

func (p *phraserStage) Name() string { return "phrase" }

func (p *phraserStage) Apply(ctx context.Context, batch *Batch) (*Batch, Step, error) {
	initial := batch.Len()

	for _, candidate := range batch.Items {
		if strings.TrimSpace(candidate.Text) != "" {
			continue
		}

		text, err := p.phrase(ctx, candidate.Field)
		if err != nil {
			p.logger.Warn("question phrasing failed, falling back to template",
				zap.String("field", candidate.Field.Name),
				zap.Error(err),
			)
			candidate.Text = TemplateQuestion(candidate.Field)
			candidate.Templated = true
			continue
		}

		candidate.Text = text
		p.logger.Debug("question phrased",
			zap.String("field", candidate.Field.Name),
			zap.String("question", logger.TruncateForLog(text, 120)),
		)
	}

	return batch, Step{Initial: initial, Dropped: 0, Left: batch.Len()}, nil
}

func (p *phraserStage) phrase(ctx context.Context, field schema.Field) (string, error) {
	if p.generator == nil {
		return "", fmt.Errorf("no generator configured")
	}

	prompt := strings.ReplaceAll(phraseTemplate, "{{FIELD_NAME}}", field.Name)
	prompt = strings.ReplaceAll(prompt, "{{DESCRIPTION}}", field.Description)

	raw, err := p.generator.GenerateContent(ctx, phraseSystem, prompt)
	if err != nil {
		return "", &ai.GenerationError{Op: "question phrasing", Err: err}
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &ai.GenerationError{Op: "question phrasing", Err: fmt.Errorf("empty response")}
	}

	return text, nil
}

// TemplateQuestion builds a deterministic fallback question from the field
// itself, used when the text-generation service is unavailable.
func TemplateQuestion(field schema.Field) string {
	topic := humanizePath(field.Name)

	switch field.Type {
	case schema.FieldBoolean:
		return fmt.Sprintf("Is %s true for you? Feel free to add any detail.", topic)
	case schema.FieldNumber:
		return fmt.Sprintf("What number best describes your %s?", topic)
	case schema.FieldChoice:
		if len(field.Values) > 0 {
			return fmt.Sprintf("Which of these best matches your %s: %s?", topic, strings.Join(field.Values, ", "))
		}
		return fmt.Sprintf("Which option best matches your %s?", topic)
	default:
		if field.Description != "" {
			return fmt.Sprintf("Could you tell me about your %s? (%s)", topic, field.Description)
		}
		return fmt.Sprintf("Could you tell me about your %s?", topic)
	}
}

// humanizePath turns the last path segment into readable words, splitting
// camelCase ("lifeStageNotes" -> "life stage notes").
func humanizePath(path string) string {
	segment := path
	if idx := strings.LastIndex(path, "."); idx != -1 {
		segment = path[idx+1:]
	}

	var words []string
	var current strings.Builder
	for _, r := range segment {
		if r >= 'A' && r <= 'Z' && current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return strings.ToLower(strings.Join(words, " "))
}
