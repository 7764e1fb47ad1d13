// Package recommend turns a collected profile into personalized
// recommendations for a free-form request.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/ai"
)

//go:embed recommend.md
var promptTemplate string

const recommendSystem = "You are a thoughtful personal assistant that knows the user through their profile. " +
	"You recommend options that genuinely fit who they are, citing the profile details that support each pick. " +
	"You never pad the list with generic suggestions."

// DefaultCount is the number of recommendations produced unless configured
// otherwise.
const DefaultCount = 3

// Recommendation is a single suggested option with its profile-grounded
// rationale.
type Recommendation struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Engine asks the text-generation service for recommendations based on the
// stored profile answers. Generation failures are surfaced to the caller;
// there is no degraded output for this operation.
type Engine struct {
	generator ai.Generator
	count     int
	logger    *zap.Logger
}

func NewEngine(generator ai.Generator, count int, logger *zap.Logger) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if count <= 0 {
		count = DefaultCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{generator: generator, count: count, logger: logger}, nil
}

// Recommend produces exactly the configured number of recommendations for
// the query, grounded in the profile answers.
func (e *Engine) Recommend(ctx context.Context, answers map[string]any, query string) ([]Recommendation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}
	if len(answers) == 0 {
		return nil, errors.New("profile has no answers to ground recommendations on")
	}

	profileJSON, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{QUERY}}", query)
	prompt = strings.ReplaceAll(prompt, "{{COUNT}}", strconv.Itoa(e.count))

	raw, err := e.generator.GenerateContent(ctx, recommendSystem, prompt)
	if err != nil {
		return nil, &ai.GenerationError{Op: "recommendation", Err: err}
	}

	var items []Recommendation
	if err := ai.UnmarshalArray(raw, &items); err != nil {
		return nil, &ai.GenerationError{Op: "recommendation", Err: err}
	}

	cleaned := make([]Recommendation, 0, len(items))
	for _, item := range items {
		item.Title = strings.TrimSpace(item.Title)
		item.Reason = strings.TrimSpace(item.Reason)
		if item.Title == "" {
			continue
		}
		cleaned = append(cleaned, item)
	}

	if len(cleaned) < e.count {
		return nil, &ai.GenerationError{
			Op:  "recommendation",
			Err: fmt.Errorf("expected %d recommendations, got %d", e.count, len(cleaned)),
		}
	}
	if len(cleaned) > e.count {
		e.logger.Debug("model returned extra recommendations",
			zap.Int("expected", e.count),
			zap.Int("got", len(cleaned)),
		)
		cleaned = cleaned[:e.count]
	}

	return cleaned, nil
}
