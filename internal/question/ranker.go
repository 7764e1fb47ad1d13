package question

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/ai"
	"github.com/prism-labs/prism/internal/schema"
)

//go:embed rank.md
var rankTemplate string

const rankSystem = "You are an expert in personalization. Score each interview question by how much its answer improves recommendation quality."

type rankerStage struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewRanker creates the stage that populates impact scores. It asks the
// model to score the whole batch in one call; on failure every candidate
// falls back to the deterministic heuristic.
func NewRanker(generator ai.Generator, logger *zap.Logger) Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &rankerStage{generator: generator, logger: logger}
}

func (r *rankerStage) Name() string { return "rank" }

func (r *rankerStage) Apply(ctx context.Context, batch *Batch) (*Batch, Step, error) {
	initial := batch.Len()
	if initial == 0 {
		return batch, Step{}, nil
	}

	scores, err := r.modelScores(ctx, batch)
	if err != nil {
		r.logger.Warn("model ranking failed, falling back to heuristic scores", zap.Error(err))
		scores = nil
	}

	for _, candidate := range batch.Items {
		score, ok := scores[candidate.Field.Name]
		if !ok || math.IsNaN(score) {
			score = HeuristicScore(candidate.Field)
		}
		candidate.ImpactScore = clampScore(score)
	}

	return batch, Step{Initial: initial, Dropped: 0, Left: initial}, nil
}

// modelScores sends the batch to the model and maps the returned scores back
// by field path. Candidate order is never taken from the response.
func (r *rankerStage) modelScores(ctx context.Context, batch *Batch) (map[string]float64, error) {
	if r.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}

	flat := make([]map[string]string, 0, batch.Len())
	for _, candidate := range batch.Items {
		flat = append(flat, map[string]string{
			"field":    candidate.Field.Name,
			"question": candidate.Text,
		})
	}

	payload, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}

	prompt := strings.ReplaceAll(rankTemplate, "{{QUESTIONS_JSON}}", string(payload))

	raw, err := r.generator.GenerateContent(ctx, rankSystem, prompt)
	if err != nil {
		return nil, &ai.GenerationError{Op: "impact ranking", Err: err}
	}

	var scored []map[string]any
	if err := ai.UnmarshalArray(raw, &scored); err != nil {
		return nil, &ai.GenerationError{Op: "impact ranking", Err: err}
	}

	scores := make(map[string]float64, len(scored))
	for _, item := range scored {
		field := ai.CoerceString(item["field"])
		if field == "" {
			continue
		}
		scores[field] = ai.CoerceFloat(item["impactScore"])
	}

	return scores, nil
}

// HeuristicScore estimates question impact without a model: more specific
// descriptions and deeper schema paths score higher, and fields with no
// answer yet get a missing-data bonus.
func HeuristicScore(field schema.Field) float64 {
	score := 20.0

	words := len(strings.Fields(field.Description))
	if words > 12 {
		words = 12
	}
	score += float64(words) * 2.5

	if !field.Answered {
		score += 30
	}

	switch field.Type {
	case schema.FieldChoice:
		score += 10
	case schema.FieldNumber, schema.FieldBoolean:
		score += 5
	}

	depth := strings.Count(field.Name, ".")
	if depth > 2 {
		depth = 2
	}
	score += float64(depth) * 5

	return clampScore(score)
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
