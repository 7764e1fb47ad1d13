package question

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Stage is a single step of the question-generation pipeline.
type Stage interface {
	Name() string
	Apply(ctx context.Context, batch *Batch) (*Batch, Step, error)
}

// Step describes the result of executing a pipeline stage.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Run executes the supplied stages sequentially over the batch.
func Run(ctx context.Context, logger *zap.Logger, stages []Stage, batch *Batch) (*Batch, error) {
	for _, stage := range stages {
		next, info, err := stage.Apply(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stage.Name(), err)
		}

		if logger != nil {
			logger.Info("pipeline stage",
				zap.String("name", stage.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		batch = next
	}

	return batch, nil
}

type skipAnsweredStage struct {
	answered map[string]bool
}

// NewSkipAnswered creates a stage that drops candidates whose field already
// has an answer, either in the schema itself or in the stored profile.
func NewSkipAnswered(answered map[string]bool) Stage {
	return &skipAnsweredStage{answered: answered}
}

func (s *skipAnsweredStage) Name() string { return "skip_answered" }

func (s *skipAnsweredStage) Apply(_ context.Context, batch *Batch) (*Batch, Step, error) {
	initial := batch.Len()

	kept := make([]*Candidate, 0, initial)
	for _, candidate := range batch.Items {
		if candidate.Field.Answered || s.answered[candidate.Field.Name] {
			continue
		}
		kept = append(kept, candidate)
	}

	batch.Items = kept
	return batch, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}
