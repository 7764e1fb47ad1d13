package question

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/schema"
)

func TestRankerUsesModelScores(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `[
		{"field": "a.first", "question": "q1", "impactScore": 92},
		{"field": "a.second", "question": "q2", "impactScore": "41.5"}
	]` + "\n```"}
	stage := NewRanker(stub, zap.NewNop())

	batch := &Batch{Items: []*Candidate{
		{Field: schema.Field{Name: "a.first", Type: schema.FieldText}, Text: "q1", Status: StatusPending},
		{Field: schema.Field{Name: "a.second", Type: schema.FieldText}, Text: "q2", Status: StatusPending},
	}}

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Items[0].ImpactScore != 92 {
		t.Fatalf("expected score 92, got %v", out.Items[0].ImpactScore)
	}
	if out.Items[1].ImpactScore != 41.5 {
		t.Fatalf("expected coerced score 41.5, got %v", out.Items[1].ImpactScore)
	}

	if !strings.Contains(stub.lastMessage, `"a.first"`) {
		t.Fatalf("expected field paths in prompt: %s", stub.lastMessage)
	}
}

func TestRankerPreservesCandidateOrder(t *testing.T) {
	// Model returns entries reordered; batch order must not change.
	stub := &stubGenerator{response: `[
		{"field": "a.second", "impactScore": 99},
		{"field": "a.first", "impactScore": 10}
	]`}
	stage := NewRanker(stub, zap.NewNop())

	batch := &Batch{Items: []*Candidate{
		{Field: schema.Field{Name: "a.first", Type: schema.FieldText}, Text: "q1", Status: StatusPending},
		{Field: schema.Field{Name: "a.second", Type: schema.FieldText}, Text: "q2", Status: StatusPending},
	}}

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Items[0].Field.Name != "a.first" || out.Items[1].Field.Name != "a.second" {
		t.Fatalf("candidate order changed: %+v", out.Items)
	}
	if out.Items[0].ImpactScore != 10 || out.Items[1].ImpactScore != 99 {
		t.Fatalf("scores mapped to wrong candidates: %v %v", out.Items[0].ImpactScore, out.Items[1].ImpactScore)
	}
}

func TestRankerFallsBackToHeuristicOnError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("service down")}
	stage := NewRanker(stub, zap.NewNop())

	field := schema.Field{Name: "a.first", Type: schema.FieldText, Description: "Favorite music genres and artists"}
	batch := &Batch{Items: []*Candidate{{Field: field, Text: "q1", Status: StatusPending}}}

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("ranking failure must degrade, not abort: %v", err)
	}

	if out.Items[0].ImpactScore != HeuristicScore(field) {
		t.Fatalf("expected heuristic score %v, got %v", HeuristicScore(field), out.Items[0].ImpactScore)
	}
}

func TestRankerFillsMissingEntriesWithHeuristic(t *testing.T) {
	stub := &stubGenerator{response: `[{"field": "a.first", "impactScore": 77}]`}
	stage := NewRanker(stub, zap.NewNop())

	second := schema.Field{Name: "a.second", Type: schema.FieldText}
	batch := &Batch{Items: []*Candidate{
		{Field: schema.Field{Name: "a.first", Type: schema.FieldText}, Text: "q1", Status: StatusPending},
		{Field: second, Text: "q2", Status: StatusPending},
	}}

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Items[0].ImpactScore != 77 {
		t.Fatalf("expected model score 77, got %v", out.Items[0].ImpactScore)
	}
	if out.Items[1].ImpactScore != HeuristicScore(second) {
		t.Fatalf("expected heuristic score for missing entry, got %v", out.Items[1].ImpactScore)
	}
}

func TestRankerClampsScores(t *testing.T) {
	stub := &stubGenerator{response: `[
		{"field": "a.first", "impactScore": 250},
		{"field": "a.second", "impactScore": -12}
	]`}
	stage := NewRanker(stub, zap.NewNop())

	batch := &Batch{Items: []*Candidate{
		{Field: schema.Field{Name: "a.first", Type: schema.FieldText}, Status: StatusPending},
		{Field: schema.Field{Name: "a.second", Type: schema.FieldText}, Status: StatusPending},
	}}

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Items[0].ImpactScore != 100 || out.Items[1].ImpactScore != 0 {
		t.Fatalf("scores not clamped: %v %v", out.Items[0].ImpactScore, out.Items[1].ImpactScore)
	}
}

func TestHeuristicScoreIsDeterministic(t *testing.T) {
	field := schema.Field{
		Name:        "generalprofile.corePreferences.musicGenres",
		Type:        schema.FieldChoice,
		Description: "Music genres the user enjoys listening to",
	}

	first := HeuristicScore(field)
	second := HeuristicScore(field)
	if first != second {
		t.Fatalf("heuristic not deterministic: %v vs %v", first, second)
	}

	if first < 0 || first > 100 {
		t.Fatalf("heuristic score out of range: %v", first)
	}

	answered := field
	answered.Answered = true
	if HeuristicScore(answered) >= first {
		t.Fatal("answered field must score below unanswered field")
	}
}

func TestPipelineSkipAnswered(t *testing.T) {
	batch := NewBatch([]schema.Field{
		{Name: "a.known", Type: schema.FieldText, Answered: true},
		{Name: "a.stored", Type: schema.FieldText},
		{Name: "a.open", Type: schema.FieldText},
	})

	stage := NewSkipAnswered(map[string]bool{"a.stored": true})

	out, step, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if step.Initial != 3 || step.Dropped != 2 || step.Left != 1 {
		t.Fatalf("unexpected step stats: %+v", step)
	}

	if len(out.Items) != 1 || out.Items[0].Field.Name != "a.open" {
		t.Fatalf("unexpected remaining candidates: %+v", out.Items)
	}
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	stub := &stubGenerator{response: "A friendly question?"}

	batch := NewBatch([]schema.Field{
		{Name: "a.answered", Type: schema.FieldText, Answered: true},
		{Name: "a.open", Type: schema.FieldText, Description: "Open field"},
	})

	stages := []Stage{
		NewSkipAnswered(nil),
		NewPhraser(stub, zap.NewNop()),
		NewRanker(&stubGenerator{err: errors.New("down")}, zap.NewNop()),
	}

	out, err := Run(context.Background(), zap.NewNop(), stages, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Len() != 1 {
		t.Fatalf("expected 1 candidate, got %d", out.Len())
	}

	candidate := out.Items[0]
	if candidate.Text != "A friendly question?" {
		t.Fatalf("unexpected text: %q", candidate.Text)
	}
	if candidate.ImpactScore == 0 {
		t.Fatal("expected heuristic score to be populated")
	}
}
