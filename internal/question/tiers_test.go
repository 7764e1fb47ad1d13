package question

import (
	"fmt"
	"testing"

	"github.com/prism-labs/prism/internal/schema"
)

func scoredBatch(scores ...float64) *Batch {
	items := make([]*Candidate, 0, len(scores))
	for i, score := range scores {
		items = append(items, &Candidate{
			Field:       schema.Field{Name: fmt.Sprintf("section.field%d", i), Type: schema.FieldText},
			Text:        fmt.Sprintf("question %d", i),
			ImpactScore: score,
			Status:      StatusPending,
		})
	}
	return &Batch{Items: items}
}

func TestAssignTercilesEqualThirds(t *testing.T) {
	batch := scoredBatch(95, 10, 80, 30, 70, 20, 60, 40, 50)

	set, err := Assign(batch, DefaultTierPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, tier := range set.Tiers() {
		if len(tier.Questions) != 3 {
			t.Fatalf("expected tier %d to hold 3 questions, got %d", i+1, len(tier.Questions))
		}
	}
}

func TestAssignIsTotalPartition(t *testing.T) {
	batch := scoredBatch(12, 88, 43, 91, 5, 67, 55)

	set, err := Assign(batch, DefaultTierPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.Len() != batch.Len() {
		t.Fatalf("expected %d questions across tiers, got %d", batch.Len(), set.Len())
	}

	seen := make(map[string]int)
	for _, tier := range set.Tiers() {
		for _, q := range tier.Questions {
			seen[q.Field.Name]++
		}
	}

	for _, candidate := range batch.Items {
		if seen[candidate.Field.Name] != 1 {
			t.Fatalf("candidate %s appears %d times", candidate.Field.Name, seen[candidate.Field.Name])
		}
	}
}

func TestAssignScoresAreMonotoneAcrossTiers(t *testing.T) {
	for _, kind := range []string{PolicyTerciles, PolicyThresholds} {
		t.Run(kind, func(t *testing.T) {
			batch := scoredBatch(33, 97, 41, 71, 15, 56, 84, 22, 69, 48)

			set, err := Assign(batch, TierPolicy{Kind: kind})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			tiers := set.Tiers()
			for i := 0; i < len(tiers)-1; i++ {
				min := minScore(tiers[i].Questions)
				max := maxScore(tiers[i+1].Questions)
				if min < max {
					t.Fatalf("tier %d min score %.1f below tier %d max score %.1f", i+1, min, i+2, max)
				}
			}
		})
	}
}

func TestAssignThresholds(t *testing.T) {
	batch := scoredBatch(90, 70, 55, 40, 10)

	set, err := Assign(batch, TierPolicy{Kind: PolicyThresholds})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(set.Tier1.Questions); got != 2 {
		t.Fatalf("expected 2 questions in tier 1, got %d", got)
	}
	if got := len(set.Tier2.Questions); got != 2 {
		t.Fatalf("expected 2 questions in tier 2, got %d", got)
	}
	if got := len(set.Tier3.Questions); got != 1 {
		t.Fatalf("expected 1 question in tier 3, got %d", got)
	}
}

func TestAssignTiesKeepDeclarationOrder(t *testing.T) {
	batch := scoredBatch(50, 50, 50)

	set, err := Assign(batch, DefaultTierPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := make([]string, 0, 3)
	for _, tier := range set.Tiers() {
		for _, q := range tier.Questions {
			names = append(names, q.Field.Name)
		}
	}

	expected := []string{"section.field0", "section.field1", "section.field2"}
	for i, name := range expected {
		if names[i] != name {
			t.Fatalf("expected %q at position %d, got %q", name, i, names[i])
		}
	}
}

func TestAssignRejectsInvalidPolicy(t *testing.T) {
	if _, err := Assign(scoredBatch(1), TierPolicy{Kind: "quartiles"}); err == nil {
		t.Fatal("expected error for unknown policy kind")
	}

	if _, err := Assign(scoredBatch(1), TierPolicy{Kind: PolicyThresholds, Tier1Min: 30, Tier2Min: 60}); err == nil {
		t.Fatal("expected error for inverted thresholds")
	}
}

func TestAssignEmptyBatch(t *testing.T) {
	set, err := Assign(&Batch{}, DefaultTierPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %d", set.Len())
	}
}

func minScore(items []*Candidate) float64 {
	min := 101.0
	for _, q := range items {
		if q.ImpactScore < min {
			min = q.ImpactScore
		}
	}
	return min
}

func maxScore(items []*Candidate) float64 {
	max := -1.0
	for _, q := range items {
		if q.ImpactScore > max {
			max = q.ImpactScore
		}
	}
	if max < 0 {
		return 0
	}
	return max
}
