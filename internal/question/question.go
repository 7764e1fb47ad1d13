package question

import (
	"fmt"

	"github.com/prism-labs/prism/internal/schema"
)

// Status tracks a question through the interview lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnswered Status = "answered"
)

// TierStatus tracks a tier document through the interview lifecycle.
type TierStatus string

const (
	TierPending   TierStatus = "pending"
	TierInProcess TierStatus = "in_process"
	TierCompleted TierStatus = "completed"
)

// Candidate is a single interview question tied to the schema field it fills.
// Once tiered it is never mutated except for its interview Status.
type Candidate struct {
	Field       schema.Field `json:"field"`
	Text        string       `json:"question"`
	ImpactScore float64      `json:"impactScore"`
	Status      Status       `json:"status"`
	// Templated is set when the text came from the fallback template
	// instead of the model.
	Templated bool `json:"templated,omitempty"`
}

// Batch is an ordered collection of candidates flowing through the
// generation pipeline.
type Batch struct {
	Items []*Candidate
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// NewBatch seeds a pending candidate per field, keeping field order.
func NewBatch(fields []schema.Field) *Batch {
	items := make([]*Candidate, 0, len(fields))
	for _, field := range fields {
		items = append(items, &Candidate{
			Field:  field,
			Status: StatusPending,
		})
	}
	return &Batch{Items: items}
}

// TierDoc is one priority bucket of a tiered question set.
type TierDoc struct {
	Status    TierStatus   `json:"status"`
	Questions []*Candidate `json:"questions"`
}

// TieredSet is the stored form of a generated question set: three ordered
// tiers that partition all candidates, tier 1 having the highest impact.
type TieredSet struct {
	Tier1 *TierDoc `json:"tier1"`
	Tier2 *TierDoc `json:"tier2"`
	Tier3 *TierDoc `json:"tier3"`
}

// Tiers returns the tier documents in priority order.
func (s *TieredSet) Tiers() []*TierDoc {
	return []*TierDoc{s.Tier1, s.Tier2, s.Tier3}
}

// Tier returns the 1-based tier document.
func (s *TieredSet) Tier(n int) (*TierDoc, error) {
	tiers := s.Tiers()
	if n < 1 || n > len(tiers) {
		return nil, fmt.Errorf("tier %d out of range", n)
	}
	return tiers[n-1], nil
}

// Len returns the total number of questions across all tiers.
func (s *TieredSet) Len() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, tier := range s.Tiers() {
		if tier != nil {
			total += len(tier.Questions)
		}
	}
	return total
}

// Pending returns the pending questions of the given tier document.
func (t *TierDoc) Pending() []*Candidate {
	if t == nil {
		return nil
	}
	pending := make([]*Candidate, 0, len(t.Questions))
	for _, q := range t.Questions {
		if q.Status == StatusPending {
			pending = append(pending, q)
		}
	}
	return pending
}
