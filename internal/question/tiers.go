package question

import (
	"fmt"
	"sort"
	"strings"
)

// Tier policies. Terciles splits the ranked list into equal thirds;
// thresholds buckets by fixed score cutoffs.
const (
	PolicyTerciles   = "terciles"
	PolicyThresholds = "thresholds"

	defaultTier1Min = 70.0
	defaultTier2Min = 40.0
)

// TierPolicy configures how scored candidates are partitioned into tiers.
type TierPolicy struct {
	Kind     string  `mapstructure:"kind"`
	Tier1Min float64 `mapstructure:"tier1-min"`
	Tier2Min float64 `mapstructure:"tier2-min"`
}

// DefaultTierPolicy returns the equal-terciles policy.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{Kind: PolicyTerciles}
}

func (p TierPolicy) normalize() (TierPolicy, error) {
	kind := strings.ToLower(strings.TrimSpace(p.Kind))
	if kind == "" {
		kind = PolicyTerciles
	}
	if kind != PolicyTerciles && kind != PolicyThresholds {
		return p, fmt.Errorf("unknown tier policy %q", p.Kind)
	}
	p.Kind = kind

	if p.Tier1Min == 0 {
		p.Tier1Min = defaultTier1Min
	}
	if p.Tier2Min == 0 {
		p.Tier2Min = defaultTier2Min
	}
	if p.Tier2Min > p.Tier1Min {
		return p, fmt.Errorf("tier2 minimum %.1f exceeds tier1 minimum %.1f", p.Tier2Min, p.Tier1Min)
	}

	return p, nil
}

// Assign partitions the scored batch into three tiers. The partition is
// total: every candidate lands in exactly one tier, every tier 1 score is
// >= every tier 2 score, and tier 2 >= tier 3 (non-strict).
func Assign(batch *Batch, policy TierPolicy) (*TieredSet, error) {
	policy, err := policy.normalize()
	if err != nil {
		return nil, err
	}

	// Stable sort keeps declaration order among equal scores.
	ordered := make([]*Candidate, len(batch.Items))
	copy(ordered, batch.Items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ImpactScore > ordered[j].ImpactScore
	})

	set := &TieredSet{
		Tier1: &TierDoc{Status: TierPending},
		Tier2: &TierDoc{Status: TierPending},
		Tier3: &TierDoc{Status: TierPending},
	}

	switch policy.Kind {
	case PolicyThresholds:
		for _, candidate := range ordered {
			switch {
			case candidate.ImpactScore >= policy.Tier1Min:
				set.Tier1.Questions = append(set.Tier1.Questions, candidate)
			case candidate.ImpactScore >= policy.Tier2Min:
				set.Tier2.Questions = append(set.Tier2.Questions, candidate)
			default:
				set.Tier3.Questions = append(set.Tier3.Questions, candidate)
			}
		}
	default:
		sizes := tercileSizes(len(ordered))
		set.Tier1.Questions = ordered[:sizes[0]]
		set.Tier2.Questions = ordered[sizes[0] : sizes[0]+sizes[1]]
		set.Tier3.Questions = ordered[sizes[0]+sizes[1]:]
	}

	return set, nil
}

// tercileSizes splits n into three parts, the remainder going to the
// higher-priority tiers.
func tercileSizes(n int) [3]int {
	base := n / 3
	sizes := [3]int{base, base, base}
	switch n % 3 {
	case 1:
		sizes[0]++
	case 2:
		sizes[0]++
		sizes[1]++
	}
	return sizes
}
