package priority

import (
	"fmt"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Impact classifies how disruptive applying a recommendation would be.
type Impact string

// Impact levels.
const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Recommendation proposes a priority change for one task.
type Recommendation struct {
	// TaskID identifies the task the change applies to.
	TaskID string
	// Current is the task's priority when the score was taken.
	Current models.Priority
	// Suggested is the proposed priority.
	Suggested models.Priority
	// Score is the overall factor score behind the suggestion.
	Score float64
	// Confidence is the scorer's confidence in the suggestion.
	Confidence float64
	// Impact classifies the size of the change.
	Impact Impact
	// Dampened is set when the anti-thrash pass lowered the suggestion.
	Dampened bool
	// Reason summarizes the strongest factors behind the suggestion.
	Reason string
	// Factors carries the full factor breakdown.
	Factors []Factor
}

// Policy holds the gates for emitting, damping, and auto-applying
// recommendations.
type Policy struct {
	// MinConfidence is the confidence floor for emitting a
	// recommendation at all.
	MinConfidence float64 `mapstructure:"min_confidence"`
	// DampingRatio is the fraction of urgent-or-critical tasks above
	// which low-confidence urgent suggestions are lowered.
	DampingRatio float64 `mapstructure:"damping_ratio"`
	// DampingConfidence is the confidence below which an urgent
	// suggestion is subject to damping.
	DampingConfidence float64 `mapstructure:"damping_confidence"`
	// AutoApplyConfidence is the confidence floor for applying a
	// recommendation without review.
	AutoApplyConfidence float64 `mapstructure:"auto_apply_confidence"`
}

// DefaultPolicy returns the default recommendation gates.
func DefaultPolicy() Policy {
	return Policy{
		MinConfidence:       0.6,
		DampingRatio:        0.3,
		DampingConfidence:   0.8,
		AutoApplyConfidence: 0.8,
	}
}

// Recommend filters scored results down to actionable recommendations:
// the confidence must clear the floor and the suggested priority must
// differ from the current one by at least one step.
func (p Policy) Recommend(results []Result) []Recommendation {
	recs := make([]Recommendation, 0, len(results))
	for _, r := range results {
		if r.Confidence < p.MinConfidence {
			continue
		}
		if r.Suggested.StepsFrom(r.Current) == 0 {
			continue
		}
		recs = append(recs, Recommendation{
			TaskID:     r.TaskID,
			Current:    r.Current,
			Suggested:  r.Suggested,
			Score:      r.Overall,
			Confidence: r.Confidence,
			Impact:     classifyImpact(r.Current, r.Suggested),
			Reason:     summarize(r),
			Factors:    r.Factors,
		})
	}
	return recs
}

// Dampen lowers low-confidence urgent suggestions to high when the
// task set is already saturated with urgent work, so one scoring pass
// cannot stampede everything to the top. Recommendations that no
// longer propose a change after damping are dropped.
func (p Policy) Dampen(recs []Recommendation, urgentOrCritical, total int) []Recommendation {
	if total == 0 {
		return recs
	}
	ratio := float64(urgentOrCritical) / float64(total)
	if ratio <= p.DampingRatio {
		return recs
	}

	kept := recs[:0]
	for _, rec := range recs {
		if rec.Suggested == models.PriorityUrgent && rec.Confidence < p.DampingConfidence {
			rec.Suggested = models.PriorityHigh
			rec.Impact = classifyImpact(rec.Current, rec.Suggested)
			rec.Dampened = true
			if rec.Suggested.StepsFrom(rec.Current) == 0 {
				continue
			}
		}
		kept = append(kept, rec)
	}
	return kept
}

// AutoApplicable reports whether a recommendation is safe to apply
// without human review.
func (p Policy) AutoApplicable(rec Recommendation) bool {
	return rec.Confidence >= p.AutoApplyConfidence && rec.Impact != ImpactHigh
}

// classifyImpact sizes a priority change. Multi-step jumps and any
// move into critical are high impact; a single step into urgent is
// medium; everything else is low.
func classifyImpact(current, suggested models.Priority) Impact {
	steps := suggested.StepsFrom(current)
	if steps < 0 {
		steps = -steps
	}
	switch {
	case steps >= 2 || suggested == models.PriorityCritical:
		return ImpactHigh
	case suggested == models.PriorityUrgent:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// summarize names the two highest weighted contributions as the
// recommendation's reason.
func summarize(r Result) string {
	if len(r.Factors) == 0 {
		return "no factors applied"
	}

	top, second := -1, -1
	for i, f := range r.Factors {
		c := f.Score * f.Weight
		if top < 0 || c > r.Factors[top].Score*r.Factors[top].Weight {
			second = top
			top = i
		} else if second < 0 || c > r.Factors[second].Score*r.Factors[second].Weight {
			second = i
		}
	}

	if second < 0 {
		return r.Factors[top].Detail
	}
	return fmt.Sprintf("%s; %s", r.Factors[top].Detail, r.Factors[second].Detail)
}
