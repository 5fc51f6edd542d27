package orchestrator

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/priority"
	"github.com/gantrylabs/gantry/pkg/models"
)

// impactWeights rank recommendation impact for reporting. Bigger
// jumps surface first.
var impactWeights = map[priority.Impact]float64{
	priority.ImpactHigh:   1.0,
	priority.ImpactMedium: 0.6,
	priority.ImpactLow:    0.3,
}

// PriorityDistribution counts open tasks per priority level.
type PriorityDistribution map[models.Priority]int

// RankedRecommendation is a policy recommendation ordered for
// presentation.
type RankedRecommendation struct {
	priority.Recommendation
	// Rank is confidence times impact weight.
	Rank float64 `json:"rank"`
}

// Insights is the read-only reporting aggregation over one scoring
// pass: where the priorities stand, where the recommendations would
// take them, and the recommendations ranked by how much they matter.
type Insights struct {
	GeneratedAt time.Time `json:"generatedAt"`
	// Open is the number of non-terminal tasks considered.
	Open int `json:"open"`
	// Current is the priority distribution as stored.
	Current PriorityDistribution `json:"current"`
	// Projected is the distribution if every recommendation were
	// applied.
	Projected PriorityDistribution `json:"projected"`
	// Recommendations are the surviving changes, highest rank first.
	Recommendations []RankedRecommendation `json:"recommendations"`
}

// Insights scores the open tasks fresh and aggregates the result.
func (s *Services) Insights() Insights {
	tasks := s.openTasks()
	graph, err := s.manager.Graph()
	if err != nil {
		log.Warn().Err(err).Msg("insights without dependency graph")
		graph = nil
	}
	results := s.scorer.ScoreAll(tasks, graph)

	s.scoreMu.Lock()
	s.scores = results
	s.scoredAt = s.now()
	s.scoreMu.Unlock()

	urgentOrCritical := 0
	current := make(PriorityDistribution, 5)
	for _, t := range tasks {
		current[t.Priority]++
		if t.Priority == models.PriorityUrgent || t.Priority == models.PriorityCritical {
			urgentOrCritical++
		}
	}

	recs := s.policy.Recommend(results)
	recs = s.policy.Dampen(recs, urgentOrCritical, len(tasks))

	projected := make(PriorityDistribution, len(current))
	for p, n := range current {
		projected[p] = n
	}
	ranked := make([]RankedRecommendation, 0, len(recs))
	for _, rec := range recs {
		projected[rec.Current]--
		projected[rec.Suggested]++
		ranked = append(ranked, RankedRecommendation{
			Recommendation: rec,
			Rank:           rec.Confidence * impactWeights[rec.Impact],
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Rank != ranked[j].Rank {
			return ranked[i].Rank > ranked[j].Rank
		}
		return ranked[i].TaskID < ranked[j].TaskID
	})

	return Insights{
		GeneratedAt:     s.now(),
		Open:            len(tasks),
		Current:         current,
		Projected:       projected,
		Recommendations: ranked,
	}
}
