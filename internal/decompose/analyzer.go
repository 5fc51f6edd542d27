// Package decompose breaks oversized tasks into structured sub-task
// sets using heuristic analysis and a set of generation strategies.
package decompose

import (
	"fmt"
	"math"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Analysis factor weights. They sum to 1.
const (
	weightDescription = 0.3
	weightTypeBase    = 0.2
	weightEffort      = 0.25
	weightDomain      = 0.15
	weightContext     = 0.1
)

// AnalysisFactor is one scored dimension of the complexity analysis.
type AnalysisFactor struct {
	// Name identifies the factor.
	Name string
	// Score is the normalized factor value in [0,1].
	Score float64
	// Weight is the declared weight applied to the score.
	Weight float64
	// Detail explains the score in human terms.
	Detail string
}

// Analysis is the outcome of complexity analysis for one task.
type Analysis struct {
	// Score is the weighted overall complexity in [0,1].
	Score float64
	// Factors lists the individual contributions.
	Factors []AnalysisFactor
	// SuggestedComplexity is the bucket the score maps to.
	SuggestedComplexity models.Complexity
	// RecommendedSubtasks is how many sub-tasks the analysis suggests.
	RecommendedSubtasks int
	// Strategy is the generation approach chosen for the task.
	Strategy Strategy
	// Keywords are the significant terms extracted from the task text.
	Keywords []string
}

// typeBaseScores rank how much inherent decomposition potential each
// task type carries.
var typeBaseScores = map[models.TaskType]float64{
	models.TaskTypeEpic:        1.0,
	models.TaskTypeFeature:     0.8,
	models.TaskTypeResearch:    0.7,
	models.TaskTypeStory:       0.6,
	models.TaskTypeTask:        0.5,
	models.TaskTypeImprovement: 0.5,
	models.TaskTypeBug:         0.4,
	models.TaskTypeSubtask:     0.2,
}

// domainScores rank domains by typical coordination weight. Unknown
// or unset domains score neutral.
var domainScores = map[string]float64{
	"infrastructure": 0.9,
	"security":       0.9,
	"migration":      0.8,
	"data":           0.8,
	"backend":        0.7,
	"api":            0.6,
	"frontend":       0.5,
	"tooling":        0.4,
	"docs":           0.2,
}

// Analyze scores how decomposable a task is across the five analysis
// factors and picks the generation strategy.
func Analyze(task *models.Task, library *Library) Analysis {
	factors := []AnalysisFactor{
		descriptionFactor(task),
		typeBaseFactor(task),
		effortFactor(task),
		domainFactor(task),
		contextFactor(task),
	}

	var score float64
	for _, f := range factors {
		score += f.Score * f.Weight
	}

	return Analysis{
		Score:               score,
		Factors:             factors,
		SuggestedComplexity: complexityForScore(score),
		RecommendedSubtasks: recommendedSubtasks(score),
		Strategy:            chooseStrategy(task, library),
		Keywords:            extractKeywords(task.Title + " " + task.Description),
	}
}

// descriptionFactor scores how much structure the description offers:
// longer, technical, enumerated text decomposes better.
func descriptionFactor(task *models.Task) AnalysisFactor {
	words := countWords(task.Description)
	var score float64
	switch {
	case words >= 100:
		score = 0.8
	case words >= 50:
		score = 0.6
	case words >= 25:
		score = 0.45
	case words >= 10:
		score = 0.3
	default:
		score = 0.1
	}
	if technicalTermCount(task.Description) >= 3 {
		score += 0.1
	}
	if len(extractSteps(task.Description)) >= 2 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return AnalysisFactor{
		Name:   "description",
		Score:  score,
		Weight: weightDescription,
		Detail: fmt.Sprintf("%d words", words),
	}
}

func typeBaseFactor(task *models.Task) AnalysisFactor {
	score, known := typeBaseScores[task.Type]
	if !known {
		score = 0.5
	}
	return AnalysisFactor{
		Name:   "type",
		Score:  score,
		Weight: weightTypeBase,
		Detail: fmt.Sprintf("type %s", task.Type),
	}
}

// effortFactor scores estimated effort magnitude. Unknown effort is
// neutral rather than disqualifying; the skip gates handle the rest.
func effortFactor(task *models.Task) AnalysisFactor {
	if task.EstimatedHours == nil {
		return AnalysisFactor{Name: "effort", Score: 0.5, Weight: weightEffort, Detail: "no estimate"}
	}
	hours := *task.EstimatedHours
	var score float64
	switch {
	case hours >= 80:
		score = 1.0
	case hours >= 40:
		score = 0.8
	case hours >= 16:
		score = 0.6
	case hours >= 8:
		score = 0.4
	default:
		score = 0.1
	}
	return AnalysisFactor{
		Name:   "effort",
		Score:  score,
		Weight: weightEffort,
		Detail: fmt.Sprintf("%.1f hours estimated", hours),
	}
}

func domainFactor(task *models.Task) AnalysisFactor {
	domain := task.Metadata.Domain
	if domain == "" {
		return AnalysisFactor{Name: "domain", Score: 0.5, Weight: weightDomain, Detail: "no domain"}
	}
	score, known := domainScores[domain]
	if !known {
		score = 0.5
	}
	return AnalysisFactor{
		Name:   "domain",
		Score:  score,
		Weight: weightDomain,
		Detail: fmt.Sprintf("domain %s", domain),
	}
}

// contextFactor scores surrounding context: dependencies and tags
// both hint at scope worth splitting.
func contextFactor(task *models.Task) AnalysisFactor {
	richness := len(task.Dependencies) + len(task.Tags)
	var score float64
	switch {
	case richness > 5:
		score = 0.9
	case richness >= 3:
		score = 0.7
	case richness >= 1:
		score = 0.5
	default:
		score = 0.2
	}
	return AnalysisFactor{
		Name:   "context",
		Score:  score,
		Weight: weightContext,
		Detail: fmt.Sprintf("%d dependencies, %d tags", len(task.Dependencies), len(task.Tags)),
	}
}

// complexityForScore buckets an analysis score.
func complexityForScore(score float64) models.Complexity {
	switch {
	case score >= 0.85:
		return models.ComplexityVeryComplex
	case score >= 0.65:
		return models.ComplexityComplex
	case score >= 0.45:
		return models.ComplexityMedium
	case score >= 0.25:
		return models.ComplexitySimple
	default:
		return models.ComplexityTrivial
	}
}

// recommendedSubtasks maps an analysis score onto a sub-task count
// between 2 and 6.
func recommendedSubtasks(score float64) int {
	n := int(math.Round(2 + score*4))
	if n < 2 {
		n = 2
	}
	if n > 6 {
		n = 6
	}
	return n
}
