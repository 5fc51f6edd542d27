package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Estimation constants.
const (
	// complexityShare and typeShare split the base estimate between
	// the two seeded factors.
	complexityShare = 0.6
	typeShare       = 0.4
	// dependencyLoad is the per-dependency coordination overhead.
	dependencyLoad = 0.1
	// minimumEstimate is the floor for any prediction, in hours.
	minimumEstimate = 0.5
	// DefaultSmoothingRate is the exponential smoothing rate applied
	// by single-observation feedback.
	DefaultSmoothingRate = 0.1
	// weightTuneStep is how much weight shifts between factor pairs
	// after a training pass.
	weightTuneStep = 0.05
)

// complexityPriors seed the complexity averages, in hours.
var complexityPriors = map[models.Complexity]float64{
	models.ComplexityTrivial:     2,
	models.ComplexitySimple:      4,
	models.ComplexityMedium:      8,
	models.ComplexityComplex:     16,
	models.ComplexityVeryComplex: 32,
}

// typePriors seed the type averages, in hours.
var typePriors = map[models.TaskType]float64{
	models.TaskTypeEpic:        80,
	models.TaskTypeFeature:     24,
	models.TaskTypeStory:       12,
	models.TaskTypeTask:        6,
	models.TaskTypeSubtask:     2,
	models.TaskTypeBug:         4,
	models.TaskTypeImprovement: 8,
	models.TaskTypeResearch:    16,
}

// FactorWeights are the model's per-factor contributions. They are
// kept normalized to sum 1.
type FactorWeights struct {
	Complexity float64 `mapstructure:"complexity"`
	Type       float64 `mapstructure:"type"`
	Domain     float64 `mapstructure:"domain"`
	Assignee   float64 `mapstructure:"assignee"`
}

// DefaultFactorWeights returns the starting weight distribution.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{Complexity: 0.35, Type: 0.25, Domain: 0.2, Assignee: 0.2}
}

// tune shifts weight between the seeded pair (complexity/type) and
// the historical pair (domain/assignee) based on how the model has
// been performing, then renormalizes.
func (w *FactorWeights) tune(mape float64) {
	switch {
	case mape < 20:
		w.Domain += weightTuneStep / 2
		w.Assignee += weightTuneStep / 2
	case mape > 40:
		w.Complexity += weightTuneStep / 2
		w.Type += weightTuneStep / 2
	}
	w.normalize()
}

func (w *FactorWeights) normalize() {
	total := w.Complexity + w.Type + w.Domain + w.Assignee
	if total <= 0 {
		*w = DefaultFactorWeights()
		return
	}
	w.Complexity /= total
	w.Type /= total
	w.Domain /= total
	w.Assignee /= total
}

// Metrics are the model's rolling accuracy measurements. MAE and Bias
// are in hours; MAPE is a percentage.
type Metrics struct {
	MAE     float64
	MAPE    float64
	Bias    float64
	Samples int
}

// Estimate is a predicted effort for one task.
type Estimate struct {
	// Hours is the predicted effort, never below the floor.
	Hours float64
	// Confidence reflects how much signal backed the prediction,
	// in [0.1,0.95].
	Confidence float64
	// Factors names the signals the prediction drew on.
	Factors []string
	// ModelVersion identifies the model state used.
	ModelVersion int
}

// Model is the estimation state: seeded averages per factor value,
// factor weights, and rolling accuracy metrics.
type Model struct {
	// Version increments on every completed training pass.
	Version int
	// ComplexityAvg maps complexity to average observed hours.
	ComplexityAvg map[models.Complexity]float64
	// TypeAvg maps task type to average observed hours.
	TypeAvg map[models.TaskType]float64
	// DomainAvg maps metadata domain to average observed hours.
	DomainAvg map[string]float64
	// AssigneeAvg maps assignee to average observed hours.
	AssigneeAvg map[string]float64
	// ComplexityObserved counts real observations per complexity.
	ComplexityObserved map[models.Complexity]int
	// TypeObserved counts real observations per type.
	TypeObserved map[models.TaskType]int
	// Weights are the factor weights, normalized to sum 1.
	Weights FactorWeights
	// Metrics are the rolling accuracy measurements.
	Metrics Metrics
	// TrainedOn is the dataset size at the last training pass.
	TrainedOn int
	// TrainedAt is when the last training pass finished.
	TrainedAt time.Time
}

// NewModel returns a model seeded entirely from priors.
func NewModel() *Model {
	m := &Model{
		ComplexityAvg:      make(map[models.Complexity]float64, len(complexityPriors)),
		TypeAvg:            make(map[models.TaskType]float64, len(typePriors)),
		DomainAvg:          make(map[string]float64),
		AssigneeAvg:        make(map[string]float64),
		ComplexityObserved: make(map[models.Complexity]int),
		TypeObserved:       make(map[models.TaskType]int),
		Weights:            DefaultFactorWeights(),
	}
	for c, hours := range complexityPriors {
		m.ComplexityAvg[c] = hours
	}
	for tt, hours := range typePriors {
		m.TypeAvg[tt] = hours
	}
	return m
}

// accumulator tracks a running weighted mean.
type accumulator struct {
	sum    float64
	weight float64
}

func (a *accumulator) add(hours, weight float64) {
	a.sum += hours * weight
	a.weight += weight
}

func (a *accumulator) mean() float64 {
	if a.weight == 0 {
		return 0
	}
	return a.sum / a.weight
}

// Train rebuilds the model from the dataset. Each point is first
// evaluated against the pre-pass model so the metrics measure how the
// previous state would have predicted this batch, then the averages
// are rebuilt with priors acting as one pseudo-observation each, and
// the factor weights self-tune from the measured error. The context
// is checked between points; on cancellation the model is left
// unchanged.
func (m *Model) Train(ctx context.Context, points []DataPoint, now time.Time) error {
	complexityAcc := make(map[models.Complexity]*accumulator)
	typeAcc := make(map[models.TaskType]*accumulator)
	domainAcc := make(map[string]*accumulator)
	assigneeAcc := make(map[string]*accumulator)
	complexityObs := make(map[models.Complexity]int)
	typeObs := make(map[models.TaskType]int)

	var absErr, pctErr, bias float64
	var scored int

	for i, p := range points {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("training interrupted at point %d: %w", i, err)
		}
		if p.ActualHours <= 0 {
			continue
		}

		predicted := m.predictPoint(p)
		absErr += abs(p.ActualHours - predicted)
		pctErr += abs(p.ActualHours-predicted) / p.ActualHours * 100
		bias += p.ActualHours - predicted
		scored++

		if acc := complexityAcc[p.Complexity]; acc != nil {
			acc.add(p.ActualHours, p.Weight)
		} else {
			complexityAcc[p.Complexity] = &accumulator{sum: p.ActualHours * p.Weight, weight: p.Weight}
		}
		if acc := typeAcc[p.Type]; acc != nil {
			acc.add(p.ActualHours, p.Weight)
		} else {
			typeAcc[p.Type] = &accumulator{sum: p.ActualHours * p.Weight, weight: p.Weight}
		}
		complexityObs[p.Complexity]++
		typeObs[p.Type]++

		if p.Domain != "" {
			if acc := domainAcc[p.Domain]; acc != nil {
				acc.add(p.ActualHours, p.Weight)
			} else {
				domainAcc[p.Domain] = &accumulator{sum: p.ActualHours * p.Weight, weight: p.Weight}
			}
		}
		if p.Assignee != "" {
			if acc := assigneeAcc[p.Assignee]; acc != nil {
				acc.add(p.ActualHours, p.Weight)
			} else {
				assigneeAcc[p.Assignee] = &accumulator{sum: p.ActualHours * p.Weight, weight: p.Weight}
			}
		}
	}

	// Rebuild the averages, blending each prior in as a single
	// pseudo-observation so sparse buckets stay anchored.
	complexityAvg := make(map[models.Complexity]float64, len(complexityPriors))
	for c, prior := range complexityPriors {
		if acc := complexityAcc[c]; acc != nil {
			complexityAvg[c] = (prior + acc.sum) / (1 + acc.weight)
		} else {
			complexityAvg[c] = prior
		}
	}
	typeAvg := make(map[models.TaskType]float64, len(typePriors))
	for tt, prior := range typePriors {
		if acc := typeAcc[tt]; acc != nil {
			typeAvg[tt] = (prior + acc.sum) / (1 + acc.weight)
		} else {
			typeAvg[tt] = prior
		}
	}
	domainAvg := make(map[string]float64, len(domainAcc))
	for d, acc := range domainAcc {
		domainAvg[d] = acc.mean()
	}
	assigneeAvg := make(map[string]float64, len(assigneeAcc))
	for a, acc := range assigneeAcc {
		assigneeAvg[a] = acc.mean()
	}

	m.ComplexityAvg = complexityAvg
	m.TypeAvg = typeAvg
	m.DomainAvg = domainAvg
	m.AssigneeAvg = assigneeAvg
	m.ComplexityObserved = complexityObs
	m.TypeObserved = typeObs

	if scored > 0 {
		m.Metrics = Metrics{
			MAE:     absErr / float64(scored),
			MAPE:    pctErr / float64(scored),
			Bias:    bias / float64(scored),
			Samples: scored,
		}
		m.Weights.tune(m.Metrics.MAPE)
	}

	m.Version++
	m.TrainedOn = len(points)
	m.TrainedAt = now
	return nil
}

// predictPoint predicts a data point with the current model state.
func (m *Model) predictPoint(p DataPoint) float64 {
	task := models.Task{
		Type:         p.Type,
		Complexity:   p.Complexity,
		Assignee:     p.Assignee,
		Dependencies: make([]string, p.DependencyCount),
		Metadata:     models.Metadata{Domain: p.Domain},
	}
	return m.Predict(&task).Hours
}

// Predict estimates effort for a task from the trained averages.
// Unknown complexity or type falls back to the medium/task priors so
// a prediction is always available.
func (m *Model) Predict(task *models.Task) Estimate {
	var factors []string

	complexityAvg, ok := m.ComplexityAvg[task.Complexity]
	if !ok {
		complexityAvg = complexityPriors[models.ComplexityMedium]
	} else if m.ComplexityObserved[task.Complexity] > 0 {
		factors = append(factors, "complexity")
	}

	typeAvg, ok := m.TypeAvg[task.Type]
	if !ok {
		typeAvg = typePriors[models.TaskTypeTask]
	} else if m.TypeObserved[task.Type] > 0 {
		factors = append(factors, "type")
	}

	hours := complexityShare*complexityAvg + typeShare*typeAvg

	if task.Metadata.Domain != "" {
		if avg, known := m.DomainAvg[task.Metadata.Domain]; known {
			hours += m.Weights.Domain * (avg - hours)
			factors = append(factors, "domain")
		}
	}
	if task.Assignee != "" {
		if avg, known := m.AssigneeAvg[task.Assignee]; known {
			hours += m.Weights.Assignee * (avg - hours)
			factors = append(factors, "assignee")
		}
	}

	hours *= 1 + dependencyLoad*float64(len(task.Dependencies))
	if hours < minimumEstimate {
		hours = minimumEstimate
	}

	return Estimate{
		Hours:        hours,
		Confidence:   m.estimateConfidence(task, factors),
		Factors:      factors,
		ModelVersion: m.Version,
	}
}

// estimateConfidence scores how much signal backed a prediction.
func (m *Model) estimateConfidence(task *models.Task, factors []string) float64 {
	conf := 0.3
	switch {
	case m.TrainedOn >= 100:
		conf += 0.2
	case m.TrainedOn >= 50:
		conf += 0.1
	}
	conf += 0.1 * float64(len(factors))

	// Contradictory combinations the dataset rarely supports.
	if (task.Type == models.TaskTypeSubtask && task.Complexity == models.ComplexityVeryComplex) ||
		(task.Type == models.TaskTypeEpic && task.Complexity == models.ComplexityTrivial) {
		conf -= 0.2
	}
	return clamp(conf, 0.1, 0.95)
}

// Feedback folds a single predicted-versus-actual observation into
// the rolling metrics with exponential smoothing. No retraining
// happens here.
func (m *Model) Feedback(predicted, actual, rate float64) {
	if actual <= 0 {
		return
	}
	if rate <= 0 || rate > 1 {
		rate = DefaultSmoothingRate
	}

	absErr := abs(actual - predicted)
	pctErr := absErr / actual * 100
	signed := actual - predicted

	if m.Metrics.Samples == 0 {
		m.Metrics = Metrics{MAE: absErr, MAPE: pctErr, Bias: signed, Samples: 1}
		return
	}
	m.Metrics.MAE = (1-rate)*m.Metrics.MAE + rate*absErr
	m.Metrics.MAPE = (1-rate)*m.Metrics.MAPE + rate*pctErr
	m.Metrics.Bias = (1-rate)*m.Metrics.Bias + rate*signed
	m.Metrics.Samples++
}

// Accuracy derives a [0.1,0.95] accuracy figure from the rolling MAPE.
func (m *Model) Accuracy() float64 {
	return clamp(1-m.Metrics.MAPE/100, 0.1, 0.95)
}

// Confidence is the model-level confidence derived from accuracy.
func (m *Model) Confidence() float64 {
	return 0.9 * m.Accuracy()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
