package decompose

import (
	"strings"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Strategy names a decomposition approach.
type Strategy string

// Decomposition strategies, most specific first.
const (
	// StrategyTemplate instantiates a predefined sub-task set from
	// the pattern library.
	StrategyTemplate Strategy = "template"
	// StrategyHierarchical nests intermediate groupings under the
	// source task.
	StrategyHierarchical Strategy = "hierarchical"
	// StrategySequential produces ordered phases chained by
	// dependencies.
	StrategySequential Strategy = "sequential"
	// StrategyParallel produces independent workstreams with no
	// inter-dependencies.
	StrategyParallel Strategy = "parallel"
	// StrategyGeneric falls back to the canonical four phases.
	StrategyGeneric Strategy = "generic"
)

// sequentialMarkers hint at ordered work.
var sequentialMarkers = []string{
	"then", "after", "first", "next", "finally", "step", "phase",
	"sequence", "migrate", "rollout", "followed",
}

// parallelMarkers hint at independent workstreams.
var parallelMarkers = []string{
	"component", "components", "module", "modules", "service",
	"services", "independent", "parallel", "separately", "workstream",
}

// chooseStrategy picks the decomposition strategy for a task. A
// template match wins; otherwise structural hints decide, falling
// through to the generic phases.
func chooseStrategy(task *models.Task, library *Library) Strategy {
	if library != nil && library.Match(task) != nil {
		return StrategyTemplate
	}
	if task.Type == models.TaskTypeEpic || task.Complexity == models.ComplexityVeryComplex {
		return StrategyHierarchical
	}

	text := strings.ToLower(task.Title + " " + task.Description)
	if len(extractSteps(task.Description)) >= 2 || markerCount(text, sequentialMarkers) >= 2 {
		return StrategySequential
	}
	if markerCount(text, parallelMarkers) >= 2 {
		return StrategyParallel
	}
	return StrategyGeneric
}

// markerCount counts how many distinct markers occur in the text.
func markerCount(text string, markers []string) int {
	count := 0
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			count++
		}
	}
	return count
}
