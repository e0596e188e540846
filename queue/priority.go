package queue

import (
	"math"

	"github.com/metabench/hubcrawl/config"
)

// PriorityInputs carries everything the scoring formula needs for one
// URL admission decision (§4.H): basePriority + recencyBoost +
// populationBoost + predictedClassBoost.
type PriorityInputs struct {
	// PageNumber is the paginated archive page this URL belongs to, or 0
	// if not part of a paginated sequence (no recency boost applies).
	PageNumber int

	// Population is the place population for a place-hub URL, or 0.
	Population int64

	// PredictedClass and PredictedConfidence come from the admission
	// predictor (§4.L), if a prediction was available.
	PredictedClass      string
	PredictedConfidence float64
	HasPrediction       bool
}

// Score computes the admission priority for one URL.
func Score(cfg config.QueueConfig, in PriorityInputs) float64 {
	score := cfg.BasePriority
	score += recencyBoost(cfg, in.PageNumber)
	score += populationBoost(cfg, in.Population)
	score += predictedClassBoost(cfg, in)
	return score
}

// recencyBoost peaks at PageNumber == 1 and decays linearly to 0 by
// RecencyBoostDecayPages.
func recencyBoost(cfg config.QueueConfig, page int) float64 {
	if page < 1 {
		return 0
	}
	decay := cfg.RecencyBoostDecayPages
	if decay <= 0 {
		decay = 20
	}
	fraction := 1.0 - float64(page-1)/float64(decay)
	if fraction < 0 {
		fraction = 0
	}
	return cfg.RecencyBoostMax * fraction
}

func populationBoost(cfg config.QueueConfig, population int64) float64 {
	if population <= 0 {
		return 0
	}
	return math.Log10(float64(population)+1) * cfg.PopulationWeight
}

// predictedClassBoost applies LowValueClassBoost when the predictor is
// confident the URL is low-value; a missing or low-confidence prediction
// contributes nothing.
func predictedClassBoost(cfg config.QueueConfig, in PriorityInputs) float64 {
	if !in.HasPrediction {
		return 0
	}
	if isLowValueClass(in.PredictedClass) && in.PredictedConfidence >= cfg.LowValueConfidenceFloor {
		return cfg.LowValueClassBoost
	}
	return 0
}

func isLowValueClass(class string) bool {
	switch class {
	case "nav", "other":
		return true
	default:
		return false
	}
}
