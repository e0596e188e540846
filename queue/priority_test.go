package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metabench/hubcrawl/config"
)

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		BasePriority:            1.0,
		RecencyBoostMax:         5.0,
		RecencyBoostDecayPages:  20,
		PopulationWeight:        0.5,
		LowValueClassBoost:      -3.0,
		LowValueConfidenceFloor: 0.6,
	}
}

func TestScoreBaseOnly(t *testing.T) {
	cfg := testQueueConfig()
	got := Score(cfg, PriorityInputs{})
	assert.Equal(t, cfg.BasePriority, got)
}

func TestRecencyBoostPeaksAtPageOne(t *testing.T) {
	cfg := testQueueConfig()
	assert.Equal(t, cfg.RecencyBoostMax, recencyBoost(cfg, 1))
}

func TestRecencyBoostDecaysLinearly(t *testing.T) {
	cfg := testQueueConfig()
	got := recencyBoost(cfg, 11)
	assert.InDelta(t, cfg.RecencyBoostMax*0.5, got, 0.001)
}

func TestRecencyBoostFloorsAtZeroPastDecayWindow(t *testing.T) {
	cfg := testQueueConfig()
	assert.Equal(t, 0.0, recencyBoost(cfg, 999))
}

func TestRecencyBoostZeroForNonPaginated(t *testing.T) {
	cfg := testQueueConfig()
	assert.Equal(t, 0.0, recencyBoost(cfg, 0))
}

func TestRecencyBoostDefaultsDecayWindowWhenUnset(t *testing.T) {
	cfg := testQueueConfig()
	cfg.RecencyBoostDecayPages = 0
	got := recencyBoost(cfg, 11)
	assert.InDelta(t, cfg.RecencyBoostMax*0.5, got, 0.001)
}

func TestPopulationBoostIsLogScaled(t *testing.T) {
	cfg := testQueueConfig()
	got := populationBoost(cfg, 999)
	assert.InDelta(t, 1.5, got, 0.01)
}

func TestPopulationBoostZeroForNonPositivePopulation(t *testing.T) {
	cfg := testQueueConfig()
	assert.Equal(t, 0.0, populationBoost(cfg, 0))
	assert.Equal(t, 0.0, populationBoost(cfg, -5))
}

func TestPredictedClassBoostAppliesOnlyWhenConfidentAndLowValue(t *testing.T) {
	cfg := testQueueConfig()

	got := predictedClassBoost(cfg, PriorityInputs{
		HasPrediction:       true,
		PredictedClass:      "nav",
		PredictedConfidence: 0.9,
	})
	assert.Equal(t, cfg.LowValueClassBoost, got)

	got = predictedClassBoost(cfg, PriorityInputs{
		HasPrediction:       true,
		PredictedClass:      "nav",
		PredictedConfidence: 0.2,
	})
	assert.Equal(t, 0.0, got)

	got = predictedClassBoost(cfg, PriorityInputs{
		HasPrediction:       true,
		PredictedClass:      "article",
		PredictedConfidence: 0.99,
	})
	assert.Equal(t, 0.0, got)

	got = predictedClassBoost(cfg, PriorityInputs{})
	assert.Equal(t, 0.0, got)
}

func TestIsLowValueClass(t *testing.T) {
	assert.True(t, isLowValueClass("nav"))
	assert.True(t, isLowValueClass("other"))
	assert.False(t, isLowValueClass("article"))
	assert.False(t, isLowValueClass("hub"))
	assert.False(t, isLowValueClass("unknown"))
}

func TestScoreCombinesAllBoosts(t *testing.T) {
	cfg := testQueueConfig()
	got := Score(cfg, PriorityInputs{
		PageNumber:          1,
		Population:          999,
		HasPrediction:       true,
		PredictedClass:      "nav",
		PredictedConfidence: 0.9,
	})
	want := cfg.BasePriority + cfg.RecencyBoostMax + populationBoost(cfg, 999) + cfg.LowValueClassBoost
	assert.InDelta(t, want, got, 0.01)
}
