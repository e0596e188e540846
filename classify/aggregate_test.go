package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metabench/hubcrawl/models"
)

func sr(stage string, class models.Classification, confidence float64) models.StageResult {
	return models.StageResult{Stage: stage, Classification: class, Confidence: confidence}
}

func TestAggregateURLOnly(t *testing.T) {
	u := sr("url", models.ClassHub, 0.5)
	got := Aggregate(&u, nil, nil)
	assert.Equal(t, models.ClassHub, got.Classification)
	assert.Equal(t, "url-only", got.Provenance.Rule)
}

func TestAggregateAgreeingStagesTakesHigherConfidence(t *testing.T) {
	u := sr("url", models.ClassArticle, 0.5)
	c := sr("content", models.ClassArticle, 0.8)
	got := Aggregate(&u, &c, nil)
	assert.Equal(t, models.ClassArticle, got.Classification)
	assert.Equal(t, 0.8, got.Confidence)
}

func TestAggregateDisagreeingStagesContentOverridesAboveDelta(t *testing.T) {
	u := sr("url", models.ClassHub, 0.4)
	c := sr("content", models.ClassArticle, 0.8)
	got := Aggregate(&u, &c, nil)
	assert.Equal(t, models.ClassArticle, got.Classification)
	assert.Equal(t, "content-overrides-url", got.Provenance.Rule)
}

func TestAggregateDisagreeingStagesRetainsURLBelowDelta(t *testing.T) {
	u := sr("url", models.ClassHub, 0.5)
	c := sr("content", models.ClassArticle, 0.55)
	got := Aggregate(&u, &c, nil)
	assert.Equal(t, models.ClassHub, got.Classification)
	assert.Equal(t, "disagree-url-retained", got.Provenance.Rule)
}

func TestAggregateRenderedOverridesAboveDelta(t *testing.T) {
	u := sr("url", models.ClassHub, 0.4)
	c := sr("content", models.ClassHub, 0.5)
	r := sr("rendered", models.ClassArticle, 0.8)
	got := Aggregate(&u, &c, &r)
	assert.Equal(t, models.ClassArticle, got.Classification)
	assert.Equal(t, "rendered-overrides", got.Provenance.Rule)
}

func TestAggregateRenderedRetainsBelowDelta(t *testing.T) {
	u := sr("url", models.ClassHub, 0.4)
	c := sr("content", models.ClassHub, 0.5)
	r := sr("rendered", models.ClassArticle, 0.55)
	got := Aggregate(&u, &c, &r)
	assert.Equal(t, models.ClassHub, got.Classification)
}

func TestAggregateProvenanceRecordsAllStages(t *testing.T) {
	u := sr("url", models.ClassHub, 0.4)
	c := sr("content", models.ClassHub, 0.5)
	r := sr("rendered", models.ClassHub, 0.6)
	got := Aggregate(&u, &c, &r)
	assert.NotNil(t, got.Provenance.URL)
	assert.NotNil(t, got.Provenance.Content)
	assert.NotNil(t, got.Provenance.Rendered)
}
