package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/predict"
)

func TestClassificationToKindMapsHubAndNavToHub(t *testing.T) {
	assert.Equal(t, models.URLKindHub, classificationToKind(models.ClassHub))
	assert.Equal(t, models.URLKindHub, classificationToKind(models.ClassNav))
}

func TestClassificationToKindMapsArticle(t *testing.T) {
	assert.Equal(t, models.URLKindArticle, classificationToKind(models.ClassArticle))
}

func TestClassificationToKindDefaultsUnknownToOther(t *testing.T) {
	assert.Equal(t, models.URLKindOther, classificationToKind(models.ClassOther))
	assert.Equal(t, models.URLKindOther, classificationToKind(models.ClassUnknown))
	assert.Equal(t, models.URLKindOther, classificationToKind(""))
}

type fixedPatternSource struct {
	patterns []models.SiteURLPattern
}

func (f fixedPatternSource) PatternsForHost(ctx context.Context, host string) ([]models.SiteURLPattern, error) {
	return f.patterns, nil
}

func TestAdmissionPredictorAdapterUnpacksPrediction(t *testing.T) {
	patterns := fixedPatternSource{patterns: []models.SiteURLPattern{
		{Host: "example.com", Template: "hub:^/section/[a-z0-9-]+$", Accuracy: 0.9, SampleCount: 10},
	}}
	predictor := predict.New(patterns, nil, nil)
	a := admissionPredictorAdapter{predictor: predictor}

	class, confidence, ok := a.PredictForAdmission(context.Background(), "example.com", "/section/this-is-a-long-enough-slug")
	require.True(t, ok)
	assert.Equal(t, string(models.ClassHub), class)
	assert.InDelta(t, 0.9, confidence, 0.001)
}

func TestAdmissionPredictorAdapterReturnsNotOkWhenNoSignal(t *testing.T) {
	predictor := predict.New(fixedPatternSource{}, nil, nil)
	a := admissionPredictorAdapter{predictor: predictor}

	_, _, ok := a.PredictForAdmission(context.Background(), "example.com", "/x")
	assert.False(t, ok)
}
