package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metabench/hubcrawl/models"
)

func TestClassifyURLDetectsArticleFromDatePathAndLongSlug(t *testing.T) {
	r := ClassifyURL("https://example.com/2026/07/local-council-approves-new-downtown-parking-plan")
	assert.Equal(t, models.ClassArticle, r.Classification)
	assert.Greater(t, r.Confidence, 0.5)
}

func TestClassifyURLDetectsHubFromKeyword(t *testing.T) {
	r := ClassifyURL("https://example.com/category/local-news")
	assert.Equal(t, models.ClassHub, r.Classification)
}

func TestClassifyURLDetectsNavFromKeyword(t *testing.T) {
	r := ClassifyURL("https://example.com/about-us")
	assert.Equal(t, models.ClassNav, r.Classification)
}

func TestClassifyURLDetectsHubFromPaginationQuery(t *testing.T) {
	r := ClassifyURL("https://example.com/news?page=3")
	assert.Equal(t, models.ClassHub, r.Classification)
}

func TestClassifyURLDetectsHubFromRootPath(t *testing.T) {
	r := ClassifyURL("https://example.com/")
	assert.Equal(t, models.ClassHub, r.Classification)
}

func TestClassifyURLReturnsUnknownOnUnparsable(t *testing.T) {
	r := ClassifyURL("://bad")
	assert.Equal(t, models.ClassUnknown, r.Classification)
	assert.Equal(t, 0.0, r.Confidence)
}

func TestClassifyURLStageNameIsURL(t *testing.T) {
	r := ClassifyURL("https://example.com/news")
	assert.Equal(t, "url", r.Stage)
}
