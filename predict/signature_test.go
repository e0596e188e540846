package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureReplacesFourDigitYear(t *testing.T) {
	assert.Equal(t, `^/\d{4}/\d{1,2}/[a-z0-9-]+$`, Signature("/2026/07/local-council-approves-new-downtown-plan"))
}

func TestSignatureKeepsLiteralShortSegments(t *testing.T) {
	assert.Equal(t, `^/category/news$`, Signature("/category/news"))
}

func TestSignatureRootPath(t *testing.T) {
	assert.Equal(t, "^/$", Signature("/"))
	assert.Equal(t, "^/$", Signature(""))
}

func TestMatchesCompilesAndMatchesTemplate(t *testing.T) {
	assert.True(t, Matches(`^/\d{4}/\d{1,2}/[a-z0-9-]+$`, "/2026/07/some-long-article-slug-here"))
	assert.False(t, Matches(`^/\d{4}/\d{1,2}/[a-z0-9-]+$`, "/about"))
}

func TestMatchesStripsClassPrefix(t *testing.T) {
	assert.True(t, Matches(`article:^/\d{4}/\d{1,2}/[a-z0-9-]+$`, "/2026/07/some-long-article-slug-here"))
}

func TestStructuralSimilarityIdenticalSignature(t *testing.T) {
	got := StructuralSimilarity("/2026/07/article-one-with-a-long-slug", "/2025/01/article-two-with-a-long-slug")
	assert.Equal(t, 1.0, got)
}

func TestStructuralSimilarityPartialMatch(t *testing.T) {
	got := StructuralSimilarity("/2026/07/article-one", "/category/news")
	assert.Less(t, got, 1.0)
}

func TestSegmentClassRecognizesHexRun(t *testing.T) {
	assert.Equal(t, `[a-f0-9]+`, segmentClass("1a2b3c4d"))
}

func TestSegmentClassRecognizesShortNumeric(t *testing.T) {
	assert.Equal(t, `\d{1,2}`, segmentClass("7"))
	assert.Equal(t, `\d{1,2}`, segmentClass("42"))
}
