package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metabench/hubcrawl/models"
)

func repeatWords(n int) string {
	return strings.Repeat("lorem ipsum dolor sit amet ", n)
}

func TestClassifyContentDetectsArticleFromJSONLD(t *testing.T) {
	html := `<html><body>
		<script type="application/ld+json">{"@type": "NewsArticle", "headline": "x"}</script>
		<article><p>` + repeatWords(60) + `</p></article>
	</body></html>`
	r := ClassifyContent(html, "https://example.com/news/1")
	assert.Equal(t, models.ClassArticle, r.Classification)
	assert.GreaterOrEqual(t, r.Confidence, 0.8)
}

func TestClassifyContentDetectsArticleFromContainerAndLowLinkDensity(t *testing.T) {
	html := `<html><body><article><p>` + repeatWords(60) + `</p></article></body></html>`
	r := ClassifyContent(html, "https://example.com/news/1")
	assert.Equal(t, models.ClassArticle, r.Classification)
}

func TestClassifyContentDetectsHubFromManyLinksFewParagraphs(t *testing.T) {
	var links strings.Builder
	for i := 0; i < 40; i++ {
		links.WriteString(`<a href="/a">link</a> `)
	}
	html := `<html><body>` + links.String() + `</body></html>`
	r := ClassifyContent(html, "https://example.com/category")
	assert.Equal(t, models.ClassHub, r.Classification)
}

func TestClassifyContentDetectsOtherFromLowWordCount(t *testing.T) {
	html := `<html><body><p>hi</p></body></html>`
	r := ClassifyContent(html, "https://example.com/x")
	assert.Equal(t, models.ClassOther, r.Classification)
}

func TestClassifyContentReturnsUnknownOnUnparsable(t *testing.T) {
	r := ClassifyContent("\x00\x01not html at all", "https://example.com/x")
	assert.Contains(t, []models.Classification{models.ClassUnknown, models.ClassOther}, r.Classification)
}

func TestClassifyContentStageNameIsContent(t *testing.T) {
	r := ClassifyContent("<html></html>", "https://example.com/x")
	assert.Equal(t, "content", r.Stage)
}
