package classify

import (
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/metabench/hubcrawl/models"
)

// ClassifyContent runs Stage 2 of the cascade against parsed HTML: word
// count, paragraph density, link density, schema.org/OpenGraph
// indicators, semantic-container presence, and nav-link counts. It does no
// URL pattern matching (enforced boundary, §4.K): sourceURL is only handed
// to readability as the base URL for the readability_text_length signal.
func ClassifyContent(rawHTML, sourceURL string) models.StageResult {
	signals := map[string]interface{}{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return models.StageResult{Stage: "content", Classification: models.ClassUnknown, Confidence: 0, Reason: "unparsable html"}
	}

	text := doc.Find("body").Text()
	words := len(strings.Fields(text))
	paragraphs := doc.Find("p").Length()
	links := doc.Find("a[href]").Length()
	signals["word_count"] = words
	signals["paragraph_count"] = paragraphs

	var linkDensity float64
	if words > 0 {
		linkDensity = float64(links) / float64(words)
	}
	signals["link_density"] = linkDensity

	hasArticleContainer := doc.Find("article").Length() > 0 || doc.Find("main").Length() > 0
	signals["has_article_container"] = hasArticleContainer

	hasJSONLD := false
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		t := s.Text()
		if strings.Contains(t, `"@type"`) && (strings.Contains(t, `"NewsArticle"`) || strings.Contains(t, `"Article"`)) {
			hasJSONLD = true
		}
	})
	signals["has_article_jsonld"] = hasJSONLD

	ogType := ""
	doc.Find(`meta[property="og:type"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			ogType = v
		}
	})
	signals["og_type"] = ogType

	navLinks := doc.Find("nav a, header a, footer a").Length()
	signals["nav_link_count"] = navLinks

	if parsedURL, err := nurl.Parse(sourceURL); err == nil {
		if article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL); err == nil {
			signals["readability_text_length"] = len(strings.TrimSpace(article.TextContent))
		}
	}

	if hasJSONLD || ogType == "article" {
		return models.StageResult{Stage: "content", Classification: models.ClassArticle, Confidence: 0.85, Reason: "schema.org/OpenGraph article signal", Signals: signals}
	}
	if hasArticleContainer && words > 250 && linkDensity < 0.05 {
		return models.StageResult{Stage: "content", Classification: models.ClassArticle, Confidence: 0.75, Reason: "article container, high word count, low link density", Signals: signals}
	}
	if navLinks > 20 && linkDensity > 0.3 {
		return models.StageResult{Stage: "content", Classification: models.ClassNav, Confidence: 0.65, Reason: "high nav link count and link density", Signals: signals}
	}
	if links > 30 && linkDensity > 0.2 && paragraphs < 10 {
		return models.StageResult{Stage: "content", Classification: models.ClassHub, Confidence: 0.7, Reason: "many links, few paragraphs", Signals: signals}
	}
	if words < 50 {
		return models.StageResult{Stage: "content", Classification: models.ClassOther, Confidence: 0.5, Reason: "very low word count", Signals: signals}
	}

	return models.StageResult{Stage: "content", Classification: models.ClassUnknown, Confidence: 0.3, Reason: "no decisive content signal", Signals: signals}
}
