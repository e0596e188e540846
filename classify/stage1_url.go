// Package classify implements the three-stage classification cascade and
// aggregator (§4.K): a deterministic URL-only stage, a content-signal
// stage, an optional rendered-DOM stage, and an aggregator that combines
// whichever stages ran.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/metabench/hubcrawl/models"
)

var datePathRe = regexp.MustCompile(`/(19|20)\d{2}/(0[1-9]|1[0-2])?/?`)

var hubKeywords = []string{"archive", "category", "tag", "tags", "topic", "topics", "section", "index"}
var navKeywords = []string{"about", "contact", "privacy", "terms", "login", "signup", "subscribe", "advertise"}

// ClassifyURL runs Stage 1 of the cascade: a declarative decision tree
// over URL path tokens, requiring no I/O.
func ClassifyURL(rawURL string) models.StageResult {
	signals := map[string]interface{}{}

	u, err := url.Parse(rawURL)
	if err != nil {
		return models.StageResult{Stage: "url", Classification: models.ClassUnknown, Confidence: 0, Reason: "unparsable url"}
	}

	path := strings.Trim(u.Path, "/")
	segments := []string{}
	if path != "" {
		segments = strings.Split(path, "/")
	}
	depth := len(segments)
	signals["path_depth"] = depth

	hasDatePath := datePathRe.MatchString(u.Path)
	signals["has_date_path"] = hasDatePath

	lastSlug := ""
	if depth > 0 {
		lastSlug = segments[depth-1]
	}
	signals["slug_length"] = len(lastSlug)

	lowerPath := strings.ToLower(u.Path)
	for _, kw := range navKeywords {
		if strings.Contains(lowerPath, kw) {
			signals["nav_keyword"] = kw
			return models.StageResult{Stage: "url", Classification: models.ClassNav, Confidence: 0.6, Reason: "nav keyword match: " + kw, Signals: signals}
		}
	}
	for _, kw := range hubKeywords {
		if strings.Contains(lowerPath, kw) {
			signals["hub_keyword"] = kw
			return models.StageResult{Stage: "url", Classification: models.ClassHub, Confidence: 0.55, Reason: "hub keyword match: " + kw, Signals: signals}
		}
	}

	query := u.Query()
	if query.Has("page") || query.Has("paged") || query.Has("offset") {
		signals["paginated"] = true
		return models.StageResult{Stage: "url", Classification: models.ClassHub, Confidence: 0.6, Reason: "pagination query shape", Signals: signals}
	}

	if hasDatePath && len(lastSlug) > 20 {
		return models.StageResult{Stage: "url", Classification: models.ClassArticle, Confidence: 0.65, Reason: "date path + long slug", Signals: signals}
	}
	if depth == 0 {
		return models.StageResult{Stage: "url", Classification: models.ClassHub, Confidence: 0.5, Reason: "root path", Signals: signals}
	}
	if depth <= 2 && len(lastSlug) < 20 {
		return models.StageResult{Stage: "url", Classification: models.ClassHub, Confidence: 0.4, Reason: "shallow path, short slug", Signals: signals}
	}
	if len(lastSlug) > 20 {
		return models.StageResult{Stage: "url", Classification: models.ClassArticle, Confidence: 0.45, Reason: "long slug", Signals: signals}
	}

	return models.StageResult{Stage: "url", Classification: models.ClassUnknown, Confidence: 0.2, Reason: "no decisive url signal", Signals: signals}
}
