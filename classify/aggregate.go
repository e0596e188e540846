package classify

import "github.com/metabench/hubcrawl/models"

// overrideDelta is the minimum confidence gap required for a later stage
// to override an earlier one's disagreeing classification (§4.K).
const overrideDelta = 0.15

// Aggregate combines whichever stage results are available, per §4.K's
// rules. url must be non-nil (Stage 1 always runs); content and rendered
// are nil when that stage didn't run.
func Aggregate(url, content, rendered *models.StageResult) models.AggregatedResult {
	prov := models.Provenance{URL: url}

	if content == nil {
		prov.Rule = "url-only"
		return models.AggregatedResult{Classification: url.Classification, Confidence: url.Confidence, Provenance: prov}
	}
	prov.Content = content

	current := *url
	rule := "url-and-content-agree"
	if content.Classification != url.Classification {
		if content.Confidence-url.Confidence > overrideDelta {
			current = *content
			rule = "content-overrides-url"
		} else {
			rule = "disagree-url-retained"
		}
	} else if content.Confidence > url.Confidence {
		current = *content
		rule = "content-higher-confidence"
	}

	if rendered == nil {
		prov.Rule = rule
		return models.AggregatedResult{Classification: current.Classification, Confidence: current.Confidence, Provenance: prov}
	}
	prov.Rendered = rendered

	if rendered.Classification != current.Classification {
		if rendered.Confidence-current.Confidence > overrideDelta {
			current = *rendered
			rule = "rendered-overrides"
		} else {
			rule = rule + "-rendered-disagree-retained"
		}
	} else if rendered.Confidence > current.Confidence {
		current = *rendered
		rule = "rendered-higher-confidence"
	}

	prov.Rule = rule
	return models.AggregatedResult{Classification: current.Classification, Confidence: current.Confidence, Provenance: prov}
}
