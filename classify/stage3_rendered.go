package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/metabench/hubcrawl/headless"
	"github.com/metabench/hubcrawl/models"
)

// renderedSignalsScript measures layout-dependent signals the raw HTML
// can't express: main-content area as a fraction of viewport, ad-slot
// density, and comment-section presence.
const renderedSignalsScript = `() => {
	function area(el) {
		if (!el) return 0;
		const r = el.getBoundingClientRect();
		return Math.max(0, r.width) * Math.max(0, r.height);
	}
	const viewport = window.innerWidth * window.innerHeight;
	const main = document.querySelector('article, main, #content, .content');
	const mainArea = area(main);
	const adSelectors = '[id*="ad-"], [class*="ad-"], [id*="sponsor"], [class*="sponsor"], iframe[src*="ads"]';
	const adCount = document.querySelectorAll(adSelectors).length;
	const commentSelectors = '#comments, .comments, [class*="comment-section"]';
	const hasComments = document.querySelectorAll(commentSelectors).length > 0;
	return {
		mainAreaFraction: viewport > 0 ? mainArea / viewport : 0,
		adCount: adCount,
		hasComments: hasComments,
	};
}`

// ClassifyRendered runs Stage 3 of the cascade: renders rawURL via the
// headless pool and recomputes Stage-2-like signals from the live DOM,
// plus layout-dependent signals raw HTML cannot express.
func ClassifyRendered(ctx context.Context, pool *headless.Pool, rawURL string) (models.StageResult, error) {
	page, session, err := pool.Acquire(ctx)
	if err != nil {
		return models.StageResult{}, fmt.Errorf("classify: acquire headless session: %w", err)
	}
	defer pool.Release(session)

	page = page.Context(ctx)
	if err := page.Navigate(rawURL); err != nil {
		return models.StageResult{}, fmt.Errorf("classify: navigate: %w", err)
	}
	if err := page.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		// Non-fatal: proceed with whatever DOM settled (matches the
		// teacher's "proceed on WaitDOMStable non-convergence" behavior).
	}

	html, err := page.HTML()
	if err != nil {
		return models.StageResult{}, fmt.Errorf("classify: get html: %w", err)
	}
	base := ClassifyContent(html, rawURL)

	res, err := page.Eval(renderedSignalsScript)
	signals := map[string]interface{}{}
	for k, v := range base.Signals {
		signals[k] = v
	}
	reason := base.Reason
	classification := base.Classification
	confidence := base.Confidence

	if err == nil && res != nil {
		mainAreaFraction := res.Value.Get("mainAreaFraction").Num()
		adCount := res.Value.Get("adCount").Int()
		hasComments := res.Value.Get("hasComments").Bool()
		signals["main_area_fraction"] = mainAreaFraction
		signals["ad_count"] = adCount
		signals["has_comments"] = hasComments

		if mainAreaFraction > 0.4 && adCount < 5 {
			classification = models.ClassArticle
			confidence = 0.8
			reason = "large main content area, low ad density"
		} else if adCount >= 10 {
			classification = models.ClassOther
			confidence = 0.55
			reason = "very high ad density"
		}
		if hasComments && classification == models.ClassArticle {
			confidence = minFloat(confidence+0.05, 0.95)
			reason = strings.TrimSpace(reason + "; comment section present")
		}
	}

	return models.StageResult{Stage: "rendered", Classification: classification, Confidence: confidence, Reason: reason, Signals: signals}, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
