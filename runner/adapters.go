// Package runner is the composition root (§5): it wires every leaf
// package (store, politeness, resilience, domainmode, headless, cache,
// fetch, queue, predict, telemetry) into a single Crawler and runs the
// worker loop that leases queue entries, fetches them, and classifies the
// result. The worker consults the predictor only to pick a URL's cache
// policy; it does not store predictions or record their verification.
package runner

import (
	"context"

	"github.com/metabench/hubcrawl/engine"
	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/predict"
	"github.com/metabench/hubcrawl/queue"
	"github.com/metabench/hubcrawl/store"
)

// verifiedSourceAdapter satisfies predict.VerifiedURLSource by converting
// store.VerifiedClassifiedURL (a store-local named type, identical fields
// but distinct from predict.VerifiedURL) on every call. Plain field-by-
// field conversion: Go does not treat []store.T and []predict.U as
// convertible even when T and U share a structural shape.
type verifiedSourceAdapter struct {
	st *store.Store
}

func (a verifiedSourceAdapter) VerifiedClassifiedURLsForHost(ctx context.Context, host string) ([]predict.VerifiedURL, error) {
	rows, err := a.st.VerifiedClassifiedURLsForHost(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]predict.VerifiedURL, len(rows))
	for i, r := range rows {
		out[i] = predict.VerifiedURL{
			URLID:          r.URLID,
			Path:           r.Path,
			Classification: r.Classification,
		}
	}
	return out, nil
}

// admissionPredictorAdapter satisfies queue.AdmissionPredictor by
// unpacking predict.Predictor's richer Prediction into the three bare
// values the queue orchestrator needs. A prediction error is treated as
// "no prediction available" (ok=false) rather than failing admission —
// the predictor is an optimization, not a requirement, per §4.L.
type admissionPredictorAdapter struct {
	predictor *predict.Predictor
}

func (a admissionPredictorAdapter) PredictForAdmission(ctx context.Context, host, path string) (string, float64, bool) {
	pred, err := a.predictor.Predict(ctx, host, path)
	if err != nil || pred.Class == "" || pred.Class == models.ClassUnknown {
		return "", 0, false
	}
	return string(pred.Class), pred.Confidence, true
}

// queueAdmitterAdapter satisfies discovery.Admitter by flattening
// queue.Orchestrator's richer Decision into the bare (admitted, reason,
// error) triple discovery needs — discovery only ever acts on whether a
// URL was admitted, never on its resulting priority or URLID.
type queueAdmitterAdapter struct {
	orch *queue.Orchestrator
}

func (a queueAdmitterAdapter) Admit(ctx context.Context, rawURL string, pageNumber int, population int64) (bool, string, error) {
	d, err := a.orch.Admit(ctx, rawURL, pageNumber, population)
	if err != nil {
		return false, "", err
	}
	return d.Admitted, d.Reason, nil
}

// controlFetcher is a bare, unpooled HTTP client shared by the depth
// prober and discovery strategies (§4.I, §4.J) — control-plane probes
// distinct from the full fetch pipeline, which is reserved for URLs the
// queue has actually admitted. Probes are already self-throttled
// (ArchiveProbeCooldown, ProbeDelay), so they deliberately bypass the
// politeness/breaker/cache machinery built for the admitted-URL path.
type controlFetcher struct {
	engine *engine.HTTPEngine
}

func newControlFetcher() *controlFetcher {
	return &controlFetcher{engine: engine.NewHTTPEngine()}
}

// FetchPage satisfies depth.Fetcher.
func (f *controlFetcher) FetchPage(ctx context.Context, rawURL string) (status int, finalURL string, body []byte, err error) {
	res, ferr := f.engine.Fetch(ctx, &engine.FetchRequest{URL: rawURL})
	if ferr != nil {
		return 0, "", nil, ferr
	}
	return res.StatusCode, res.FinalURL, []byte(res.HTML), nil
}

// FetchBody satisfies discovery.Fetcher.
func (f *controlFetcher) FetchBody(ctx context.Context, rawURL string) (status int, body []byte, err error) {
	res, ferr := f.engine.Fetch(ctx, &engine.FetchRequest{URL: rawURL})
	if ferr != nil {
		return 0, nil, ferr
	}
	return res.StatusCode, []byte(res.HTML), nil
}

// classificationToKind maps the richer §4.K classification to the
// coarser §4.E/§4.H URLKind used for cache tie-breaks and priority
// scoring, defaulting unseen/low-confidence predictions to "other" so a
// URL with no prior signal gets the conservative (always re-fetch)
// cache policy.
func classificationToKind(c models.Classification) models.URLKind {
	switch c {
	case models.ClassHub, models.ClassNav:
		return models.URLKindHub
	case models.ClassArticle:
		return models.URLKindArticle
	default:
		return models.URLKindOther
	}
}
