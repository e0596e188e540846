package runner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/metabench/hubcrawl/cache"
	"github.com/metabench/hubcrawl/classify"
	"github.com/metabench/hubcrawl/cleaner"
	"github.com/metabench/hubcrawl/fetch"
	"github.com/metabench/hubcrawl/models"
)

// Run starts workerCount fetch workers plus the stall detector and the
// abandoned-lease reclaimer, blocking until ctx is cancelled or Stop is
// called. This is §5's concurrency model: a bounded pool of workers each
// running lease → fetch → classify → mark-done, with reclaim as the
// safety net for a worker that dies mid-fetch.
func (c *Crawler) Run(ctx context.Context, workerCount int) {
	if workerCount <= 0 {
		workerCount = 4
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-c.stopCh
		cancel()
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Stall.Run(ctx)
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.reclaimLoop(ctx)
	}()

	for i := 0; i < workerCount; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.workerLoop(ctx)
		}()
	}

	<-ctx.Done()
	c.wg.Wait()
}

// Stop signals every worker, the stall detector, and the reclaim loop to
// exit and returns without waiting; Run returns once they have finished.
// Safe to call more than once.
func (c *Crawler) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Crawler) reclaimLoop(ctx context.Context) {
	interval := c.cfg.Queue.LeaseDuration / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Store.ReclaimAbandoned(ctx, c.cfg.Queue.LeaseDuration); err != nil {
				c.log.Warn("runner: reclaim abandoned leases", "error", err)
			}
		}
	}
}

func (c *Crawler) workerLoop(ctx context.Context) {
	poll := c.cfg.Queue.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := c.processNext(ctx)
		if err != nil {
			c.log.Error("runner: process next", "error", err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(poll):
			}
		}
	}
}

// processNext leases, fetches, classifies, and marks done (or skipped)
// the single next-ready queue entry. Returns processed=false when the
// queue had nothing ready, so the caller can back off instead of busy-
// polling the store.
func (c *Crawler) processNext(ctx context.Context) (processed bool, err error) {
	entry, ok, err := c.Store.LeaseNext(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	u, err := c.Store.GetURL(ctx, entry.URLID)
	if err != nil {
		return true, err
	}

	kind := models.URLKindOther
	if pred, perr := c.Predictor.Predict(ctx, u.Host, u.Path); perr == nil {
		kind = classificationToKind(pred.Class)
	}

	outcome, ferr := c.Fetch.Fetch(ctx, u, kind)
	if errors.Is(ferr, fetch.ErrDeferred) {
		// Leave the entry LEASED; the reclaim loop requeues it once the
		// breaker's open timeout has had a chance to pass.
		return true, nil
	}
	if ferr != nil {
		// fetch.Pipeline already recorded the failed-attempt HttpResponse
		// row (invariant 2) before returning this error; here we only need
		// to release the lease.
		if merr := c.Store.MarkSkipped(ctx, u.ID, entry.LeaseToken); merr != nil {
			return true, merr
		}
		return true, nil
	}

	c.classify(ctx, u, outcome)

	if err := c.Store.MarkDone(ctx, u.ID, entry.LeaseToken); err != nil {
		return true, err
	}
	return true, nil
}

// classify runs the §4.K cascade over whatever stages have material to
// work with and persists the aggregated result against the fetched
// content row. Errors here are logged, not propagated — a classification
// miss should never cause an otherwise-successful fetch to be retried.
func (c *Crawler) classify(ctx context.Context, u models.URL, outcome fetch.Outcome) {
	urlStage := classify.ClassifyURL(u.Normalized)

	var contentStage *models.StageResult
	if entry, ok := c.Cache.Get(u.Normalized, cache.Unbounded); ok && len(entry.Body) > 0 {
		cs := classify.ClassifyContent(string(entry.Body), u.Normalized)
		contentStage = &cs
	}

	var renderedStage *models.StageResult
	if c.cfg.Classification.RenderStageEnabled && c.DomainMode.ShouldUseHeadless(u.Host) {
		if rs, err := classify.ClassifyRendered(ctx, c.Headless, u.Normalized); err == nil {
			renderedStage = &rs
		} else {
			c.log.Debug("runner: rendered classification stage failed", "url", u.Normalized, "error", err)
		}
	}

	agg := classify.Aggregate(&urlStage, contentStage, renderedStage)

	if outcome.ContentStorageID != 0 {
		signals := c.archiveSignals(agg.Provenance, u, agg.Classification)
		if _, err := c.Store.InsertContentAnalysis(ctx, models.ContentAnalysis{
			ContentID:      outcome.ContentStorageID,
			Classification: agg.Classification,
			Confidence:     agg.Confidence,
			SignalsJSON:    signals,
			AnalyzedAt:     time.Now(),
		}); err != nil {
			c.log.Warn("runner: insert content analysis", "error", err)
		}
	}

	c.sink(models.EventClassified, models.SeverityInfo, u.Normalized, map[string]interface{}{
		"classification": string(agg.Classification),
		"confidence":     agg.Confidence,
		"rule":           agg.Provenance.Rule,
	})
}

// signalsPayload is the persisted shape of ContentAnalysis.SignalsJSON: the
// cascade's stage provenance plus, for article-classified bodies, the
// Markdown rendering the content-storage path promises (§4.K).
type signalsPayload struct {
	models.Provenance
	ArchiveMarkdown string `json:"archive_markdown,omitempty"`
	ArchiveTitle    string `json:"archive_title,omitempty"`
	EstimatedTokens int    `json:"estimated_tokens,omitempty"`
}

// archiveSignals renders the cached body to Markdown for article-classified
// content, folding it into the stage provenance already computed. A render
// failure or missing cache entry degrades to plain provenance rather than
// failing the whole classification step.
func (c *Crawler) archiveSignals(prov models.Provenance, u models.URL, class models.Classification) string {
	payload := signalsPayload{Provenance: prov}

	if class == models.ClassArticle {
		if entry, ok := c.Cache.Get(u.Normalized, cache.Unbounded); ok && len(entry.Body) > 0 {
			selector := c.cfg.Classification.ArchiveSelectors[u.Host]
			if archive, err := cleaner.ToArchiveMarkdown(string(entry.Body), u.Normalized, selector); err == nil {
				payload.ArchiveMarkdown = archive.Markdown
				payload.ArchiveTitle = archive.Title
				payload.EstimatedTokens = cleaner.EstimateTokens(archive.Markdown)
			} else {
				c.log.Debug("runner: archive markdown render failed", "url", u.Normalized, "error", err)
			}
		}
	}

	signals, _ := json.Marshal(payload)
	return string(signals)
}
