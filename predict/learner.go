package predict

import (
	"context"
	"fmt"

	"github.com/metabench/hubcrawl/models"
)

// PatternStore is the learner's write-side view (§4.L pattern learner),
// backed in production by store.UpsertSiteURLPattern.
type PatternStore interface {
	UpsertSiteURLPattern(ctx context.Context, p models.SiteURLPattern) (models.SiteURLPattern, error)
}

// Learner implements §4.L's batch pattern learner: LearnHost groups one
// host's verified-classified URLs by structural signature and upserts a
// SiteUrlPattern per group meeting the sample threshold. Nothing in the
// module schedules it; runner.New builds a Learner but does not call
// LearnHost.
type Learner struct {
	store          PatternStore
	minSamples     int
	classThreshold int
}

// NewLearner builds a Learner. minSamples is the minimum verified-
// classified sample count per signature group before it is upserted
// (§4.L default: 3).
func NewLearner(store PatternStore, minSamples int) *Learner {
	if minSamples <= 0 {
		minSamples = 3
	}
	return &Learner{store: store, minSamples: minSamples}
}

type group struct {
	signature       string
	dominantClass   models.Classification
	classCounts     map[models.Classification]int
	sampleCount     int
	verifiedCount   int
	verifiedCorrect int
}

// LearnHost groups host's verified-classified URLs by structural
// signature and upserts every group meeting the sample threshold.
func (l *Learner) LearnHost(ctx context.Context, host string, urls []VerifiedURL) ([]models.SiteURLPattern, error) {
	groups := make(map[string]*group)
	for _, u := range urls {
		sig := Signature(u.Path)
		g, ok := groups[sig]
		if !ok {
			g = &group{signature: sig, classCounts: make(map[models.Classification]int)}
			groups[sig] = g
		}
		g.sampleCount++
		g.classCounts[u.Classification]++
	}

	var out []models.SiteURLPattern
	for _, g := range groups {
		if g.sampleCount < l.minSamples {
			continue
		}
		dominant, dominantCount := dominantClass(g.classCounts)
		g.dominantClass = dominant
		g.verifiedCount = g.sampleCount
		g.verifiedCorrect = dominantCount
		accuracy := float64(g.verifiedCorrect) / float64(g.verifiedCount)

		template := string(dominant) + ":" + g.signature
		p, err := l.store.UpsertSiteURLPattern(ctx, models.SiteURLPattern{
			Host:          host,
			Template:      template,
			SampleCount:   g.sampleCount,
			VerifiedCount: g.verifiedCount,
			Accuracy:      accuracy,
		})
		if err != nil {
			return out, fmt.Errorf("predict: upsert pattern for %s: %w", host, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func dominantClass(counts map[models.Classification]int) (models.Classification, int) {
	var best models.Classification
	bestCount := -1
	for class, count := range counts {
		if count > bestCount {
			best = class
			bestCount = count
		}
	}
	return best, bestCount
}
