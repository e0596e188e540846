package predict

import (
	"context"
	"fmt"
	"strings"

	"github.com/metabench/hubcrawl/models"
)

// PatternSource is predict's view of learned patterns (§4.L step 1),
// backed in production by store.PatternsForHost.
type PatternSource interface {
	PatternsForHost(ctx context.Context, host string) ([]models.SiteURLPattern, error)
}

// VerifiedURLSource is predict's view of a host's verified-classified
// URLs (§4.L step 2), backed in production by
// store.VerifiedClassifiedURLsForHost.
type VerifiedURLSource interface {
	VerifiedClassifiedURLsForHost(ctx context.Context, host string) ([]VerifiedURL, error)
}

// VerifiedURL mirrors store.VerifiedClassifiedURL without importing
// package store (predict sits below store in the dependency graph from
// the caller's perspective — store is wired in by the composition root).
type VerifiedURL struct {
	URLID          int64
	Path           string
	Classification models.Classification
}

// DomainProfile is predict's view of domain-mode/classification strength
// for a host (§4.L step 3) — how reliable this host's classifications
// have historically been, independent of any specific pattern.
type DomainProfile interface {
	ProfileStrength(host string) (strength float64, ok bool)
}

// Predictor implements §4.L's four-tier prediction cascade.
type Predictor struct {
	patterns PatternSource
	verified VerifiedURLSource
	profiles DomainProfile
}

// New builds a Predictor. verified and profiles may be nil, in which
// case those tiers are skipped.
func New(patterns PatternSource, verified VerifiedURLSource, profiles DomainProfile) *Predictor {
	return &Predictor{patterns: patterns, verified: verified, profiles: profiles}
}

// Prediction is the predictor's output for one URL (§4.L), pre-store
// shape (the caller upserts it as a models.URLClassification).
type Prediction struct {
	Class          models.Classification
	Confidence     float64
	Source         models.PredictionSource
	PatternMatched string
	SimilarURLID   *int64
}

// Predict runs the four-tier cascade for (host, path): learned pattern,
// structurally similar verified URL, domain profile, then raw URL
// signals as a last resort (confidence capped at 0.45).
func (p *Predictor) Predict(ctx context.Context, host, path string) (Prediction, error) {
	if pred, ok, err := p.fromPattern(ctx, host, path); err != nil {
		return Prediction{}, err
	} else if ok {
		return pred, nil
	}

	if pred, ok, err := p.fromSimilarURL(ctx, host, path); err != nil {
		return Prediction{}, err
	} else if ok {
		return pred, nil
	}

	if pred, ok := p.fromDomainProfile(host, path); ok {
		return pred, nil
	}

	return p.fromURLSignals(path), nil
}

func (p *Predictor) fromPattern(ctx context.Context, host, path string) (Prediction, bool, error) {
	if p.patterns == nil {
		return Prediction{}, false, nil
	}
	patterns, err := p.patterns.PatternsForHost(ctx, host)
	if err != nil {
		return Prediction{}, false, fmt.Errorf("predict: patterns for host: %w", err)
	}
	for _, pat := range patterns {
		if Matches(pat.Template, path) {
			return Prediction{
				Class:          inferClassFromTemplate(pat.Template),
				Confidence:     pat.Accuracy,
				Source:         models.SourceLearnedPattern,
				PatternMatched: pat.Template,
			}, true, nil
		}
	}
	return Prediction{}, false, nil
}

func (p *Predictor) fromSimilarURL(ctx context.Context, host, path string) (Prediction, bool, error) {
	if p.verified == nil {
		return Prediction{}, false, nil
	}
	candidates, err := p.verified.VerifiedClassifiedURLsForHost(ctx, host)
	if err != nil {
		return Prediction{}, false, fmt.Errorf("predict: verified urls for host: %w", err)
	}
	bestScore := 0.0
	var best *VerifiedURL
	for i := range candidates {
		score := StructuralSimilarity(path, candidates[i].Path)
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}
	if best == nil || bestScore < 0.5 {
		return Prediction{}, false, nil
	}
	urlID := best.URLID
	return Prediction{
		Class:        best.Classification,
		Confidence:   0.7 * bestScore,
		Source:       models.SourceSimilarURL,
		SimilarURLID: &urlID,
	}, true, nil
}

func (p *Predictor) fromDomainProfile(host, path string) (Prediction, bool) {
	if p.profiles == nil {
		return Prediction{}, false
	}
	strength, ok := p.profiles.ProfileStrength(host)
	if !ok || strength <= 0 {
		return Prediction{}, false
	}
	signalPred := p.fromURLSignals(path)
	return Prediction{
		Class:      signalPred.Class,
		Confidence: strength,
		Source:     models.SourceDomainProfile,
	}, true
}

// fromURLSignals is the last-resort tier: derive a class directly from
// path shape, capped at 0.45 confidence (§4.L step 4).
func (p *Predictor) fromURLSignals(path string) Prediction {
	lower := strings.ToLower(path)
	class := models.ClassUnknown
	confidence := 0.3

	switch {
	case strings.Contains(lower, "category") || strings.Contains(lower, "tag") || strings.Contains(lower, "archive"):
		class = models.ClassHub
		confidence = 0.45
	case strings.Contains(lower, "about") || strings.Contains(lower, "contact") || strings.Contains(lower, "privacy"):
		class = models.ClassNav
		confidence = 0.45
	case fourDigitRe.MatchString(firstNonEmptySegment(lower)):
		class = models.ClassArticle
		confidence = 0.4
	}

	return Prediction{Class: class, Confidence: confidence, Source: models.SourceURLSignals}
}

func firstNonEmptySegment(path string) string {
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}

// inferClassFromTemplate reads a learner-assigned class prefix off a
// template (e.g. "article:^/\\d{4}/\\d{1,2}/[a-z0-9-]+$"), falling back
// to unknown if the template predates class-tagging.
func inferClassFromTemplate(template string) models.Classification {
	switch {
	case strings.HasPrefix(template, "article:"):
		return models.ClassArticle
	case strings.HasPrefix(template, "hub:"):
		return models.ClassHub
	case strings.HasPrefix(template, "nav:"):
		return models.ClassNav
	case strings.HasPrefix(template, "other:"):
		return models.ClassOther
	default:
		return models.ClassUnknown
	}
}
