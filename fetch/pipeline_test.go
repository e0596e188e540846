package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/metabench/hubcrawl/cache"
	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/engine"
	"github.com/metabench/hubcrawl/models"
)

func TestCacheMaxAgeHubIsBounded(t *testing.T) {
	p := &Pipeline{cacheCfg: config.CacheConfig{MaxAgeHub: 5 * time.Minute}}
	assert.Equal(t, 5*time.Minute, p.cacheMaxAge(models.URLKindHub))
}

func TestCacheMaxAgeHubFallsBackToDefault(t *testing.T) {
	p := &Pipeline{}
	assert.Equal(t, 10*time.Minute, p.cacheMaxAge(models.URLKindHub))
}

func TestCacheMaxAgeArticleIsUnbounded(t *testing.T) {
	p := &Pipeline{}
	assert.Equal(t, cache.Unbounded, p.cacheMaxAge(models.URLKindArticle))
}

func TestHTTPTimeoutFallsBackToDefault(t *testing.T) {
	p := &Pipeline{}
	assert.Equal(t, 30*time.Second, p.httpTimeout())
}

func TestHTTPTimeoutUsesConfigured(t *testing.T) {
	p := &Pipeline{cfg: config.FetchConfig{HTTPTimeout: 45 * time.Second}}
	assert.Equal(t, 45*time.Second, p.httpTimeout())
}

func TestHeadlessTimeoutFallsBackToDefault(t *testing.T) {
	p := &Pipeline{}
	assert.Equal(t, 20*time.Second, p.headlessTimeout())
}

func TestStatusOrZeroHandlesNil(t *testing.T) {
	assert.Equal(t, 0, statusOrZero(nil))
	assert.Equal(t, 404, statusOrZero(&engine.FetchResult{StatusCode: 404}))
}

func fakeRodFetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	return nil, nil
}

func TestBuildDispatcherUsesConfiguredDelays(t *testing.T) {
	httpEngine := engine.NewHTTPEngine()
	d := buildDispatcher(config.EngineConfig{EscalationDelays: []time.Duration{0, 3 * time.Second}}, httpEngine, fakeRodFetch)
	assert.NotNil(t, d)
}

func TestBuildDispatcherFallsBackToDefaultDelays(t *testing.T) {
	httpEngine := engine.NewHTTPEngine()
	d := buildDispatcher(config.EngineConfig{}, httpEngine, fakeRodFetch)
	assert.NotNil(t, d)
}
