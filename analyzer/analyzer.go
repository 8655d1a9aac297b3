package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/metalyz/backend/cache"
	"github.com/metalyz/backend/metrics"
	"github.com/metalyz/backend/stats"
)

// ErrMissingURL is returned when an analysis is requested without a URL.
var ErrMissingURL = errors.New("URL is required")

// Recorder receives every analysis computed on a cache miss, fallbacks included.
type Recorder interface {
	Record(ctx context.Context, analysis *Analysis) error
}

// Analyzer runs the cache-read, fetch, extract, score, cache-write pipeline.
type Analyzer struct {
	fetcher   Fetcher
	extractor Extractor
	cache     *cache.Cache[Analysis]
	group     singleflight.Group
	now       func() time.Time
	stats     *stats.Storage
	metrics   *metrics.Metrics
	recorder  Recorder
	logger    *log.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithExtractor replaces the default PatternExtractor.
func WithExtractor(e Extractor) Option {
	return func(a *Analyzer) {
		a.extractor = e
	}
}

// WithClock sets the clock used for cache freshness.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithStats records cache outcomes in s.
func WithStats(s *stats.Storage) Option {
	return func(a *Analyzer) {
		a.stats = s
	}
}

// WithMetrics records pipeline metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithRecorder sends every analysis computed on a cache miss to r.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		a.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// New creates an Analyzer fetching with f and caching in c.
func New(f Fetcher, c *cache.Cache[Analysis], opts ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:   f,
		extractor: PatternExtractor{},
		cache:     c,
		now:       time.Now,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NormalizeURL prefixes https:// when no http(s) scheme is present. It is
// the only normalization applied to cache keys.
func NormalizeURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}

// Analyze returns the analysis for rawURL, from the cache when a fresh entry
// exists. A failed fetch yields a cached fallback analysis with score 0, so
// the only error is ErrMissingURL. Concurrent misses for the same URL share
// one fetch and receive the same *Analysis, which callers must not modify.
// Cancelling ctx does not abort that fetch.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*Analysis, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrMissingURL
	}
	key := NormalizeURL(rawURL)

	if cached, ok := a.lookup(ctx, key); ok {
		a.stats.IncrementStats(1, 0, 0)
		a.metrics.ObserveAnalysis(metrics.OutcomeCacheHit)
		a.logger.Debug("cache hit", "url", key)
		return cached, nil
	}

	// The shared fetch outlives any one caller; only the fetch timeout ends it.
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := a.group.Do(key, func() (any, error) {
		a.logger.Debug("cache miss", "url", key)

		analysis, err := a.Live(fetchCtx, key)
		if err != nil {
			a.logger.Warn("analysis failed, caching fallback", "url", key, "err", err)
			analysis = Fallback(key, err)
			a.stats.IncrementStats(0, 1, 1)
			a.metrics.ObserveAnalysis(metrics.OutcomeFallback)
		} else {
			a.stats.IncrementStats(0, 1, 0)
			a.metrics.ObserveAnalysis(metrics.OutcomeFresh)
		}
		a.record(fetchCtx, analysis)

		if err := a.cache.Set(fetchCtx, key, *analysis, a.now()); err != nil {
			a.metrics.CacheError()
			a.logger.Warn("failed to cache analysis", "url", key, "err", err)
		}
		return analysis, nil
	})

	return v.(*Analysis), nil
}

// Live fetches and scores rawURL without touching the cache. Fetch failures
// are returned to the caller.
func (a *Analyzer) Live(ctx context.Context, rawURL string) (*Analysis, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrMissingURL
	}
	target := NormalizeURL(rawURL)

	start := time.Now()
	page, err := a.fetcher.Fetch(ctx, target)
	a.metrics.ObserveFetch(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	analysis := Build(a.extractor.Extract(*page))
	a.metrics.ObserveScore(analysis.SeoScore)
	a.logger.Info("analyzed page",
		"url", target,
		"score", analysis.SeoScore,
		"loadTime", page.LoadTime,
		"size", page.Size,
	)
	return analysis, nil
}

// Build scores a feature set and assembles the caller-facing analysis.
func Build(fs FeatureSet) *Analysis {
	breakdown := Score(fs)
	return &Analysis{
		FeatureSet:      fs,
		SeoScore:        breakdown.TotalScore,
		Grade:           Grade(breakdown.TotalScore),
		Issues:          breakdown.Issues,
		Recommendations: breakdown.Recommendations,
		Breakdown:       &breakdown.Scores,
	}
}

// Fallback is the analysis served when a page cannot be fetched: empty
// features, score 0 and the error as the single issue.
func Fallback(url string, err error) *Analysis {
	return &Analysis{
		FeatureSet: FeatureSet{
			URL: url,
			Headings: Headings{
				H1: []string{},
				H2: []string{},
				H3: []string{},
			},
		},
		SeoScore: 0,
		Grade:    Grade(0),
		Issues: []string{
			fmt.Sprintf("Website is unreachable or blocked: %v", err),
		},
		Recommendations: []string{
			"Ensure website is accessible and not blocking requests",
			"Check if URL is correct and website is online",
			"Try again later if website is temporarily unavailable",
		},
		Fallback: true,
	}
}

// IsCached reports whether a fresh analysis for rawURL is cached.
func (a *Analyzer) IsCached(ctx context.Context, rawURL string) bool {
	_, ok := a.lookup(ctx, NormalizeURL(strings.TrimSpace(rawURL)))
	return ok
}

// CacheStats describes the analysis cache.
func (a *Analyzer) CacheStats(ctx context.Context) (cache.Stats, error) {
	return a.cache.Stats(ctx, a.now())
}

// ClearCache drops every cached analysis.
func (a *Analyzer) ClearCache(ctx context.Context) error {
	return a.cache.Clear(ctx)
}

// lookup treats unreadable stores as a miss.
func (a *Analyzer) lookup(ctx context.Context, key string) (*Analysis, bool) {
	cached, ok, err := a.cache.Get(ctx, key, a.now())
	if err != nil {
		a.metrics.CacheError()
		a.logger.Warn("failed to read analysis cache", "url", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &cached, true
}

func (a *Analyzer) record(ctx context.Context, analysis *Analysis) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(ctx, analysis); err != nil {
		a.logger.Warn("failed to record analysis", "url", analysis.URL, "err", err)
	}
}
