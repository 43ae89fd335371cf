// Package resolver turns a station's URI source into a playable URI.
//
// Static sources are returned as is. Every other source kind goes through a
// dispatch table of fetchers; failures never reach the caller, they surface
// as an absent URI and a log line.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/pkg/logs"
)

var (
	// ErrNoURI is returned by fetchers that ran fine but found nothing playable.
	ErrNoURI = errors.New("no playable uri")
	// ErrNoFetcher means the source kind or custom id has no registered fetcher.
	ErrNoFetcher = errors.New("no fetcher registered")
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultCacheTTL  = 10 * time.Minute
	DefaultUserAgent = "Mozilla/5.0 (compatible; newscast/1.0; +https://github.com/tgifai/newscast)"
)

// Fetcher produces a playable URI for one source.
type Fetcher interface {
	Fetch(ctx context.Context, src catalog.Source) (string, error)
}

type FetcherFunc func(ctx context.Context, src catalog.Source) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, src catalog.Source) (string, error) {
	return f(ctx, src)
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// CacheTTL of zero disables caching.
	CacheTTL time.Duration

	Extractor LiveExtractor
	Endpoints Endpoints

	// Client overrides the HTTP client built from Timeout and UserAgent.
	Client *http.Client
	// Now is the clock used by hourly fetchers and the cache.
	Now func() time.Time
	// Registerer receives resolver metrics; nil skips registration.
	Registerer prometheus.Registerer
}

// Resolver is safe for concurrent use.
type Resolver struct {
	opts    Options
	client  *http.Client
	cache   *uriCache
	metrics *metrics

	mu     sync.RWMutex
	kinds  map[catalog.SourceKind]Fetcher
	custom map[string]Fetcher
}

func New(opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.CacheTTL < 0 {
		opts.CacheTTL = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Extractor == nil {
		opts.Extractor = NewYTDLPExtractor("")
	}
	opts.Endpoints = opts.Endpoints.withDefaults()

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout:   opts.Timeout,
			Transport: newFeedTransport(nil, opts.UserAgent),
		}
	}

	r := &Resolver{
		opts:    opts,
		client:  client,
		cache:   newURICache(opts.CacheTTL, opts.Now),
		metrics: newMetrics(opts.Registerer),
		kinds:   make(map[catalog.SourceKind]Fetcher),
		custom:  make(map[string]Fetcher),
	}

	r.kinds[catalog.SourceRSS] = FetcherFunc(r.fetchRSS)
	r.kinds[catalog.SourceYouTubeLive] = FetcherFunc(r.fetchYouTubeLive)
	r.kinds[catalog.SourceCustom] = FetcherFunc(r.fetchCustom)

	r.custom["tsf"] = FetcherFunc(r.fetchTSF)
	r.custom["abc"] = FetcherFunc(r.fetchABC)
	r.custom["gpb"] = FetcherFunc(r.fetchGPB)
	r.custom["npr"] = FetcherFunc(r.fetchNPR)
	return r
}

// Register replaces the fetcher for a dynamic source kind.
func (r *Resolver) Register(kind catalog.SourceKind, f Fetcher) {
	r.mu.Lock()
	r.kinds[kind] = f
	r.mu.Unlock()
}

// RegisterCustom adds or replaces a named custom fetcher.
func (r *Resolver) RegisterCustom(id string, f Fetcher) {
	r.mu.Lock()
	r.custom[id] = f
	r.mu.Unlock()
}

// CustomIDs lists the registered custom fetcher ids.
func (r *Resolver) CustomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.custom))
	for id := range r.custom {
		ids = append(ids, id)
	}
	return ids
}

// Slow reports whether resolving src usually takes long enough that the
// host should be asked for more time first.
func (r *Resolver) Slow(src catalog.Source) bool {
	return src.Kind == catalog.SourceYouTubeLive
}

// Resolve returns a playable URI for src. ok is false when nothing playable
// was found for any reason; the cause is logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, src catalog.Source) (uri string, ok bool) {
	kind := string(src.Kind)
	if src.Kind == catalog.SourceStatic {
		r.metrics.total.WithLabelValues(kind, outcomeStatic).Inc()
		return src.URL, src.URL != ""
	}

	key := src.Key()
	if cached, hit := r.cache.get(key); hit {
		r.metrics.total.WithLabelValues(kind, outcomeHit).Inc()
		return cached, true
	}

	uri, err := r.fetch(ctx, src)
	switch {
	case err == nil && uri != "":
		r.metrics.total.WithLabelValues(kind, outcomeOK).Inc()
		r.cache.put(key, uri)
		logs.CtxDebug(ctx, "[resolver] %s -> %s", key, uri)
		return uri, true
	case err == nil, errors.Is(err, ErrNoURI):
		r.metrics.total.WithLabelValues(kind, outcomeMiss).Inc()
		logs.CtxInfo(ctx, "[resolver] %s: nothing playable", key)
	case errors.Is(err, errPanic):
		r.metrics.total.WithLabelValues(kind, outcomePanic).Inc()
		logs.CtxError(ctx, "[resolver] %s: %v", key, err)
	default:
		r.metrics.total.WithLabelValues(kind, outcomeError).Inc()
		logs.CtxWarn(ctx, "[resolver] %s: %v", key, err)
	}
	return "", false
}

// Invalidate drops every cached URI and returns how many were dropped.
func (r *Resolver) Invalidate() int {
	return r.cache.purge(false)
}

// Expire drops cached URIs whose TTL has passed.
func (r *Resolver) Expire() int {
	return r.cache.purge(true)
}

func (r *Resolver) CacheLen() int {
	return r.cache.len()
}

var errPanic = errors.New("fetcher panicked")

// fetch runs exactly one fetcher for src and converts a panic into an error.
func (r *Resolver) fetch(ctx context.Context, src catalog.Source) (uri string, err error) {
	r.mu.RLock()
	f, ok := r.kinds[src.Kind]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w for kind %q", ErrNoFetcher, src.Kind)
	}

	start := time.Now()
	defer func() {
		r.metrics.duration.WithLabelValues(string(src.Kind)).Observe(time.Since(start).Seconds())
		if p := recover(); p != nil {
			logs.CtxDebug(ctx, "[resolver] panic stack: %s", debug.Stack())
			uri, err = "", fmt.Errorf("%w: %v", errPanic, p)
		}
	}()
	return f.Fetch(ctx, src)
}

func (r *Resolver) fetchCustom(ctx context.Context, src catalog.Source) (string, error) {
	r.mu.RLock()
	f, ok := r.custom[src.ID]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w for custom id %q", ErrNoFetcher, src.ID)
	}
	return f.Fetch(ctx, src)
}
