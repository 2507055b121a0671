package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pivotview/pkg/cache"
	pkgio "github.com/matzehuels/pivotview/pkg/io"
	"github.com/matzehuels/pivotview/pkg/observability"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// Cache key types reported through observability.CacheHooks.
const (
	keyTypePayload  = "payload"
	keyTypeView     = "view"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to share the caching logic.
//
// The Runner is stateless except for the cache and logger. Each compute
// stage uses a fresh engine, so multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete fetch → compute → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Fetch
	fetchStart := time.Now()
	payload, fetchHit, err := r.FetchWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	result.Payload = payload
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.RowNodes = len(payload.RowNodes)
	result.Stats.ColumnNodes = len(payload.ColumnNodes)
	result.Stats.SourceRows = len(payload.Rows)
	result.CacheInfo.FetchHit = fetchHit

	r.Logger.Info("fetched payload",
		"source", opts.Source,
		"row_nodes", result.Stats.RowNodes,
		"column_nodes", result.Stats.ColumnNodes,
		"rows", result.Stats.SourceRows,
		"duration", result.Stats.FetchTime)

	// Stage 2: Compute
	computeStart := time.Now()
	view, computeHit, err := r.ComputeWithCacheInfo(ctx, payload, opts)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	result.View = view
	result.Stats.ComputeTime = time.Since(computeStart)
	result.CacheInfo.ComputeHit = computeHit

	r.Logger.Info("computed view",
		"layout", view.Layout,
		"rows", view.TotalRows,
		"page", fmt.Sprintf("%d/%d", view.Page, view.Pages),
		"duration", result.Stats.ComputeTime)
	for _, d := range view.Diagnostics {
		r.Logger.Warn("hierarchy", "issue", d.String())
	}

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, payload, view, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// FetchWithCacheInfo loads the payload with caching and returns cache hit
// info. Payload files are read directly and never cached.
func (r *Runner) FetchWithCacheInfo(ctx context.Context, opts Options) (*pkgio.Payload, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForFetch(); err != nil {
		return nil, false, err
	}

	src, err := OpenSource(opts)
	if err != nil {
		return nil, false, err
	}
	cacheable := !isLocal(src)
	cacheKey := r.Keyer.PayloadKey(opts.Source, opts.PayloadKeyOpts())

	// Try cache first (unless refresh requested)
	if cacheable && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if p, err := pkgio.ReadPayload(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypePayload)
				return p, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, keyTypePayload)
	}

	start := time.Now()
	observability.Pipeline().OnFetchStart(ctx, src.Name())
	p, err := src.Fetch(ctx, opts.Query())
	rows := 0
	if p != nil {
		rows = len(p.Rows)
	}
	observability.Pipeline().OnFetchComplete(ctx, src.Name(), rows, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		if data, err := json.Marshal(p); err == nil {
			if r.Cache.Set(ctx, cacheKey, data, cache.TTLPayload) == nil {
				observability.Cache().OnCacheSet(ctx, keyTypePayload, len(data))
			}
		}
	}
	return p, false, nil
}

// Fetch is a convenience wrapper that calls FetchWithCacheInfo and discards the cache hit info.
func (r *Runner) Fetch(ctx context.Context, opts Options) (*pkgio.Payload, error) {
	p, _, err := r.FetchWithCacheInfo(ctx, opts)
	return p, err
}

// ComputeWithCacheInfo runs the pivot engine with caching and returns cache
// hit info. Engine stages are reported through observability.PipelineHooks.
func (r *Runner) ComputeWithCacheInfo(ctx context.Context, p *pkgio.Payload, opts Options) (*pivot.View, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForCompute(); err != nil {
		return nil, false, err
	}

	cacheKey := r.viewKey(p, opts)
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		var v pivot.View
		if err := json.Unmarshal(data, &v); err == nil {
			observability.Cache().OnCacheHit(ctx, keyTypeView)
			return &v, true, nil
		}
		// If deserialization fails, fall through to recompute
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeView)

	engine := pivot.NewEngine(pivot.WithTrace(func(stage string, d time.Duration, memoized bool) {
		observability.Pipeline().OnStage(ctx, stage, d, memoized)
		opts.Logger.Debug("stage", "name", stage, "duration", d, "memoized", memoized)
	}))
	view := engine.Compute(p.Input(), opts.Config())

	if data, err := json.Marshal(view); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLView) == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeView, len(data))
		}
	}
	return view, false, nil
}

// Compute is a convenience wrapper that calls ComputeWithCacheInfo and discards the cache hit info.
func (r *Runner) Compute(ctx context.Context, p *pkgio.Payload, opts Options) (*pivot.View, error) {
	v, _, err := r.ComputeWithCacheInfo(ctx, p, opts)
	return v, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, p *pkgio.Payload, v *pivot.View, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	viewKey := r.viewKey(p, opts)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(viewKey, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, cacheKey)
		if err != nil || !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	rendered, err := Render(ctx, RenderInput{View: v, Forest: pivot.BuildForest(p.RowNodes)}, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(viewKey, opts.ArtifactKeyOpts(format))
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact) == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, p *pkgio.Payload, v *pivot.View, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, p, v, opts)
	return artifacts, err
}

// Distinct lists the values of field as the source reports them, for
// filter menus. Only opts.Source and its connection settings are used.
func (r *Runner) Distinct(ctx context.Context, opts Options, field string) ([]string, error) {
	r.applyLogger(&opts)
	src, err := OpenSource(opts)
	if err != nil {
		return nil, err
	}
	return src.DistinctValues(ctx, field)
}

// viewKey identifies the view computed from p under opts.
func (r *Runner) viewKey(p *pkgio.Payload, opts Options) string {
	data, _ := json.Marshal(p)
	return r.Keyer.ViewKey(cache.Hash(data), opts.ConfigHash())
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
