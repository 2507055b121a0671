// Package pipeline provides the fetch → compute → render pipeline shared by
// the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fetch: load a payload from a file or the aggregation backend
//  2. Compute: run the pivot engine to produce a paginated, formatted view
//  3. Render: write the view in one or more formats (text, json, xlsx, dot, svg)
//
// Each stage result is cached through [cache.Cache] under keys produced by a
// [cache.Keyer]; [Result.CacheInfo] reports which stages hit.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts, err := pipeline.LoadOptions("report.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(result.Artifacts["text"])
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pivotview/pkg/cache"
	"github.com/matzehuels/pivotview/pkg/errors"
	pkgio "github.com/matzehuels/pivotview/pkg/io"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultDecimals is the number of fraction digits shown for values.
	DefaultDecimals = 2

	// DefaultLocale is the formatting locale.
	DefaultLocale = "en"
)

// Format constants for output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatText: true,
	FormatJSON: true,
	FormatXLSX: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// Formats lists the output formats in display order.
var Formats = []string{FormatText, FormatJSON, FormatXLSX, FormatDOT, FormatSVG}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pivot report. It is decoded
// from TOML report files and from JSON API requests.
type Options struct {
	// Source options
	Source  string            `toml:"source" json:"source,omitempty"` // payload file or http(s) backend URL
	Headers map[string]string `toml:"headers" json:"-"`
	Timeout time.Duration     `toml:"timeout" json:"-"`
	Refresh bool              `toml:"-" json:"refresh,omitempty"`

	// Pivot shape and backend directives
	pivot.Fields
	Sorts   []pivot.SortDirective `toml:"sorts" json:"sorts,omitempty"`
	Filters map[string][]string   `toml:"filters" json:"filters,omitempty"`

	// Presentation options
	Layout      string   `toml:"layout" json:"layout,omitempty"`
	Subtotals   string   `toml:"subtotals" json:"subtotals,omitempty"`
	GrandTotals string   `toml:"grand_totals" json:"grand_totals,omitempty"`
	Percent     string   `toml:"percent" json:"percent,omitempty"`
	Decimals    *int     `toml:"decimals" json:"decimals,omitempty"`
	Locale      string   `toml:"locale" json:"locale,omitempty"`
	PageSize    int      `toml:"page_size" json:"page_size,omitempty"`
	Page        int      `toml:"page" json:"page,omitempty"`
	AllPages    bool     `toml:"all_pages" json:"all_pages,omitempty"`
	Collapsed   []string `toml:"collapsed" json:"collapsed,omitempty"`

	Highlights []pivot.HighlightRule `toml:"highlight" json:"highlights,omitempty"`

	// Render options
	Formats  []string `toml:"formats" json:"formats,omitempty"`
	Title    string   `toml:"title" json:"title,omitempty"`
	Sheet    string   `toml:"sheet" json:"sheet,omitempty"`
	Detailed bool     `toml:"detailed" json:"detailed,omitempty"` // detailed hierarchy diagram labels

	// Runtime options (not serialized)
	Logger *log.Logger `toml:"-" json:"-"`

	config    pivot.Config
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Payload is the backend response the view was computed from.
	Payload *pkgio.Payload

	// View is the computed, paginated view.
	View *pivot.View

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RowNodes    int
	ColumnNodes int
	SourceRows  int
	FetchTime   time.Duration
	ComputeTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	FetchHit   bool // Whether the payload came from cache
	ComputeHit bool // Whether the view came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options, applies defaults and compiles
// the engine configuration. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForFetch(); err != nil {
		return err
	}
	if err := o.ValidateForCompute(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForFetch checks the source and the field lists.
func (o *Options) ValidateForFetch() error {
	if o.Source == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "source is required")
	}
	if IsRemote(o.Source) {
		if err := errors.ValidateURL(o.Source); err != nil {
			return err
		}
	}
	if err := errors.ValidateFieldNames("row", o.RowFields); err != nil {
		return err
	}
	if err := errors.ValidateFieldNames("column", o.ColumnFields); err != nil {
		return err
	}
	for _, v := range o.ValueFields {
		if err := errors.ValidateFieldName(v.Field); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidField, err, "invalid value field")
		}
	}
	if err := o.normalizeSorts(); err != nil {
		return err
	}
	o.setLogger()
	return nil
}

func (o *Options) normalizeSorts() error {
	for i, s := range o.Sorts {
		if err := errors.ValidateFieldName(s.Field); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidField, err, "invalid sort field")
		}
		kind, err := pivot.ParseSortKind(string(s.Kind))
		if err != nil {
			return err
		}
		o.Sorts[i].Kind = kind
	}
	return nil
}

// ValidateForCompute parses the presentation options into an engine config.
func (o *Options) ValidateForCompute() error {
	if err := o.normalizeSorts(); err != nil {
		return err
	}
	var err error
	cfg := pivot.Config{Fields: o.Fields}
	if cfg.Layout, err = pivot.ParseLayout(o.Layout); err != nil {
		return err
	}
	if cfg.Subtotals, err = pivot.ParseSubtotals(o.Subtotals); err != nil {
		return err
	}
	if cfg.GrandTotals, err = pivot.ParseGrandTotals(o.GrandTotals); err != nil {
		return err
	}
	if cfg.Percent, err = pivot.ParsePercentMode(o.Percent); err != nil {
		return err
	}
	if cfg.Highlights, err = pivot.CompileHighlights(o.Highlights); err != nil {
		return err
	}
	o.Layout, o.Subtotals = string(cfg.Layout), string(cfg.Subtotals)
	o.GrandTotals, o.Percent = string(cfg.GrandTotals), string(cfg.Percent)

	if o.Decimals == nil {
		d := DefaultDecimals
		o.Decimals = &d
	}
	if *o.Decimals < 0 || *o.Decimals > 10 {
		return errors.New(errors.ErrCodeInvalidConfig, "decimals must be between 0 and 10, got %d", *o.Decimals)
	}
	if o.Locale == "" {
		o.Locale = DefaultLocale
	}
	if o.PageSize <= 0 {
		o.PageSize = pivot.DefaultPageSize
	}
	if o.Page < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "page must not be negative")
	}

	cfg.Decimals = *o.Decimals
	cfg.Locale = o.Locale
	cfg.PageSize = o.PageSize
	cfg.Page = o.Page
	cfg.AllPages = o.AllPages
	cfg.Collapsed = pivot.NewKeySet(o.Collapsed...)
	cfg.Metadata = o.metadata().Snapshot()
	o.config = cfg
	o.setLogger()
	return nil
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatText}
	}
	o.Formats = slices.Compact(o.Formats)
	o.setLogger()
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

func (o *Options) metadata() *pivot.Metadata {
	md := pivot.NewMetadata()
	for _, s := range o.Sorts {
		md.SetSort(s.Field, s.Kind, o.RowFields)
	}
	for _, field := range slices.Sorted(maps.Keys(o.Filters)) {
		md.SetFilter(field, o.Filters[field])
	}
	return md
}

// Config returns the engine configuration. Valid after ValidateAndSetDefaults.
func (o *Options) Config() pivot.Config {
	return o.config
}

// Query returns the backend query: the pivot shape plus sort and filter
// directives.
func (o *Options) Query() pivot.Query {
	return o.metadata().Query(o.Fields)
}

// IsRemote reports whether source names an HTTP backend rather than a file.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// PayloadKeyOpts returns cache key options for the fetch stage.
func (o *Options) PayloadKeyOpts() cache.PayloadKeyOpts {
	q := o.Query()
	values := make([]string, len(q.ValueFields))
	for i, v := range q.ValueFields {
		values[i] = v.Field + ":" + v.Aggregation + ":" + v.WeightColumn
	}
	sorts := make([]string, len(q.Sorts))
	for i, s := range q.Sorts {
		sorts[i] = fmt.Sprintf("%s:%s:%d", s.Field, s.Kind, s.Level)
	}
	return cache.PayloadKeyOpts{
		RowFields:    q.RowFields,
		ColumnFields: q.ColumnFields,
		Values:       values,
		Sorts:        sorts,
		Filters:      q.Filters,
	}
}

// viewKeyParts are the options a computed view depends on besides the payload.
type viewKeyParts struct {
	Fields      pivot.Fields           `json:"fields"`
	Layout      string                 `json:"layout"`
	Subtotals   string                 `json:"subtotals"`
	GrandTotals string                 `json:"grand_totals"`
	Percent     string                 `json:"percent"`
	Decimals    int                    `json:"decimals"`
	Locale      string                 `json:"locale"`
	PageSize    int                    `json:"page_size"`
	Page        int                    `json:"page"`
	AllPages    bool                   `json:"all_pages"`
	Collapsed   []string               `json:"collapsed"`
	Metadata    pivot.MetadataSnapshot `json:"metadata"`
	Highlights  []pivot.HighlightRule  `json:"highlights"`
}

// ConfigHash identifies the presentation configuration for the view cache.
func (o *Options) ConfigHash() string {
	parts := viewKeyParts{
		Fields:      o.Fields,
		Layout:      o.Layout,
		Subtotals:   o.Subtotals,
		GrandTotals: o.GrandTotals,
		Percent:     o.Percent,
		Locale:      o.Locale,
		PageSize:    o.PageSize,
		Page:        o.Page,
		AllPages:    o.AllPages,
		Collapsed:   o.config.Collapsed.Sorted(),
		Metadata:    o.config.Metadata,
		Highlights:  o.Highlights,
	}
	if o.Decimals != nil {
		parts.Decimals = *o.Decimals
	}
	data, _ := json.Marshal(parts)
	return cache.Hash(data)
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format + o.renderVariant(format),
		Locale:   o.Locale,
		AllPages: o.AllPages,
	}
}

// renderVariant distinguishes artifacts of one format rendered with
// different sink options.
func (o *Options) renderVariant(format string) string {
	switch format {
	case FormatText:
		return "|" + o.Title
	case FormatXLSX:
		return "|" + o.Sheet
	case FormatDOT, FormatSVG:
		if o.Detailed {
			return "|detailed"
		}
	}
	return ""
}
