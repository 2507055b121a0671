package pivot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/pivotview/pkg/errors"
)

// GrandTotals controls which grand totals are shown.
type GrandTotals string

const (
	GrandTotalsOff     GrandTotals = "off"
	GrandTotalsRows    GrandTotals = "rows"
	GrandTotalsColumns GrandTotals = "columns"
	GrandTotalsBoth    GrandTotals = "both"
)

// ParseGrandTotals parses a grand-totals visibility. Empty means both.
func ParseGrandTotals(s string) (GrandTotals, error) {
	switch g := GrandTotals(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GrandTotalsBoth, nil
	case GrandTotalsOff, GrandTotalsRows, GrandTotalsColumns, GrandTotalsBoth:
		return g, nil
	}
	return "", errors.New(errors.ErrCodeInvalidMode, "unknown grand totals visibility %q (want off, rows, columns or both)", s)
}

// ShowRows reports whether grand-total rows are visible.
func (g GrandTotals) ShowRows() bool { return g == "" || g == GrandTotalsRows || g == GrandTotalsBoth }

// ShowColumns reports whether grand-total columns are visible.
func (g GrandTotals) ShowColumns() bool {
	return g == "" || g == GrandTotalsColumns || g == GrandTotalsBoth
}

// Input is the backend payload the engine renders.
type Input struct {
	RowNodes    []RawNode
	ColumnNodes []RawNode
	Rows        []Record
	// DataKeys are the flat-row column names in first-seen order. When
	// empty they are collected from Rows and sorted.
	DataKeys []string
}

func (in Input) dataKeys() []string {
	if len(in.DataKeys) > 0 {
		return in.DataKeys
	}
	seen := map[string]bool{}
	for _, r := range in.Rows {
		for k := range r {
			seen[k] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Config is the presentation configuration.
type Config struct {
	Fields
	Layout      Layout // empty: compact, switched to tabular once for several value fields
	Subtotals   Subtotals
	GrandTotals GrandTotals
	Percent     PercentMode
	Decimals    int
	Locale      string
	PageSize    int
	Page        int  // 1-based; 0 keeps the pager's current page
	AllPages    bool // return every row instead of one page
	Collapsed   KeySet
	Metadata    MetadataSnapshot
	Highlights  *Highlighter
}

// stage is one memoized derivation.
type stage[T any] struct {
	key    string
	value  T
	filled bool
	hits   int
	misses int
}

func (s *stage[T]) get(key string, compute func() T) (T, bool) {
	if s.filled && s.key == key {
		s.hits++
		return s.value, true
	}
	s.misses++
	s.value = compute()
	s.key, s.filled = key, true
	return s.value, false
}

// memo holds the derived stages, each keyed by the hash of its inputs.
type memo struct {
	forest  stage[*Forest]
	columns stage[ColumnProjection]
	rows    stage[[]FlatRow]
	totals  stage[*Totals]
}

// StageStats counts memo hits and misses of one stage.
type StageStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// TraceFunc receives the duration of every stage and whether it was memoized.
type TraceFunc func(stage string, d time.Duration, memoized bool)

// Engine computes views and memoizes every stage, so repeated calls only
// redo the stages whose inputs changed. It keeps the layout selector and
// pager state between calls. Engine is safe for concurrent use, though
// calls are serialized.
type Engine struct {
	mu         sync.Mutex
	memo       memo
	selector   *LayoutSelector
	lastLayout Layout
	pager      *Pager
	trace      TraceFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTrace installs a stage trace callback.
func WithTrace(fn TraceFunc) EngineOption {
	return func(e *Engine) { e.trace = fn }
}

// NewEngine returns an engine with empty memo.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{pager: NewPager(DefaultPageSize)}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Stats returns per-stage memo statistics.
func (e *Engine) Stats() map[string]StageStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[string]StageStats{
		"hierarchy": {e.memo.forest.hits, e.memo.forest.misses},
		"columns":   {e.memo.columns.hits, e.memo.columns.misses},
		"rows":      {e.memo.rows.hits, e.memo.rows.misses},
		"totals":    {e.memo.totals.hits, e.memo.totals.misses},
	}
}

// SetLayout records an explicit layout choice, overriding any automatic switch.
func (e *Engine) SetLayout(l Layout) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectorFor(l).SetMode(l)
	e.lastLayout = l
}

func (e *Engine) selectorFor(l Layout) *LayoutSelector {
	if e.selector == nil {
		e.selector = NewLayoutSelector(l)
		e.lastLayout = l
	}
	return e.selector
}

// requestedLayout is the layout cfg asks for, compact when unset.
func requestedLayout(l Layout) Layout {
	if l == "" {
		return LayoutCompact
	}
	return l
}

func (e *Engine) timed(name string, fn func() bool) {
	start := time.Now()
	memoized := fn()
	if e.trace != nil {
		e.trace(name, time.Since(start), memoized)
	}
}

// Compute renders in with cfg. Caller-owned state (collapsed set, metadata)
// is copied, never mutated.
func (e *Engine) Compute(in Input, cfg Config) *View {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg = cfg.withDefaults()
	collapsed := cfg.Collapsed.Clone()
	dataKeys := in.dataKeys()
	rowsHash := hashOf(in.Rows)

	var forest *Forest
	forestKey := hashOf(in.RowNodes)
	e.timed("hierarchy", func() bool {
		var hit bool
		forest, hit = e.memo.forest.get(forestKey, func() *Forest { return BuildForest(in.RowNodes) })
		return hit
	})

	selector := e.selectorFor(cfg.Layout)
	if cfg.Layout != "" && cfg.Layout != e.lastLayout {
		selector.SetMode(cfg.Layout)
	}
	e.lastLayout = cfg.Layout
	layout := selector.Resolve(SelectInput{
		RowFields:   cfg.RowFields,
		HasRoots:    !forest.Empty(),
		ValueFields: len(cfg.ValueFields),
	})

	var cols ColumnProjection
	colKey := hashOf(in.ColumnNodes, cfg.ColumnFields, cfg.ValueFields, dataKeys)
	e.timed("columns", func() bool {
		var hit bool
		cols, hit = e.memo.columns.get(colKey, func() ColumnProjection {
			return ProjectColumns(ColumnInput{
				Nodes:        in.ColumnNodes,
				ColumnFields: cfg.ColumnFields,
				ValueFields:  cfg.ValueFields,
				DataKeys:     dataKeys,
			})
		})
		return hit
	})

	valueCols := cols.LeafColumns
	if len(valueCols) == 0 && len(cfg.ColumnFields) == 0 {
		valueCols = withoutFields(dataKeys, cfg.RowFields)
	}

	var rows []FlatRow
	rowsKey := hashOf(forestKey, rowsHash, layout, cfg.RowFields, valueCols, cfg.Subtotals, collapsed.Sorted())
	e.timed("rows", func() bool {
		var hit bool
		rows, hit = e.memo.rows.get(rowsKey, func() []FlatRow {
			return Materialize(layout, MaterializeInput{
				Roots:        forest.Roots,
				RowFields:    cfg.RowFields,
				ValueColumns: valueCols,
				Subtotals:    cfg.Subtotals,
				Collapsed:    collapsed,
				Rows:         in.Rows,
			})
		})
		return hit
	})

	var totals *Totals
	totalsKey := hashOf(forestKey, rowsHash, cfg.RowFields, valueCols, cfg.Percent, colKey)
	e.timed("totals", func() bool {
		var hit bool
		totals, hit = e.memo.totals.get(totalsKey, func() *Totals {
			return ComputeTotals(TotalsInput{
				Mode:             cfg.Percent,
				Rows:             in.Rows,
				RowFields:        cfg.RowFields,
				ValueColumns:     valueCols,
				GrandTotalColumn: cols.IsGrandTotalColumn,
				Forest:           forest,
			})
		})
		return hit
	})

	var view *View
	e.timed("view", func() bool {
		view = e.buildView(viewInput{
			cfg:       cfg,
			layout:    layout,
			forest:    forest,
			cols:      cols,
			valueCols: valueCols,
			rows:      rows,
			totals:    totals,
			switched:  layout != requestedLayout(cfg.Layout),
		})
		return false
	})
	return view
}

func (c Config) withDefaults() Config {
	if c.Subtotals == "" {
		c.Subtotals = SubtotalsBottom
	}
	if c.GrandTotals == "" {
		c.GrandTotals = GrandTotalsBoth
	}
	if c.Percent == "" {
		c.Percent = PercentOff
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	return c
}

func withoutFields(keys, fields []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !slices.ContainsFunc(fields, func(f string) bool { return CanonicalKey(f) == CanonicalKey(k) }) {
			out = append(out, k)
		}
	}
	return out
}

// hashOf hashes the JSON encoding of parts. Values JSON cannot encode
// (NaN, channels) fall back to their Go syntax representation.
func hashOf(parts ...any) string {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(parts); err != nil {
		h.Reset()
		fmt.Fprintf(h, "%#v", parts)
	}
	return hex.EncodeToString(h.Sum(nil))
}
