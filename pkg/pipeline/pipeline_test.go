package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/pivotview/pkg/cache"
	"github.com/matzehuels/pivotview/pkg/errors"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

const salesPayload = `{
  "row_nodes": [
    {"key": "GT", "level": 0, "order": -1, "labels": [{"field": "Region", "value": "Grand Total"}], "values": {"Sales": 350}},
    {"key": "E.NYC", "parent_key": "E", "level": 1, "order": 0,
     "labels": [{"field": "Region", "value": "East"}, {"field": "City", "value": "NYC"}], "values": {"Sales": 100}},
    {"key": "E.BOS", "parent_key": "E", "level": 1, "order": 1,
     "labels": [{"field": "Region", "value": "East"}, {"field": "City", "value": "Boston"}], "values": {"Sales": 200}},
    {"key": "W.LA", "parent_key": "W", "level": 1, "order": 0,
     "labels": [{"field": "Region", "value": "West"}, {"field": "City", "value": "LA"}], "values": {"Sales": 50}},
    {"key": "W", "level": 0, "order": 1, "labels": [{"field": "Region", "value": "West"}], "values": {"Sales": 50}},
    {"key": "E", "level": 0, "order": 0, "labels": [{"field": "Region", "value": "East"}], "values": {"Sales": 300}}
  ],
  "rows": [
    {"Region": "East", "City": "NYC", "Sales": 100},
    {"Region": "East", "City": "Boston", "Sales": 200},
    {"Region": "West", "City": "LA", "Sales": 50}
  ]
}`

func writePayload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.json")
	if err := os.WriteFile(path, []byte(salesPayload), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func salesOptions(source string) Options {
	return Options{
		Source: source,
		Fields: pivot.Fields{
			RowFields:   []string{"Region", "City"},
			ValueFields: []pivot.ValueField{{Field: "Sales", Aggregation: "sum"}},
		},
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"text", false},
		{"json", false},
		{"xlsx", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"TEXT", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) returned wrong code: %v", tt.format, err)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"text", "xlsx"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"text", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestParseOptions(t *testing.T) {
	doc := `
source = "https://olap.example.com/pivot"
timeout = "5s"
rows = ["Region", "City"]
columns = ["Year"]
layout = "Tabular"
percent = "column"
decimals = 1
collapsed = ["E"]
formats = ["text", "xlsx"]

[headers]
Authorization = "Bearer x"

[[values]]
field = "Sales"
aggregation = "sum"

[[sorts]]
field = "City"
kind = "desc_label"

[filters]
Region = ["East"]

[[highlight]]
name = "big"
when = "value > 100"
`
	opts, err := ParseOptions([]byte(doc))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}

	want := pivot.Fields{
		RowFields:    []string{"Region", "City"},
		ColumnFields: []string{"Year"},
		ValueFields:  []pivot.ValueField{{Field: "Sales", Aggregation: "sum"}},
	}
	if diff := cmp.Diff(want, opts.Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
	if opts.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", opts.Timeout)
	}
	if opts.Headers["Authorization"] != "Bearer x" {
		t.Errorf("Headers = %v", opts.Headers)
	}
	if len(opts.Highlights) != 1 || opts.Highlights[0].When != "value > 100" {
		t.Errorf("Highlights = %+v", opts.Highlights)
	}
	if len(opts.Sorts) != 1 || opts.Sorts[0].Kind != pivot.SortDescLabel {
		t.Errorf("Sorts = %+v", opts.Sorts)
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	cfg := opts.Config()
	if cfg.Layout != pivot.LayoutTabular || cfg.Percent != pivot.PercentColumn || cfg.Decimals != 1 {
		t.Errorf("Config = layout %s, percent %s, decimals %d", cfg.Layout, cfg.Percent, cfg.Decimals)
	}
	if !cfg.Collapsed.Has("E") {
		t.Error("Config.Collapsed should hold E")
	}
	if cfg.Highlights == nil || len(cfg.Highlights.Rules()) != 1 {
		t.Error("Config.Highlights should hold one rule")
	}

	q := opts.Query()
	if !slices.Equal(q.Filters["Region"], []string{"East"}) {
		t.Errorf("Query.Filters = %v", q.Filters)
	}
	if len(q.Sorts) != 1 || q.Sorts[0].Level != 1 {
		t.Errorf("Query.Sorts = %+v, want City at level 1", q.Sorts)
	}
}

func TestParseOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", `source = "a.json"` + "\nlayuot = \"compact\""},
		{"syntax", `source = `},
		{"wrong type", `rows = "Region"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions([]byte(tt.doc))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("ParseOptions error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.toml")
	if err := os.WriteFile(path, []byte(`source = "sales.json"`+"\nrows = [\"Region\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if opts.Source != "sales.json" || !slices.Equal(opts.RowFields, []string{"Region"}) {
		t.Errorf("LoadOptions = %+v", opts)
	}

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := salesOptions("sales.json")
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Layout != "" || opts.Subtotals != "bottom" || opts.GrandTotals != "both" || opts.Percent != "off" {
		t.Errorf("defaults = %s/%s/%s/%s", opts.Layout, opts.Subtotals, opts.GrandTotals, opts.Percent)
	}
	if opts.Decimals == nil || *opts.Decimals != DefaultDecimals {
		t.Errorf("Decimals = %v, want %d", opts.Decimals, DefaultDecimals)
	}
	if opts.PageSize != pivot.DefaultPageSize || opts.Locale != DefaultLocale {
		t.Errorf("PageSize = %d, Locale = %q", opts.PageSize, opts.Locale)
	}
	if !slices.Equal(opts.Formats, []string{FormatText}) {
		t.Errorf("Formats = %v, want [text]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	// Idempotent
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second ValidateAndSetDefaults: %v", err)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		code   errors.Code
	}{
		{"no source", func(o *Options) { o.Source = "" }, errors.ErrCodeInvalidConfig},
		{"duplicate row field", func(o *Options) { o.RowFields = []string{"Region", "region"} }, errors.ErrCodeInvalidField},
		{"empty value field", func(o *Options) { o.ValueFields = []pivot.ValueField{{}} }, errors.ErrCodeInvalidField},
		{"bad layout", func(o *Options) { o.Layout = "pivot" }, errors.ErrCodeInvalidLayout},
		{"bad subtotals", func(o *Options) { o.Subtotals = "middle" }, errors.ErrCodeInvalidMode},
		{"bad grand totals", func(o *Options) { o.GrandTotals = "some" }, errors.ErrCodeInvalidMode},
		{"bad percent", func(o *Options) { o.Percent = "half" }, errors.ErrCodeInvalidMode},
		{"bad sort", func(o *Options) { o.Sorts = []pivot.SortDirective{{Field: "City", Kind: "sideways"}} }, errors.ErrCodeInvalidMode},
		{"bad highlight", func(o *Options) { o.Highlights = []pivot.HighlightRule{{Name: "x", When: "value >"}} }, errors.ErrCodeInvalidExpression},
		{"negative decimals", func(o *Options) { d := -1; o.Decimals = &d }, errors.ErrCodeInvalidConfig},
		{"negative page", func(o *Options) { o.Page = -2 }, errors.ErrCodeInvalidConfig},
		{"bad format", func(o *Options) { o.Formats = []string{"pdf"} }, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := salesOptions("sales.json")
			tt.modify(&opts)
			err := opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("ValidateAndSetDefaults should fail")
			}
			if tt.code != "" && !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteFileSource(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	defer runner.Close()

	opts := salesOptions(writePayload(t))
	opts.Formats = []string{FormatText, FormatJSON, FormatXLSX, FormatDOT}

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Stats.RowNodes != 6 || result.Stats.SourceRows != 3 {
		t.Errorf("Stats = %+v", result.Stats)
	}
	if result.CacheInfo.FetchHit || result.CacheInfo.ComputeHit || result.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want all misses", result.CacheInfo)
	}

	var labels []string
	for _, r := range result.View.Rows {
		labels = append(labels, r.Labels[0])
	}
	want := []string{"NYC", "Boston", "East Total", "LA", "West Total", "Grand Total"}
	if !slices.Equal(labels, want) {
		t.Errorf("rows = %v, want %v", labels, want)
	}

	if !strings.Contains(string(result.Artifacts[FormatText]), "East Total") {
		t.Errorf("text artifact missing subtotal row:\n%s", result.Artifacts[FormatText])
	}
	var decoded pivot.View
	if err := json.Unmarshal(result.Artifacts[FormatJSON], &decoded); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if decoded.TotalRows != 6 {
		t.Errorf("json TotalRows = %d, want 6", decoded.TotalRows)
	}
	if !strings.HasPrefix(string(result.Artifacts[FormatXLSX]), "PK") {
		t.Error("xlsx artifact should be a zip archive")
	}
	if !strings.Contains(string(result.Artifacts[FormatDOT]), "digraph") {
		t.Errorf("dot artifact = %q", result.Artifacts[FormatDOT])
	}

	// Second run: payload files are never cached, view and artifacts are.
	again, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if again.CacheInfo.FetchHit || !again.CacheInfo.ComputeHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v", again.CacheInfo)
	}
	if diff := cmp.Diff(result.Artifacts[FormatText], again.Artifacts[FormatText]); diff != "" {
		t.Errorf("cached text artifact differs:\n%s", diff)
	}
}

func TestExecuteLayoutWithSeveralValues(t *testing.T) {
	path := writePayload(t)
	tests := []struct {
		layout       string
		want         pivot.Layout
		autoSwitched bool
	}{
		{"", pivot.LayoutTabular, true},
		{"compact", pivot.LayoutCompact, false},
		{"outline", pivot.LayoutOutline, false},
	}
	for _, tt := range tests {
		t.Run("layout="+tt.layout, func(t *testing.T) {
			opts := salesOptions(path)
			opts.Layout = tt.layout
			opts.ValueFields = append(opts.ValueFields, pivot.ValueField{Field: "Units", Aggregation: "sum"})

			result, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if result.View.Layout != tt.want || result.View.AutoSwitched != tt.autoSwitched {
				t.Errorf("rendered %s (switched %v), want %s (switched %v)",
					result.View.Layout, result.View.AutoSwitched, tt.want, tt.autoSwitched)
			}
		})
	}
}

func TestExecuteHTTPSourceCachesPayload(t *testing.T) {
	var calls atomic.Int32
	var query pivot.Query
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&query)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(salesPayload))
	}))
	defer srv.Close()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	ctx := context.Background()

	opts := salesOptions(srv.URL)
	opts.Filters = map[string][]string{"Region": {"East", "West"}}

	first, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheInfo.FetchHit {
		t.Error("first fetch should miss")
	}
	if !slices.Equal(query.Filters["Region"], []string{"East", "West"}) {
		t.Errorf("backend saw filters %v", query.Filters)
	}

	second, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !second.CacheInfo.FetchHit {
		t.Error("second fetch should hit the cache")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}

	opts.Refresh = true
	if _, err := runner.Execute(ctx, opts); err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("backend calls after refresh = %d, want 2", got)
	}
}

func TestViewCacheKeyTracksConfig(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	path := writePayload(t)

	opts := salesOptions(path)
	if _, err := runner.Execute(ctx, opts); err != nil {
		t.Fatal(err)
	}

	opts = salesOptions(path)
	opts.Layout = "tabular"
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.CacheInfo.ComputeHit {
		t.Error("changing the layout should miss the view cache")
	}
	if result.View.Layout != pivot.LayoutTabular {
		t.Errorf("Layout = %s, want tabular", result.View.Layout)
	}
}

func TestExecuteErrors(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	ctx := context.Background()

	_, err := runner.Execute(ctx, salesOptions(filepath.Join(t.TempDir(), "missing.json")))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing payload error = %v, want FILE_NOT_FOUND", err)
	}

	opts := salesOptions("sales.json")
	opts.Layout = "nope"
	if _, err := runner.Execute(ctx, opts); !errors.Is(err, errors.ErrCodeInvalidLayout) {
		t.Errorf("bad layout error = %v", err)
	}
}

func TestDistinct(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	values, err := runner.Distinct(context.Background(), salesOptions(writePayload(t)), "city")
	if err != nil {
		t.Fatalf("Distinct: %v", err)
	}
	if want := []string{"Boston", "LA", "NYC"}; !slices.Equal(values, want) {
		t.Errorf("Distinct = %v, want %v", values, want)
	}
}

func TestOpenSource(t *testing.T) {
	src, err := OpenSource(Options{Source: "https://olap.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if isLocal(src) {
		t.Error("http source should not be local")
	}
	src, err = OpenSource(Options{Source: "sales.json"})
	if err != nil {
		t.Fatal(err)
	}
	if !isLocal(src) {
		t.Error("file source should be local")
	}
}
