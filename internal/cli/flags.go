package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivotview/pkg/pipeline"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// reportFlags are the flags shared by render, inspect and view. They
// override the values of a --config report file.
type reportFlags struct {
	config string

	rows       []string
	columns    []string
	values     []string // field[:aggregation[:weight_column]]
	sorts      []string // field:kind
	filters    []string // field=value[,value...]
	highlights []string // name=expression
	headers    []string // Name: value
	collapsed  []string

	layout      string
	subtotals   string
	grandTotals string
	percent     string
	decimals    int
	locale      string
	pageSize    int
	page        int
	allPages    bool
	timeout     time.Duration
	refresh     bool
}

func (f *reportFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "TOML report file")

	fl.StringSliceVarP(&f.rows, "rows", "r", nil, "row fields, outermost first")
	fl.StringSliceVar(&f.columns, "columns", nil, "column fields, outermost first")
	fl.StringArrayVar(&f.values, "value", nil, "value field as field[:aggregation[:weight_column]] (repeatable)")
	fl.StringArrayVar(&f.sorts, "sort", nil, "backend sort as field:kind, kind one of asc_label, desc_label, asc_value, desc_value (repeatable)")
	fl.StringArrayVar(&f.filters, "filter", nil, "backend filter as field=value[,value...] (repeatable)")
	fl.StringArrayVar(&f.highlights, "highlight", nil, "highlight rule as name=expression (repeatable)")
	fl.StringArrayVarP(&f.headers, "header", "H", nil, "backend request header as 'Name: value' (repeatable)")
	fl.StringSliceVar(&f.collapsed, "collapse", nil, "row node keys to collapse")

	fl.StringVarP(&f.layout, "layout", "l", "", "layout: compact (default), outline, tabular")
	fl.StringVar(&f.subtotals, "subtotals", "", "subtotal placement: bottom (default), top, off")
	fl.StringVar(&f.grandTotals, "grand-totals", "", "grand totals: both (default), rows, columns, off")
	fl.StringVarP(&f.percent, "percent", "p", "", "percentages: off (default), row, column, grand_total")
	fl.IntVar(&f.decimals, "decimals", pipeline.DefaultDecimals, "fraction digits")
	fl.StringVar(&f.locale, "locale", "", "number and date locale (BCP 47, default en)")
	fl.IntVar(&f.pageSize, "page-size", 0, fmt.Sprintf("rows per page (default %d)", pivot.DefaultPageSize))
	fl.IntVar(&f.page, "page", 0, "page to show (1-based)")
	fl.BoolVarP(&f.allPages, "all", "a", false, "show every page")
	fl.DurationVar(&f.timeout, "timeout", 0, "backend request timeout")
	fl.BoolVar(&f.refresh, "refresh", false, "bypass the payload cache")
}

// options loads the report file, if any, and applies the flags set on cmd.
// source, when not empty, replaces the report's source.
func (f *reportFlags) options(cmd *cobra.Command, source string) (pipeline.Options, error) {
	var opts pipeline.Options
	if f.config != "" {
		var err error
		if opts, err = pipeline.LoadOptions(f.config); err != nil {
			return opts, err
		}
	}
	if source != "" {
		opts.Source = source
	}
	changed := cmd.Flags().Changed

	if changed("rows") {
		opts.RowFields = f.rows
	}
	if changed("columns") {
		opts.ColumnFields = f.columns
	}
	if len(f.values) > 0 {
		opts.ValueFields = nil
		for _, v := range f.values {
			opts.ValueFields = append(opts.ValueFields, parseValueField(v))
		}
	}
	if len(f.sorts) > 0 {
		sorts, err := parseSorts(f.sorts)
		if err != nil {
			return opts, err
		}
		opts.Sorts = sorts
	}
	if len(f.filters) > 0 {
		filters, err := parseFilters(f.filters)
		if err != nil {
			return opts, err
		}
		opts.Filters = filters
	}
	if len(f.highlights) > 0 {
		rules, err := parseHighlights(f.highlights)
		if err != nil {
			return opts, err
		}
		opts.Highlights = rules
	}
	if len(f.headers) > 0 {
		headers, err := parseHeaders(f.headers)
		if err != nil {
			return opts, err
		}
		opts.Headers = headers
	}
	if changed("collapse") {
		opts.Collapsed = f.collapsed
	}

	if changed("layout") {
		opts.Layout = f.layout
	}
	if changed("subtotals") {
		opts.Subtotals = f.subtotals
	}
	if changed("grand-totals") {
		opts.GrandTotals = f.grandTotals
	}
	if changed("percent") {
		opts.Percent = f.percent
	}
	if changed("decimals") || opts.Decimals == nil {
		d := f.decimals
		opts.Decimals = &d
	}
	if changed("locale") {
		opts.Locale = f.locale
	}
	if changed("page-size") {
		opts.PageSize = f.pageSize
	}
	if changed("page") {
		opts.Page = f.page
	}
	if changed("all") {
		opts.AllPages = f.allPages
	}
	if changed("timeout") {
		opts.Timeout = f.timeout
	}
	opts.Refresh = f.refresh

	if opts.Source == "" {
		return opts, fmt.Errorf("no source: pass a payload file or backend URL, or set source in --config")
	}
	return opts, nil
}

// parseValueField parses field[:aggregation[:weight_column]].
func parseValueField(s string) pivot.ValueField {
	parts := strings.SplitN(s, ":", 3)
	v := pivot.ValueField{Field: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		v.Aggregation = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		v.WeightColumn = strings.TrimSpace(parts[2])
	}
	return v
}

// parseSorts parses field:kind directives. The kind is validated later by
// the pipeline.
func parseSorts(items []string) ([]pivot.SortDirective, error) {
	sorts := make([]pivot.SortDirective, 0, len(items))
	for _, item := range items {
		field, kind, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid --sort %q (want field:kind)", item)
		}
		sorts = append(sorts, pivot.SortDirective{Field: strings.TrimSpace(field), Kind: pivot.SortKind(strings.TrimSpace(kind))})
	}
	return sorts, nil
}

// parseFilters parses field=value[,value...]. Repeating a field adds values.
func parseFilters(items []string) (map[string][]string, error) {
	filters := make(map[string][]string, len(items))
	for _, item := range items {
		field, values, ok := strings.Cut(item, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --filter %q (want field=value[,value...])", item)
		}
		filters[field] = append(filters[field], splitList(values)...)
	}
	return filters, nil
}

// parseHighlights parses name=expression rules.
func parseHighlights(items []string) ([]pivot.HighlightRule, error) {
	rules := make([]pivot.HighlightRule, 0, len(items))
	for _, item := range items {
		name, when, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(when) == "" {
			return nil, fmt.Errorf("invalid --highlight %q (want name=expression)", item)
		}
		rules = append(rules, pivot.HighlightRule{Name: strings.TrimSpace(name), When: strings.TrimSpace(when)})
	}
	return rules, nil
}

// parseHeaders parses curl-style "Name: value" headers.
func parseHeaders(items []string) (map[string]string, error) {
	headers := make(map[string]string, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --header %q (want 'Name: value')", item)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}
