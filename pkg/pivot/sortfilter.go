package pivot

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/pivotview/pkg/errors"
)

// SortKind is a per-field sort directive.
type SortKind string

const (
	SortNone      SortKind = "none"
	SortAscLabel  SortKind = "asc_label"
	SortDescLabel SortKind = "desc_label"
	SortAscValue  SortKind = "asc_value"
	SortDescValue SortKind = "desc_value"
)

// ParseSortKind parses a sort kind. Empty means none.
func ParseSortKind(s string) (SortKind, error) {
	switch k := SortKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortNone, nil
	case SortNone, SortAscLabel, SortDescLabel, SortAscValue, SortDescValue:
		return k, nil
	}
	return "", errors.New(errors.ErrCodeInvalidMode, "unknown sort %q", s)
}

// Arrow is the header affordance for the sort kind.
func (k SortKind) Arrow() string {
	switch k {
	case SortAscLabel, SortAscValue:
		return "▲"
	case SortDescLabel, SortDescValue:
		return "▼"
	}
	return ""
}

// Next cycles none, asc_label, desc_label, asc_value, desc_value.
func (k SortKind) Next() SortKind {
	switch k {
	case SortNone, "":
		return SortAscLabel
	case SortAscLabel:
		return SortDescLabel
	case SortDescLabel:
		return SortAscValue
	case SortAscValue:
		return SortDescValue
	}
	return SortNone
}

// SortDirective is the sort state of one field.
type SortDirective struct {
	Field             string   `json:"field" toml:"field"`
	Kind              SortKind `json:"kind" toml:"kind"`
	Level             int      `json:"level" toml:"-"`
	PreserveHierarchy bool     `json:"preserve_hierarchy" toml:"-"`
}

// FilterSelection is the allowed values of one field. No values means all.
type FilterSelection struct {
	Field  string   `json:"field" toml:"field"`
	Values []string `json:"values,omitempty" toml:"values"`
}

// DistinctFetcher loads the distinct values of a field from the backend.
type DistinctFetcher interface {
	DistinctValues(ctx context.Context, field string) ([]string, error)
}

// DistinctFetcherFunc adapts a function to DistinctFetcher.
type DistinctFetcherFunc func(ctx context.Context, field string) ([]string, error)

// DistinctValues implements DistinctFetcher.
func (f DistinctFetcherFunc) DistinctValues(ctx context.Context, field string) ([]string, error) {
	return f(ctx, field)
}

type filterState struct {
	field    string
	selected []string // nil = all
	distinct []string
	loaded   bool
}

// Metadata holds sort directives and filter selections. Field names are
// matched case-insensitively. It is safe for concurrent use.
type Metadata struct {
	mu      sync.Mutex
	sorts   []SortDirective
	filters map[string]*filterState // by lower-cased field
	order   []string                // filter fields in insertion order
}

// NewMetadata returns empty metadata: no sorts, everything selected.
func NewMetadata() *Metadata {
	return &Metadata{filters: map[string]*filterState{}}
}

// SetSort records the directive for field, replacing any directive whose
// name matches case-insensitively. The field takes the casing of the
// matching row field, its Level is the row-field index (-1 when it is not a
// row field). SortNone clears the directive.
func (m *Metadata) SetSort(field string, kind SortKind, rowFields []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sorts = slices.DeleteFunc(m.sorts, func(d SortDirective) bool {
		return strings.EqualFold(d.Field, field)
	})
	if kind == SortNone || kind == "" {
		return
	}
	level := slices.IndexFunc(rowFields, func(f string) bool { return strings.EqualFold(f, field) })
	if level >= 0 {
		field = rowFields[level]
	}
	m.sorts = append(m.sorts, SortDirective{
		Field:             field,
		Kind:              kind,
		Level:             level,
		PreserveHierarchy: true,
	})
}

// Sort returns the directive for field.
func (m *Metadata) Sort(field string) (SortDirective, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.sorts {
		if strings.EqualFold(d.Field, field) {
			return d, true
		}
	}
	return SortDirective{}, false
}

// Sorts returns the directives in the order they were set.
func (m *Metadata) Sorts() []SortDirective {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sorts)
}

func (m *Metadata) state(field string) *filterState {
	k := strings.ToLower(field)
	st, ok := m.filters[k]
	if !ok {
		st = &filterState{field: field}
		m.filters[k] = st
		m.order = append(m.order, k)
	}
	return st
}

// SetFilter sets the allowed values of field. Empty values selects all.
func (m *Metadata) SetFilter(field string, values []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(field)
	if len(values) == 0 {
		st.selected = nil
		return
	}
	st.selected = slices.Compact(slices.Sorted(slices.Values(values)))
}

// Selection returns the allowed values of field; nil means all.
func (m *Metadata) Selection(field string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.filters[strings.ToLower(field)]; ok {
		return slices.Clone(st.selected)
	}
	return nil
}

// IsSelected reports whether value passes the filter of field.
func (m *Metadata) IsSelected(field, value string) bool {
	sel := m.Selection(field)
	return len(sel) == 0 || slices.Contains(sel, value)
}

// OpenFilter returns the distinct values of field, fetching them on first
// use. When the current selection refers to values the backend no longer
// returns, the selection is reset to all.
func (m *Metadata) OpenFilter(ctx context.Context, field string, fetcher DistinctFetcher) ([]string, error) {
	m.mu.Lock()
	st := m.state(field)
	if st.loaded {
		out := slices.Clone(st.distinct)
		m.mu.Unlock()
		return out, nil
	}
	m.mu.Unlock()

	values, err := fetcher.DistinctValues(ctx, field)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st = m.state(field)
	st.distinct = slices.Clone(values)
	st.loaded = true
	for _, v := range st.selected {
		if !slices.Contains(values, v) {
			st.selected = nil
			break
		}
	}
	return slices.Clone(values), nil
}

// HeaderState is the header affordance of one field.
type HeaderState struct {
	Sort     SortKind
	Filtered bool
}

// Marker renders the affordance as a short suffix (" ▲", " ▼ ⧩", ...).
func (h HeaderState) Marker() string {
	var b strings.Builder
	if a := h.Sort.Arrow(); a != "" {
		b.WriteString(" " + a)
	}
	if h.Filtered {
		b.WriteString(" ⧩")
	}
	return b.String()
}

// HeaderState returns the sort and filter state of field.
func (m *Metadata) HeaderState(field string) HeaderState {
	h := HeaderState{Sort: SortNone}
	if d, ok := m.Sort(field); ok {
		h.Sort = d.Kind
	}
	h.Filtered = len(m.Selection(field)) > 0
	return h
}

// MetadataSnapshot is an immutable copy of the metadata.
type MetadataSnapshot struct {
	Sorts   []SortDirective   `json:"sorts,omitempty"`
	Filters []FilterSelection `json:"filters,omitempty"`
}

// Snapshot copies the current directives. Filters selecting all are omitted.
func (m *Metadata) Snapshot() MetadataSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetadataSnapshot{Sorts: slices.Clone(m.sorts)}
	for _, k := range m.order {
		st := m.filters[k]
		if len(st.selected) > 0 {
			snap.Filters = append(snap.Filters, FilterSelection{Field: st.field, Values: slices.Clone(st.selected)})
		}
	}
	return snap
}

// Restore replaces the directives with those of a snapshot. Sorts and
// selections not in snap are cleared; fetched distinct values are kept.
func (m *Metadata) Restore(snap MetadataSnapshot, rowFields []string) {
	m.mu.Lock()
	m.sorts = nil
	for _, st := range m.filters {
		st.selected = nil
	}
	m.mu.Unlock()

	for _, d := range snap.Sorts {
		m.SetSort(d.Field, d.Kind, rowFields)
	}
	for _, f := range snap.Filters {
		m.SetFilter(f.Field, f.Values)
	}
}

// Fields is the configured pivot shape.
type Fields struct {
	RowFields    []string     `json:"row_fields,omitempty" toml:"rows"`
	ColumnFields []string     `json:"column_fields,omitempty" toml:"columns"`
	ValueFields  []ValueField `json:"value_fields,omitempty" toml:"values"`
}

// Query is the request sent to the aggregation backend.
type Query struct {
	Fields
	Sorts   []SortDirective     `json:"sorts,omitempty"`
	Filters map[string][]string `json:"filters,omitempty"`
}

// Query renders the directives for the backend.
func (m *Metadata) Query(fields Fields) Query {
	snap := m.Snapshot()
	q := Query{Fields: fields, Sorts: snap.Sorts}
	if len(snap.Filters) > 0 {
		q.Filters = make(map[string][]string, len(snap.Filters))
		for _, f := range snap.Filters {
			q.Filters[f.Field] = f.Values
		}
	}
	return q
}
