package pivot

// DefaultPageSize is the number of rows per page.
const DefaultPageSize = 20

// SelectInput is the data shape the layout decision depends on.
type SelectInput struct {
	RowFields   []string
	HasRoots    bool
	ValueFields int
}

// LayoutSelector picks the layout actually rendered.
//
// Flat data (no row fields or no hierarchy) always renders tabular. When no
// layout was chosen and more than one value field is configured, the
// default compact mode is switched to tabular once. An explicit mode, given
// up front or through [LayoutSelector.SetMode], is never overridden.
type LayoutSelector struct {
	mode         Layout
	explicit     bool
	autoSwitched bool
}

// NewLayoutSelector starts from mode. An empty mode means compact with the
// automatic switch armed; any other mode is an explicit choice.
func NewLayoutSelector(mode Layout) *LayoutSelector {
	if mode == "" {
		return &LayoutSelector{mode: LayoutCompact}
	}
	return &LayoutSelector{mode: mode, explicit: true}
}

// Mode returns the current mode, ignoring data shape.
func (s *LayoutSelector) Mode() Layout { return s.mode }

// AutoSwitched reports whether the one-time switch to tabular happened.
func (s *LayoutSelector) AutoSwitched() bool { return s.autoSwitched }

// Explicit reports whether the mode was chosen rather than defaulted.
func (s *LayoutSelector) Explicit() bool { return s.explicit }

// SetMode records an explicit user choice.
func (s *LayoutSelector) SetMode(mode Layout) {
	s.mode = mode
	s.explicit = true
}

// Resolve returns the layout to render for the given data shape.
func (s *LayoutSelector) Resolve(in SelectInput) Layout {
	if len(in.RowFields) == 0 || !in.HasRoots {
		return LayoutTabular
	}
	if in.ValueFields > 1 && s.mode != LayoutTabular && !s.explicit && !s.autoSwitched {
		s.mode = LayoutTabular
		s.autoSwitched = true
	}
	return s.mode
}

// Pager splits rows into fixed-size pages. Pages are 1-based.
type Pager struct {
	size   int
	page   int
	total  int
	layout Layout
}

// NewPager returns a pager on page 1. Non-positive sizes use DefaultPageSize.
func NewPager(size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{size: size, page: 1}
}

// Sync updates the row count and layout; a change of either resets to page 1.
func (p *Pager) Sync(total int, layout Layout) {
	if total != p.total || layout != p.layout {
		p.page = 1
	}
	p.total, p.layout = total, layout
}

// SetPageSize changes the page size and resets to page 1.
func (p *Pager) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size != p.size {
		p.size = size
		p.page = 1
	}
}

// SetPage moves to page n, clamped to the valid range.
func (p *Pager) SetPage(n int) {
	p.page = min(max(n, 1), max(p.Pages(), 1))
}

// Next moves forward one page if possible.
func (p *Pager) Next() { p.SetPage(p.page + 1) }

// Prev moves back one page if possible.
func (p *Pager) Prev() { p.SetPage(p.page - 1) }

// Page returns the current 1-based page.
func (p *Pager) Page() int { return p.page }

// PageSize returns the rows per page.
func (p *Pager) PageSize() int { return p.size }

// Total returns the row count.
func (p *Pager) Total() int { return p.total }

// Pages returns ceil(total / size).
func (p *Pager) Pages() int {
	return (p.total + p.size - 1) / p.size
}

// Bounds returns the half-open row range of the current page.
func (p *Pager) Bounds() (start, end int) {
	start = min((p.page-1)*p.size, p.total)
	end = min(start+p.size, p.total)
	return start, end
}

// Slice returns the rows of the pager's current page.
func Slice[T any](p *Pager, rows []T) []T {
	start, end := p.Bounds()
	start, end = min(start, len(rows)), min(end, len(rows))
	return rows[start:end]
}
