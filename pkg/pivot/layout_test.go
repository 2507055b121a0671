package pivot

import (
	"slices"
	"testing"
)

func TestLayoutSelectorFallsBackToTabular(t *testing.T) {
	tests := []struct {
		name string
		in   SelectInput
	}{
		{"no row fields", SelectInput{HasRoots: true, ValueFields: 1}},
		{"no roots", SelectInput{RowFields: []string{"Region"}, ValueFields: 1}},
	}
	for _, tt := range tests {
		s := NewLayoutSelector(LayoutOutline)
		if got := s.Resolve(tt.in); got != LayoutTabular {
			t.Errorf("%s: Resolve = %s, want tabular", tt.name, got)
		}
		if s.Mode() != LayoutOutline {
			t.Errorf("%s: flat fallback should not change the mode", tt.name)
		}
	}
}

func TestLayoutSelectorAutoSwitchOnce(t *testing.T) {
	in := SelectInput{RowFields: []string{"Region"}, HasRoots: true, ValueFields: 2}
	s := NewLayoutSelector("")

	if got := s.Resolve(in); got != LayoutTabular {
		t.Fatalf("Resolve = %s, want auto switch to tabular", got)
	}
	if !s.AutoSwitched() {
		t.Error("AutoSwitched should be set")
	}

	s.SetMode(LayoutCompact)
	if got := s.Resolve(in); got != LayoutCompact {
		t.Errorf("Resolve after explicit choice = %s, want compact", got)
	}
}

func TestLayoutSelectorExplicitModeIsKept(t *testing.T) {
	in := SelectInput{RowFields: []string{"Region"}, HasRoots: true, ValueFields: 2}
	for _, mode := range []Layout{LayoutCompact, LayoutOutline} {
		s := NewLayoutSelector(mode)
		if got := s.Resolve(in); got != mode {
			t.Errorf("NewLayoutSelector(%s).Resolve = %s, want %s", mode, got, mode)
		}
		if s.AutoSwitched() || !s.Explicit() {
			t.Errorf("%s: AutoSwitched = %v, Explicit = %v", mode, s.AutoSwitched(), s.Explicit())
		}
	}

	s := NewLayoutSelector("")
	s.SetMode(LayoutOutline)
	if got := s.Resolve(in); got != LayoutOutline {
		t.Errorf("Resolve after SetMode before the first resolve = %s, want outline", got)
	}
}

func TestLayoutSelectorSingleValueKeepsMode(t *testing.T) {
	s := NewLayoutSelector(LayoutOutline)
	in := SelectInput{RowFields: []string{"Region"}, HasRoots: true, ValueFields: 1}
	if got := s.Resolve(in); got != LayoutOutline {
		t.Errorf("Resolve = %s, want outline", got)
	}
	if s.AutoSwitched() {
		t.Error("single value field must not trigger the switch")
	}
}

func TestPager(t *testing.T) {
	p := NewPager(0)
	if p.PageSize() != DefaultPageSize {
		t.Fatalf("PageSize = %d, want %d", p.PageSize(), DefaultPageSize)
	}

	p.Sync(45, LayoutCompact)
	if p.Pages() != 3 {
		t.Errorf("Pages = %d, want 3", p.Pages())
	}

	p.SetPage(3)
	if start, end := p.Bounds(); start != 40 || end != 45 {
		t.Errorf("Bounds = %d, %d; want 40, 45", start, end)
	}
	p.Next()
	if p.Page() != 3 {
		t.Errorf("Next past the end moved to %d", p.Page())
	}

	p.Sync(45, LayoutCompact)
	if p.Page() != 3 {
		t.Error("Sync without change should keep the page")
	}
	p.Sync(45, LayoutTabular)
	if p.Page() != 1 {
		t.Error("layout change should reset to page 1")
	}
	p.SetPage(2)
	p.Sync(46, LayoutTabular)
	if p.Page() != 1 {
		t.Error("row count change should reset to page 1")
	}
	p.SetPage(2)
	p.SetPageSize(10)
	if p.Page() != 1 || p.Pages() != 5 {
		t.Errorf("page size change: page %d pages %d, want 1, 5", p.Page(), p.Pages())
	}
	p.Prev()
	if p.Page() != 1 {
		t.Errorf("Prev before the start moved to %d", p.Page())
	}
}

func TestPagerSlice(t *testing.T) {
	rows := make([]int, 25)
	for i := range rows {
		rows[i] = i
	}
	p := NewPager(10)
	p.Sync(len(rows), LayoutCompact)
	p.SetPage(3)
	if got := Slice(p, rows); !slices.Equal(got, []int{20, 21, 22, 23, 24}) {
		t.Errorf("Slice = %v", got)
	}

	empty := NewPager(10)
	empty.Sync(0, LayoutCompact)
	if empty.Pages() != 0 || empty.Page() != 1 || len(Slice(empty, []int{})) != 0 {
		t.Errorf("empty pager: pages %d page %d", empty.Pages(), empty.Page())
	}
}
