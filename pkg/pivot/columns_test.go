package pivot

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValueFieldTitle(t *testing.T) {
	tests := []struct {
		vf   ValueField
		want string
	}{
		{ValueField{Field: "Sales", Aggregation: "sum"}, "Sum of Sales"},
		{ValueField{Field: "Sales"}, "Sum of Sales"},
		{ValueField{Field: "Orders", Aggregation: "count_distinct"}, "Count Distinct of Orders"},
		{ValueField{Field: "Price", Aggregation: "average", WeightColumn: "Units"}, "Weighted Average (by Units)"},
	}
	for _, tt := range tests {
		if got := tt.vf.Title(); got != tt.want {
			t.Errorf("%+v.Title() = %q, want %q", tt.vf, got, tt.want)
		}
	}
}

func TestProjectColumnsWithoutColumnFields(t *testing.T) {
	tests := []struct {
		name     string
		values   []ValueField
		dataKeys []string
		want     []string
	}{
		{
			name:     "exact field",
			values:   []ValueField{{Field: "Sales", Aggregation: "sum"}},
			dataKeys: []string{"Region", "Sales"},
			want:     []string{"Sales"},
		},
		{
			name:     "case-insensitive",
			values:   []ValueField{{Field: "sales", Aggregation: "sum"}},
			dataKeys: []string{"Region", "SALES"},
			want:     []string{"SALES"},
		},
		{
			name:     "aggregation prefix",
			values:   []ValueField{{Field: "Sales", Aggregation: "avg"}},
			dataKeys: []string{"Region", "avg_Sales"},
			want:     []string{"avg_Sales"},
		},
		{
			name:     "title spelling",
			values:   []ValueField{{Field: "Sales", Aggregation: "sum"}},
			dataKeys: []string{"Region", "Sum of Sales"},
			want:     []string{"Sum of Sales"},
		},
		{
			name:     "fallback to field",
			values:   []ValueField{{Field: "Profit"}},
			dataKeys: []string{"Region"},
			want:     []string{"Profit"},
		},
		{
			name:     "no value fields",
			dataKeys: []string{"Region", "Sales"},
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProjectColumns(ColumnInput{ValueFields: tt.values, DataKeys: tt.dataKeys})
			if len(p.Rows) != 0 {
				t.Errorf("Rows = %v, want empty header matrix", p.Rows)
			}
			if !slices.Equal(p.LeafColumns, tt.want) {
				t.Errorf("LeafColumns = %v, want %v", p.LeafColumns, tt.want)
			}
		})
	}
}

// yearNodes: Year (2023, 2024, Grand Total) x value slot (Sales) leaves,
// with the grand total listed first.
func yearNodes() []RawNode {
	return []RawNode{
		{Key: "gt", Order: 0, Column: "Grand Total", Labels: []RawLabel{lbl("Year", "Grand Total")}},
		{Key: "y23", Order: 0, Labels: []RawLabel{lbl("Year", 2023)}},
		{Key: "y23.s", ParentKey: "y23", Column: "2023|Sales",
			Labels: []RawLabel{lbl("Year", 2023), lbl(ValueFieldTag, "Sales")}},
		{Key: "y23.u", ParentKey: "y23", Order: 1, Column: "2023|Units",
			Labels: []RawLabel{lbl("Year", 2023), lbl(ValueFieldTag, "Units")}},
		{Key: "y24", Order: 1, Labels: []RawLabel{lbl("Year", 2024)}},
		{Key: "y24.s", ParentKey: "y24", Column: "2024|Sales",
			Labels: []RawLabel{lbl("Year", 2024), lbl(ValueFieldTag, "Sales")}},
	}
}

func TestProjectColumnsHeaderMatrix(t *testing.T) {
	p := ProjectColumns(ColumnInput{
		Nodes:        yearNodes(),
		ColumnFields: []string{"Year"},
		ValueFields: []ValueField{
			{Field: "Sales", Aggregation: "sum"},
			{Field: "Units", Aggregation: "average", WeightColumn: "Weight"},
		},
	})

	want := [][]HeaderCell{
		{
			{Key: "y23", Label: "2023", ColSpan: 2, RowSpan: 1, Level: 0, Align: AlignCenter},
			{Key: "y24", Label: "2024", ColSpan: 1, RowSpan: 1, Level: 0, Align: AlignCenter},
			{Key: "gt", Label: "Grand Total", Column: "Grand Total", ColSpan: 1, RowSpan: 2, Level: 0,
				Align: AlignRight, IsLeaf: true, IsGrandTotal: true},
		},
		{
			{Key: "y23.s", Label: "Sum of Sales", Column: "2023|Sales", ColSpan: 1, RowSpan: 1, Level: 1, Align: AlignRight, IsLeaf: true},
			{Key: "y23.u", Label: "Weighted Average (by Weight)", Column: "2023|Units", ColSpan: 1, RowSpan: 1, Level: 1, Align: AlignRight, IsLeaf: true},
			{Key: "y24.s", Label: "Sum of Sales", Column: "2024|Sales", ColSpan: 1, RowSpan: 1, Level: 1, Align: AlignRight, IsLeaf: true},
		},
	}
	if diff := cmp.Diff(want, p.Rows); diff != "" {
		t.Errorf("Rows mismatch (-want +got):\n%s", diff)
	}
	if want := []string{"2023|Sales", "2023|Units", "2024|Sales", "Grand Total"}; !slices.Equal(p.LeafColumns, want) {
		t.Errorf("LeafColumns = %v, want %v", p.LeafColumns, want)
	}
	if !p.IsGrandTotalColumn("Grand Total") || p.IsGrandTotalColumn("2023|Sales") {
		t.Error("IsGrandTotalColumn misclassified columns")
	}
}

func TestProjectColumnsGrandTotalLeavesLast(t *testing.T) {
	// A nested grand-total leaf sits structurally inside the first group.
	p := ProjectColumns(ColumnInput{
		ColumnFields: []string{"Region"},
		Nodes: []RawNode{
			{Key: "east", Order: 0, Labels: []RawLabel{lbl("Region", "East")}},
			{Key: "east.gt", ParentKey: "east", Order: 0, Column: "East|Grand Total", GrandTotal: boolPtr(true)},
			{Key: "east.s", ParentKey: "east", Order: 1, Column: "East|Sales"},
			{Key: "west", Order: 1, Labels: []RawLabel{lbl("Region", "West")}},
			{Key: "west.s", ParentKey: "west", Column: "West|Sales"},
		},
	})
	want := []string{"East|Sales", "West|Sales", "East|Grand Total"}
	if !slices.Equal(p.LeafColumns, want) {
		t.Errorf("LeafColumns = %v, want %v", p.LeafColumns, want)
	}
}

func TestProjectColumnsLeafFallsBackToKey(t *testing.T) {
	p := ProjectColumns(ColumnInput{
		ColumnFields: []string{"Year"},
		Nodes:        []RawNode{{Key: "Sales 2023", Labels: []RawLabel{lbl("Year", "2023")}}},
	})
	if !slices.Equal(p.LeafColumns, []string{"Sales 2023"}) {
		t.Errorf("LeafColumns = %v, want node key", p.LeafColumns)
	}
}

func TestProjectColumnsEmptyColumnNodes(t *testing.T) {
	p := ProjectColumns(ColumnInput{
		ColumnFields: []string{"Year"},
		ValueFields:  []ValueField{{Field: "Sales"}},
		DataKeys:     []string{"sales"},
	})
	if !slices.Equal(p.LeafColumns, []string{"sales"}) {
		t.Errorf("LeafColumns = %v, want value-field fallback", p.LeafColumns)
	}
}
