package pivot

func lbl(field string, v any) RawLabel { return RawLabel{Field: field, Value: v} }

func boolPtr(b bool) *bool { return &b }

// salesNodes is a two-level Region/City hierarchy with a grand-total root
// listed first and children listed before their parents.
func salesNodes() []RawNode {
	return []RawNode{
		{Key: "GT", Level: 0, Order: -1, Labels: []RawLabel{lbl("Region", "Grand Total")},
			Values: map[string]any{"Sales": 350.0, "Units": 35.0}},
		{Key: "E.NYC", ParentKey: "E", Level: 1, Order: 0,
			Labels: []RawLabel{lbl("Region", "East"), lbl("City", "NYC")},
			Values: map[string]any{"Sales": 100.0, "Units": 10.0}},
		{Key: "E.BOS", ParentKey: "E", Level: 1, Order: 1,
			Labels: []RawLabel{lbl("Region", "East"), lbl("City", "Boston")},
			Values: map[string]any{"Sales": 200.0, "Units": 20.0}},
		{Key: "W.LA", ParentKey: "W", Level: 1, Order: 0,
			Labels: []RawLabel{lbl("Region", "West"), lbl("City", "LA")},
			Values: map[string]any{"Sales": 50.0, "Units": 5.0}},
		{Key: "W", Level: 0, Order: 1, Labels: []RawLabel{lbl("Region", "West")},
			Values: map[string]any{"Sales": 50.0, "Units": 5.0}},
		{Key: "E", Level: 0, Order: 0, Labels: []RawLabel{lbl("Region", "East")},
			Values: map[string]any{"Sales": 300.0, "Units": 30.0}},
	}
}

var salesFields = []string{"Region", "City"}

func salesInput(layout Layout, subtotals Subtotals) MaterializeInput {
	return MaterializeInput{
		Roots:        BuildForest(salesNodes()).Roots,
		RowFields:    salesFields,
		ValueColumns: []string{"Sales", "Units"},
		Subtotals:    subtotals,
	}
}

func rowKeys(rows []FlatRow) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
		if r.IsTotal {
			keys[i] += "*"
		}
	}
	return keys
}
