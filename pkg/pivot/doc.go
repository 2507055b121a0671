// Package pivot turns pre-aggregated pivot data into displayable grids.
//
// # Overview
//
// An aggregation backend answers a pivot query with three flat lists: row
// hierarchy nodes, column hierarchy nodes and flat pivot rows. Nodes reference
// their parent by key only. This package rebuilds the hierarchies and projects
// them into one of three layouts:
//
//   - [LayoutCompact]: one indented label column, collapsible
//   - [LayoutOutline]: one column per row field, one populated per row
//   - [LayoutTabular]: every row field repeated on every row
//
// Aggregation is never performed here. Subtotal and grand-total values are
// read from the nodes; the only arithmetic is percentage-of-total.
//
// # Pipeline
//
// The stages are pure functions and can be used on their own:
//
//	forest := pivot.BuildForest(rowNodes)              // hierarchy builder
//	cols := pivot.ProjectColumns(pivot.ColumnInput{...}) // header matrix + leaf columns
//	rows := pivot.Materialize(pivot.LayoutCompact, pivot.MaterializeInput{...})
//	totals := pivot.ComputeTotals(pivot.TotalsInput{...})
//
// [Engine] wires them together, memoizes each stage by the hash of its
// inputs and produces a paginated [View]:
//
//	eng := pivot.NewEngine()
//	view := eng.Compute(input, cfg)
//
// # Degenerate input
//
// The engine never fails. Empty hierarchies fall back to the flat rows,
// orphaned nodes become roots and are reported as [Diagnostic] entries,
// and missing or zero denominators simply produce no percentage.
//
// # Grand totals
//
// A node is a grand total when the backend tags it explicitly (grand_total)
// or, failing that, when one of its labels or its column name reads
// "Grand Total" ignoring case and punctuation. Grand-total nodes sort after
// their siblings, grand-total rows are moved to the end of every layout and
// grand-total columns to the end of the leaf columns.
package pivot
