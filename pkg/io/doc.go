// Package io reads and writes backend payloads as JSON.
//
// # Overview
//
// A payload is what an aggregation backend returns for one pivot query:
// the row hierarchy and column hierarchy as flat node lists, plus the flat
// result rows. The format is the one the HTTP source receives and the one
// the file source reads from disk, so a response can be saved with
// [ExportPayload] and replayed later with [ImportPayload].
//
// # JSON Format
//
//	{
//	  "row_nodes": [
//	    {"key": "E", "level": 0, "order": 0,
//	     "labels": [{"field": "Region", "value": "East"}],
//	     "values": {"Sales": 300}},
//	    {"key": "E.NYC", "parent_key": "E", "level": 1, "order": 0,
//	     "labels": [{"field": "Region", "value": "East"}, {"field": "City", "value": "NYC"}],
//	     "values": {"Sales": 100}}
//	  ],
//	  "column_nodes": [],
//	  "rows": [
//	    {"Region": "East", "City": "NYC", "Sales": 100}
//	  ]
//	}
//
// All three arrays are optional. Node fields follow [pivot.RawNode]; a node
// may carry an explicit "grand_total" flag, which wins over label matching.
//
// # Data Keys
//
// Go maps do not keep insertion order, so the reader records the column
// names of "rows" in the order they first appear. They are available as
// [Payload.DataKeys] and drive the default column order of flat renderings.
// An explicit "data_keys" array in the document takes precedence.
//
// [pivot.RawNode]: github.com/matzehuels/pivotview/pkg/pivot.RawNode
package io
