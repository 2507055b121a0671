// Package pkg provides the core libraries for pivotview.
//
// # Overview
//
// pivotview turns the hierarchical result of a pivot query into a readable
// grid. An aggregation backend (or a payload file) supplies row and column
// hierarchies as flat node lists plus the flat source rows; pivotview
// rebuilds the trees, lays them out and formats every cell. It never
// aggregates on its own: subtotals and grand totals come from the backend.
//
// # Architecture
//
// The typical data flow:
//
//	Payload file / aggregation backend
//	         ↓
//	    [source] (fetch the payload, list distinct values)
//	         ↓
//	    [pivot] (forest, column projection, layouts, totals, formatting)
//	         ↓
//	    [render/sink], [render/nodelink] (text, JSON, XLSX, DOT, SVG)
//
// [pipeline] wires the three stages together with caching and is shared by
// the CLI and the HTTP API.
//
// # Quick Start
//
//	opts, err := pipeline.LoadOptions("report.toml")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	os.Stdout.Write(result.Artifacts[pipeline.FormatText])
//
// # Main Packages
//
// ## Engine
//
// [pivot] - Hierarchy building, column projection, the compact, outline and
// tabular layouts, percentages, highlights, sort and filter metadata and
// paging. Pure and deterministic; degenerate input degrades to a flat view.
//
// ## I/O
//
// [io] - The backend payload format and its JSON codec.
//
// [source] - Payload sources: files and HTTP aggregation backends.
//
// [render/sink] - Grid output: terminal text, JSON and XLSX.
//
// [render/nodelink] - Hierarchy diagrams using Graphviz.
//
// ## Infrastructure
//
// [pipeline] - Fetch, compute and render with per-stage caching.
//
// [cache] - Null, file and Redis caches and the cache key scheme.
//
// [session] - Saved viewer state between interactive sessions.
//
// [httputil] - Retry helpers for backend requests.
//
// [observability] - Hooks for fetch, engine stage, cache and HTTP events.
//
// [errors] - Structured error codes shared by the CLI and the API.
//
// [buildinfo] - Version information stamped at build time.
//
// # Testing
//
//	go test ./...
//
// [pivot]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/pivot
// [io]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/io
// [source]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/source
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/render/sink
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/session
// [httputil]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/pivotview/pkg/buildinfo
package pkg
