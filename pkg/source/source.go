package source

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	pkgio "github.com/matzehuels/pivotview/pkg/io"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// Source loads payloads and distinct field values from a backend.
type Source interface {
	Fetch(ctx context.Context, q pivot.Query) (*pkgio.Payload, error)
	DistinctValues(ctx context.Context, field string) ([]string, error)
	// Name identifies the source in logs and cache keys.
	Name() string
}

var _ pivot.DistinctFetcher = Source(nil)

// textOf renders a raw value the way distinct values are compared.
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// distinct collects the values of field from the payload's flat rows and
// node labels, skipping grand-total markers.
func distinct(p *pkgio.Payload, field string) []string {
	seen := map[string]bool{}
	add := func(v any) {
		s := textOf(v)
		if s == "" || pivot.IsGrandTotalText(s) {
			return
		}
		seen[s] = true
	}
	for _, r := range p.Rows {
		if v, ok := r.Get(field); ok {
			add(v)
		}
	}
	want := pivot.CanonicalKey(field)
	for _, nodes := range [][]pivot.RawNode{p.RowNodes, p.ColumnNodes} {
		for _, n := range nodes {
			for _, l := range n.Labels {
				if pivot.CanonicalKey(l.Field) == want {
					add(l.Value)
				}
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
