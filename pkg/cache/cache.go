// Package cache provides the artifact and payload caches used by the pipeline.
//
// The pivot engine memoizes its derived stages in memory (see pivot.Engine);
// this package caches what is expensive to reproduce across processes:
// payloads fetched from the aggregation backend, computed views and rendered
// artifacts (text grids, JSON, XLSX workbooks, hierarchy diagrams).
//
// Backends:
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the HTTP server
//
// Keys are produced by a [Keyer] so that the CLI and the server agree on the
// key layout; [ScopedKeyer] adds a tenant prefix.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per entry kind.
const (
	// TTLPayload bounds how long a backend response is reused.
	// Aggregated data goes stale quickly, so this is short.
	TTLPayload = 10 * time.Minute

	// TTLView is the lifetime of a computed view (depends only on payload + config).
	TTLView = 24 * time.Hour

	// TTLArtifact is the lifetime of a rendered artifact.
	TTLArtifact = 24 * time.Hour
)

// Cache stores opaque byte slices under string keys.
type Cache interface {
	// Get returns the cached data and whether it was found.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// PayloadKeyOpts are the query parameters that identify a backend response.
type PayloadKeyOpts struct {
	RowFields    []string            `json:"rows,omitempty"`
	ColumnFields []string            `json:"columns,omitempty"`
	Values       []string            `json:"values,omitempty"`
	Sorts        []string            `json:"sorts,omitempty"`
	Filters      map[string][]string `json:"filters,omitempty"`
}

// ArtifactKeyOpts are the rendering parameters that identify an artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Locale   string `json:"locale,omitempty"`
	AllPages bool   `json:"all_pages,omitempty"`
}

// Keyer generates cache keys for every cached entry kind.
type Keyer interface {
	// PayloadKey identifies a backend response for a source and query.
	PayloadKey(source string, opts PayloadKeyOpts) string

	// ViewKey identifies a computed view from a payload hash and a config hash.
	ViewKey(payloadHash, configHash string) string

	// ArtifactKey identifies a rendered artifact of a view.
	ArtifactKey(viewHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces unscoped keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PayloadKey implements Keyer.
func (DefaultKeyer) PayloadKey(source string, opts PayloadKeyOpts) string {
	return hashKey("payload", source, opts)
}

// ViewKey implements Keyer.
func (DefaultKeyer) ViewKey(payloadHash, configHash string) string {
	return hashKey("view", payloadHash, configHash)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(viewHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", viewHash, opts)
}

var _ Keyer = DefaultKeyer{}
