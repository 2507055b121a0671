// Package session persists interactive viewer state between runs.
//
// A [Session] records what a user changed while browsing a report: the
// layout, subtotal placement, percentage mode, collapsed rows, sort and
// filter directives and the page. The viewer saves it on exit and restores
// it the next time the same report is opened.
//
// Sessions are keyed by [ID], a digest of the report's source and field
// lists, so changing the pivot shape starts from a clean state. Stored
// sessions expire after [DefaultTTL].
//
// # Usage
//
//	store, err := session.NewFileStore("")  // ~/.config/pivotview/sessions/
//	if err != nil {
//	    return err
//	}
//	id := session.ID(opts.Source, opts.Fields)
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess != nil {
//	    sess.Apply(&opts)
//	}
package session

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/matzehuels/pivotview/pkg/cache"
	"github.com/matzehuels/pivotview/pkg/pipeline"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// DefaultTTL is how long a saved session is kept.
const DefaultTTL = 30 * 24 * time.Hour

// Session is the saved state of one report in the viewer.
type Session struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Layout    pivot.Layout           `json:"layout"`
	Subtotals pivot.Subtotals        `json:"subtotals"`
	Percent   pivot.PercentMode      `json:"percent"`
	Collapsed []string               `json:"collapsed,omitempty"`
	Metadata  pivot.MetadataSnapshot `json:"metadata"`
	Page      int                    `json:"page"`
	UpdatedAt time.Time              `json:"updated_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// New captures cfg as the session id. The session expires after ttl.
func New(id, source string, cfg pivot.Config, page int, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Source:    source,
		Layout:    cfg.Layout,
		Subtotals: cfg.Subtotals,
		Percent:   cfg.Percent,
		Collapsed: cfg.Collapsed.Sorted(),
		Metadata:  cfg.Metadata,
		Page:      page,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Apply restores the saved state onto opts. Call it before the options are
// validated. Empty saved modes keep the configured ones.
func (s *Session) Apply(opts *pipeline.Options) {
	if s.Layout != "" {
		opts.Layout = string(s.Layout)
	}
	if s.Subtotals != "" {
		opts.Subtotals = string(s.Subtotals)
	}
	if s.Percent != "" {
		opts.Percent = string(s.Percent)
	}
	opts.Collapsed = slices.Clone(s.Collapsed)
	opts.Sorts = slices.Clone(s.Metadata.Sorts)
	if len(s.Metadata.Filters) > 0 {
		opts.Filters = make(map[string][]string, len(s.Metadata.Filters))
		for _, f := range s.Metadata.Filters {
			opts.Filters[f.Field] = slices.Clone(f.Values)
		}
	}
	opts.Page = s.Page
}

// ID identifies the report shape a session belongs to.
func ID(source string, fields pivot.Fields) string {
	data, _ := json.Marshal(struct {
		Source string       `json:"source"`
		Fields pivot.Fields `json:"fields"`
	}{source, fields})
	return cache.Hash(data)[:32]
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions and reports how many were removed.
	Cleanup(ctx context.Context) (int, error)
}
