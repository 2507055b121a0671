package source

import (
	"context"

	"github.com/matzehuels/pivotview/pkg/errors"
	pkgio "github.com/matzehuels/pivotview/pkg/io"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// FileSource replays a payload stored as JSON on disk. The file is read on
// every call, so edits show up without restarting.
type FileSource struct {
	path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return "file:" + s.path }

// Local reports that the payload is already on disk, so callers need not
// cache it.
func (s *FileSource) Local() bool { return true }

// Fetch implements Source. The stored payload is the backend's answer to
// whatever query produced it, so q is not applied.
func (s *FileSource) Fetch(ctx context.Context, _ pivot.Query) (*pkgio.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pkgio.ImportPayload(s.path)
}

// DistinctValues implements Source.
func (s *FileSource) DistinctValues(ctx context.Context, field string) ([]string, error) {
	if err := errors.ValidateFieldName(field); err != nil {
		return nil, err
	}
	p, err := s.Fetch(ctx, pivot.Query{})
	if err != nil {
		return nil, err
	}
	return distinct(p, field), nil
}
