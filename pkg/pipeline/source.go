package pipeline

import (
	"github.com/matzehuels/pivotview/pkg/source"
)

// OpenSource returns the payload source named by opts.Source: an HTTP
// backend for http(s) URLs and a payload file otherwise.
func OpenSource(opts Options) (source.Source, error) {
	if IsRemote(opts.Source) {
		return source.NewHTTPSource(opts.Source, source.HTTPOptions{
			Headers: opts.Headers,
			Timeout: opts.Timeout,
			Logger:  opts.Logger,
		})
	}
	return source.NewFileSource(opts.Source), nil
}

// isLocal reports whether src reads from disk.
func isLocal(src source.Source) bool {
	l, ok := src.(interface{ Local() bool })
	return ok && l.Local()
}
