package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// The HTTP server uses it to keep caches of different deployments apart when
// they share one Redis instance.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "pivotview:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PayloadKey generates a prefixed key for backend responses.
func (k *ScopedKeyer) PayloadKey(source string, opts PayloadKeyOpts) string {
	return k.prefix + k.inner.PayloadKey(source, opts)
}

// ViewKey generates a prefixed key for computed views.
func (k *ScopedKeyer) ViewKey(payloadHash, configHash string) string {
	return k.prefix + k.inner.ViewKey(payloadHash, configHash)
}

// ArtifactKey generates a prefixed key for rendered artifacts.
func (k *ScopedKeyer) ArtifactKey(viewHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(viewHash, opts)
}
