// Package dedup coalesces concurrent identical requests so at most one
// fetch runs per distinct payload, with every waiter receiving the same
// result or the same error.
package dedup

import (
	"golang.org/x/sync/singleflight"

	"github.com/modelgate/modelgate/internal/reqcache"
)

// Deduplicator coalesces in-flight calls by content hash.
type Deduplicator struct {
	group singleflight.Group
}

// New creates a deduplicator.
func New() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate runs fetch at most once concurrently per payload. Callers
// arriving while a fetch for the same payload is in flight wait for it and
// share its outcome. The in-flight handle is removed when the fetch
// completes, success or failure, so later calls fetch anew. The returned
// bool reports whether the result was shared with other callers.
func (d *Deduplicator) Deduplicate(payload any, fetch func() (any, error)) (any, bool, error) {
	key, err := reqcache.Key(payload)
	if err != nil {
		return nil, false, err
	}
	v, err, shared := d.group.Do(key, fetch)
	return v, shared, err
}
