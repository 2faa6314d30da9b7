package cache

import (
	"encoding/json"
)

// Typed stores values of T as JSON in an underlying Cache.
// Entries that no longer decode are treated as misses and removed.
type Typed[T any] struct {
	inner Cache
}

// NewTyped wraps c.
func NewTyped[T any](c Cache) *Typed[T] {
	return &Typed[T]{inner: c}
}

// Get returns the decoded value for key.
func (t *Typed[T]) Get(key string) (T, bool) {
	var v T
	raw, ok := t.inner.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.inner.Delete(key)
		var zero T
		return zero, false
	}
	return v, true
}

// Set encodes v and stores it under key. Values that cannot be encoded are not cached.
func (t *Typed[T]) Set(key string, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	t.inner.Set(key, raw)
}

// Delete removes key.
func (t *Typed[T]) Delete(key string) { t.inner.Delete(key) }

// Close closes the underlying cache.
func (t *Typed[T]) Close() error { return t.inner.Close() }
