package cache

// EvictCallback is called when an entry is evicted from the cache.
// Redis reports evicted keys with a nil value.
type EvictCallback func(key string, value []byte)

// Logger receives error reports from cache backends.
type Logger interface {
	Error(msg string, err error)
}

// Cache is a byte-oriented key/value store with LRU and TTL semantics.
// Implementations are safe for concurrent use.
type Cache interface {
	// Get retrieves a value by key. Returns the value and true if found, or nil and false if not.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key. If the key already exists, it is overwritten.
	Set(key string, value []byte)

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key string)

	// Contains checks whether a key exists in the cache without affecting LRU ordering.
	Contains(key string) bool

	// Len returns the number of entries currently in the cache.
	Len() int

	// Close releases any resources held by the cache (e.g., network connections).
	Close() error
}
