package cache

// instrumentedCache records the metrics of one cache group around any backend.
// Evictions are counted by the OnEvict hook installed in New.
type instrumentedCache struct {
	Cache
	group string
}

func newInstrumentedCache(inner Cache, group string) *instrumentedCache {
	registerEntries(group, inner.Len)
	return &instrumentedCache{Cache: inner, group: group}
}

func (c *instrumentedCache) Get(key string) ([]byte, bool) {
	val, ok := c.Cache.Get(key)
	if ok {
		HitsTotal.WithLabelValues(c.group).Inc()
	} else {
		MissesTotal.WithLabelValues(c.group).Inc()
	}
	return val, ok
}

func (c *instrumentedCache) Set(key string, value []byte) {
	WritesTotal.WithLabelValues(c.group, "set").Inc()
	c.Cache.Set(key, value)
}

func (c *instrumentedCache) Delete(key string) {
	WritesTotal.WithLabelValues(c.group, "delete").Inc()
	c.Cache.Delete(key)
}

// Close drops the group's entries gauge and closes the backend.
func (c *instrumentedCache) Close() error {
	unregisterEntries(c.group)
	return c.Cache.Close()
}
