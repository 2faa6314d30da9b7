package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Every cache metric carries a "cache" label holding ProviderConfig.Group,
// e.g. "responses" for fetched pages and "videos" for resolved videos.
var (
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"cache"},
	)

	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"cache"},
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of entries evicted from the cache.",
		},
		[]string{"cache"},
	)

	// WritesTotal counts Set and Delete calls, op being "set" or "delete".
	WritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_writes_total",
			Help: "Total number of cache writes by operation.",
		},
		[]string{"cache", "op"},
	)
)

func init() {
	prometheus.MustRegister(HitsTotal, MissesTotal, EvictionsTotal, WritesTotal)
}

// entriesCollector reports the size of one cache group at scrape time, so
// entries that Redis expires on its own are never counted.
type entriesCollector struct {
	desc *prometheus.Desc
	size func() int
}

func (c *entriesCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *entriesCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.size()))
}

var (
	entriesMu         sync.Mutex
	entriesCollectors = make(map[string]*entriesCollector)
	// entriesReg is swapped by tests for an isolated registry.
	entriesReg prometheus.Registerer = prometheus.DefaultRegisterer
)

// registerEntries registers the cache_entries gauge of group, replacing the
// collector of a previous cache built for the same group.
func registerEntries(group string, size func() int) {
	c := &entriesCollector{
		desc: prometheus.NewDesc("cache_entries", "Current number of entries in the cache.", nil, prometheus.Labels{"cache": group}),
		size: size,
	}

	entriesMu.Lock()
	defer entriesMu.Unlock()
	if old, ok := entriesCollectors[group]; ok {
		entriesReg.Unregister(old)
	}
	entriesCollectors[group] = c
	_ = entriesReg.Register(c)
}

func unregisterEntries(group string) {
	entriesMu.Lock()
	defer entriesMu.Unlock()
	if c, ok := entriesCollectors[group]; ok {
		entriesReg.Unregister(c)
		delete(entriesCollectors, group)
	}
}
