package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/metrics"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/providers"
)

const (
	defaultConcurrency = 8
	defaultTimeout     = 45 * time.Second
)

// Options tunes an Orchestrator.
type Options struct {
	// Concurrency caps the providers searched at once.
	Concurrency int
	// Timeout bounds each provider's search.
	Timeout time.Duration
}

// Orchestrator runs global searches over a provider registry.
type Orchestrator struct {
	registry    *providers.Registry
	concurrency int
	timeout     time.Duration
}

// NewOrchestrator creates an orchestrator. Zero options take the defaults.
func NewOrchestrator(registry *providers.Registry, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Orchestrator{registry: registry, concurrency: opts.Concurrency, timeout: opts.Timeout}
}

// NewFromConfig creates an orchestrator tuned by the search section of cfg.
func NewFromConfig(registry *providers.Registry, cfg *config.Config) *Orchestrator {
	opts := Options{Concurrency: cfg.Search.Concurrency, Timeout: config.Duration(cfg.Search.Timeout, defaultTimeout)}
	return NewOrchestrator(registry, opts)
}

// Search starts a global search and returns its snapshots. The first snapshot
// has every matching provider loading; one more follows each completion, in
// completion order. The channel is closed once every provider finished or ctx
// is cancelled.
func (o *Orchestrator) Search(ctx context.Context, q Query) <-chan Snapshot {
	return o.search(ctx, uuid.NewString(), q)
}

func (o *Orchestrator) search(ctx context.Context, id string, q Query) <-chan Snapshot {
	if q.Page < 1 {
		q.Page = 1
	}
	entries := o.registry.ByLanguage(q.Language)
	// Room for every snapshot so the collector never blocks on a slow reader.
	out := make(chan Snapshot, len(entries)+1)
	results := make(chan ProviderResult)

	metrics.SearchesInFlight.Inc()
	go o.collect(ctx, id, q, entries, results, out)

	go func() {
		p := pool.New().WithMaxGoroutines(o.concurrency)
		for _, e := range entries {
			p.Go(func() {
				r := o.run(ctx, e.Provider, q)
				if ctx.Err() != nil {
					return
				}
				select {
				case results <- r:
				case <-ctx.Done():
				}
			})
		}
		p.Wait()
		close(results)
	}()
	return out
}

// collect owns the aggregate. It is the only goroutine reading or writing it.
func (o *Orchestrator) collect(ctx context.Context, id string, q Query, entries []providers.Entry, results <-chan ProviderResult, out chan<- Snapshot) {
	start := time.Now()
	logger := config.GetLogger()
	defer func() {
		metrics.SearchesInFlight.Dec()
		close(out)
	}()

	aggregate := make([]ProviderResult, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		aggregate[i] = ProviderResult{Provider: e.Provider.Name(), Language: e.Provider.Language(), State: StateLoading}
		index[e.Provider.Name()] = i
	}
	snapshot := func() Snapshot {
		s := Snapshot{ID: id, Query: q, Results: make([]ProviderResult, len(aggregate))}
		copy(s.Results, aggregate)
		sortResults(s.Results)
		s.Done = s.Pending() == 0
		return s
	}

	out <- snapshot()
	for range entries {
		select {
		case <-ctx.Done():
			logger.Debug().Str("search", id).Msg("Global search cancelled")
			return
		case r, ok := <-results:
			if !ok || ctx.Err() != nil {
				return
			}
			aggregate[index[r.Provider]] = r
			out <- snapshot()
		}
	}

	elapsed := time.Since(start)
	metrics.SearchDuration.Observe(elapsed.Seconds())
	logger.Info().
		Str("search", id).
		Str("query", q.Text).
		Int("providers", len(entries)).
		Dur("elapsed", elapsed).
		Msg("Global search finished")
}

// run searches one provider. A panicking adapter is reported as an error.
func (o *Orchestrator) run(ctx context.Context, p providers.Provider, q Query) (r ProviderResult) {
	r = ProviderResult{Provider: p.Name(), Language: p.Language()}
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.Items = nil
			r.Err = fmt.Errorf("%s search panicked: %v", p.Name(), rec)
		}
		r.Elapsed = time.Since(start)
		if r.Err != nil {
			r.State = StateError
			r.Error = r.Err.Error()
			logger := config.GetLogger()
			logger.Warn().Err(r.Err).Str("provider", r.Provider).Str("query", q.Text).Msg("Provider search failed")
			return
		}
		r.State = StateSuccess
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	items, err := p.Search(ctx, q.Text, q.Page)
	if err != nil {
		r.Err = err
		return r
	}
	r.Items = models.DedupeItems(items)
	return r
}
