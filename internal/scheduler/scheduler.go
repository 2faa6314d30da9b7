// Package scheduler periodically re-discovers the base domain of providers
// whose domain rotates.
package scheduler

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/providers"
)

const defaultInterval = 6 * time.Hour

// Options tunes a Scheduler.
type Options struct {
	// Interval between two discovery rounds.
	Interval time.Duration
	// RunOnStart runs a round as soon as the scheduler starts.
	RunOnStart bool
}

// Scheduler runs domain discovery on a fixed interval.
type Scheduler struct {
	gocron      gocron.Scheduler
	discoverers map[string]providers.DomainDiscoverer
	logger      zerolog.Logger
	opts        Options

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler over discoverers. It does nothing until Start.
func New(discoverers map[string]providers.DomainDiscoverer, opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron:      gs,
		discoverers: discoverers,
		logger:      config.GetLogger().With().Str("component", "scheduler").Logger(),
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// NewFromConfig creates a scheduler using the discovery interval of cfg.
func NewFromConfig(registry *providers.Registry, cfg *config.Config) (*Scheduler, error) {
	return New(registry.Discoverers(), Options{
		Interval:   config.Duration(cfg.Discovery.Interval, defaultInterval),
		RunOnStart: true,
	})
}

// Start registers the discovery job and starts the scheduler.
func (s *Scheduler) Start() error {
	if len(s.discoverers) == 0 {
		s.logger.Info().Msg("No provider with a rotating domain, discovery disabled")
		return nil
	}

	jobOpts := []gocron.JobOption{
		gocron.WithName("domain-discovery"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.opts.RunOnStart {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	_, err := s.gocron.NewJob(
		gocron.DurationJob(s.opts.Interval),
		gocron.NewTask(func() {
			_ = s.RefreshAll(s.ctx)
		}),
		jobOpts...,
	)
	if err != nil {
		return fmt.Errorf("failed to create discovery job: %w", err)
	}

	s.logger.Info().
		Dur("interval", s.opts.Interval).
		Strs("providers", slices.Sorted(maps.Keys(s.discoverers))).
		Msg("Starting scheduler")
	s.gocron.Start()
	return nil
}

// Stop cancels a running round and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	s.cancel()
	return s.gocron.Shutdown()
}

// RefreshAll refreshes every provider concurrently and joins their errors.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	started := time.Now()
	p := pool.New().WithContext(ctx)
	for name, d := range s.discoverers {
		p.Go(func(ctx context.Context) error {
			if err := d.RefreshDomain(ctx); err != nil {
				s.logger.Warn().Err(err).Str("provider", name).Msg("Domain discovery failed")
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	err := p.Wait()

	s.mu.Lock()
	s.lastRun, s.lastErr = started, err
	s.mu.Unlock()

	s.logger.Info().
		Int("providers", len(s.discoverers)).
		Dur("duration", time.Since(started)).
		Bool("failed", err != nil).
		Msg("Domain discovery finished")
	return err
}

// LastRun returns when the last round started and how it ended.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}
