// Package builtin assembles the provider registry shipped with the application.
package builtin

import (
	"context"

	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/extractors"
	"github.com/Belphemur/StreamScraper/internal/providers"
	"github.com/Belphemur/StreamScraper/internal/providers/altadefinizione01"
	"github.com/Belphemur/StreamScraper/internal/providers/filmpalast"
	"github.com/Belphemur/StreamScraper/internal/providers/streamingcommunity"
	"github.com/Belphemur/StreamScraper/internal/ranking"
)

// DomainStore persists the domain a provider was last seen on.
type DomainStore interface {
	DomainOverride(ctx context.Context, provider string) (string, error)
	SetDomainOverride(ctx context.Context, provider, domain string) error
}

// NewRegistry creates every built-in provider, instrumented, in display order.
// Disabled providers are skipped. A domain persisted in store wins over the
// configured one, and discovered domains are written back to store. store may be nil.
func NewRegistry(ctx context.Context, cfg *config.Config, c *client.Client, ex *extractors.Registry, store DomainStore) *providers.Registry {
	logger := config.GetLogger()

	domain := func(name string) string {
		if store != nil {
			d, err := store.DomainOverride(ctx, name)
			if err != nil {
				logger.Warn().Err(err).Str("provider", name).Msg("Cannot read persisted domain")
			} else if d != "" {
				return d
			}
		}
		return cfg.ProviderSettings(name).Domain
	}

	var entries []providers.Entry
	add := func(name string, movies, tvShows bool, build func(config.ProviderConfig) providers.Provider) {
		settings := cfg.ProviderSettings(name)
		if settings.Disabled {
			logger.Info().Str("provider", name).Msg("Provider disabled")
			return
		}
		entries = append(entries, providers.Entry{
			Provider:        providers.Instrument(build(settings)),
			SupportsMovies:  movies,
			SupportsTvShows: tvShows,
		})
	}

	add(streamingcommunity.Name, true, true, func(settings config.ProviderConfig) providers.Provider {
		unsafe := true
		if settings.UnsafeTLSFallback != nil {
			unsafe = *settings.UnsafeTLSFallback
		}
		return streamingcommunity.New(c, streamingcommunity.Options{
			Domain:            domain(streamingcommunity.Name),
			UnsafeTLSFallback: unsafe,
			Extractors:        ex,
			OnDomainChange: func(baseURL string) {
				if store == nil {
					return
				}
				// Called from request paths; the write must outlive the request context.
				if err := store.SetDomainOverride(context.Background(), streamingcommunity.Name, baseURL); err != nil {
					logger.Warn().Err(err).Str("provider", streamingcommunity.Name).Msg("Cannot persist discovered domain")
				}
			},
		})
	})

	add(altadefinizione01.Name, true, true, func(settings config.ProviderConfig) providers.Provider {
		policy := ranking.FromConfig(settings.Ranking)
		return altadefinizione01.New(c, altadefinizione01.Options{
			BaseURL:    domain(altadefinizione01.Name),
			Extractors: ex,
			Ranking:    &policy,
		})
	})

	add(filmpalast.Name, true, true, func(config.ProviderConfig) providers.Provider {
		return filmpalast.New(c, domain(filmpalast.Name), ex)
	})

	return providers.NewRegistry(entries...)
}
