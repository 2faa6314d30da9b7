package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/metrics"
	"github.com/Belphemur/StreamScraper/internal/models"
)

// instrumented decorates a Provider with error tagging, metrics and logging.
type instrumented struct {
	Provider
	logger zerolog.Logger
}

// Instrument wraps p so that every error is a *apperrors.ProviderError naming
// the provider and the operation, and every call is counted and timed.
func Instrument(p Provider) Provider {
	if p == nil {
		return nil
	}
	if _, ok := p.(*instrumented); ok {
		return p
	}
	return &instrumented{Provider: p, logger: config.GetLogger().With().Str("provider", p.Name()).Logger()}
}

// Unwrap returns the decorated provider.
func (i *instrumented) Unwrap() Provider {
	return i.Provider
}

// AsDiscoverer returns the DomainDiscoverer behind p. An instrumented provider
// is returned as is so refreshes are observed too.
func AsDiscoverer(p Provider) (DomainDiscoverer, bool) {
	if i, ok := p.(*instrumented); ok {
		if _, ok := AsDiscoverer(i.Provider); !ok {
			return nil, false
		}
		return i, true
	}
	d, ok := p.(DomainDiscoverer)
	return d, ok
}

// RefreshDomain forwards to the decorated provider when it discovers domains.
func (i *instrumented) RefreshDomain(ctx context.Context) error {
	d, ok := AsDiscoverer(i.Provider)
	if !ok {
		return nil
	}
	return observe(i, "refresh_domain", func() error { return d.RefreshDomain(ctx) })
}

func observe(i *instrumented, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	name := i.Provider.Name()
	metrics.ProviderCallDuration.WithLabelValues(name, op).Observe(elapsed.Seconds())
	metrics.ProviderCallsTotal.WithLabelValues(name, op, metrics.Status(err)).Inc()

	if err != nil {
		i.logger.Warn().Err(err).Str("op", op).Dur("elapsed", elapsed).Msg("Provider call failed")
		return apperrors.NewProviderError(name, op, err)
	}
	i.logger.Debug().Str("op", op).Dur("elapsed", elapsed).Msg("Provider call completed")
	return nil
}

func call[T any](i *instrumented, op string, fn func() (T, error)) (T, error) {
	var out T
	err := observe(i, op, func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (i *instrumented) GetHome(ctx context.Context) (models.Partial[[]models.Category], error) {
	home, err := call(i, "get_home", func() (models.Partial[[]models.Category], error) {
		return i.Provider.GetHome(ctx)
	})
	for _, d := range home.Dropped {
		i.logger.Warn().Err(d.Err).Str("section", d.Section).Msg("Home section dropped")
	}
	return home, err
}

func (i *instrumented) Search(ctx context.Context, query string, page int) ([]models.Item, error) {
	return call(i, "search", func() ([]models.Item, error) { return i.Provider.Search(ctx, query, page) })
}

func (i *instrumented) GetMovies(ctx context.Context, page int) ([]*models.Movie, error) {
	return call(i, "get_movies", func() ([]*models.Movie, error) { return i.Provider.GetMovies(ctx, page) })
}

func (i *instrumented) GetTvShows(ctx context.Context, page int) ([]*models.TvShow, error) {
	return call(i, "get_tv_shows", func() ([]*models.TvShow, error) { return i.Provider.GetTvShows(ctx, page) })
}

func (i *instrumented) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	return call(i, "get_movie", func() (*models.Movie, error) { return i.Provider.GetMovie(ctx, id) })
}

func (i *instrumented) GetTvShow(ctx context.Context, id string) (*models.TvShow, error) {
	return call(i, "get_tv_show", func() (*models.TvShow, error) { return i.Provider.GetTvShow(ctx, id) })
}

func (i *instrumented) GetEpisodesBySeason(ctx context.Context, seasonID string) ([]*models.Episode, error) {
	return call(i, "get_episodes_by_season", func() ([]*models.Episode, error) {
		return i.Provider.GetEpisodesBySeason(ctx, seasonID)
	})
}

func (i *instrumented) GetGenre(ctx context.Context, id string, page int) (*models.Genre, error) {
	return call(i, "get_genre", func() (*models.Genre, error) { return i.Provider.GetGenre(ctx, id, page) })
}

func (i *instrumented) GetPeople(ctx context.Context, id string, page int) (*models.People, error) {
	return call(i, "get_people", func() (*models.People, error) { return i.Provider.GetPeople(ctx, id, page) })
}

func (i *instrumented) GetServers(ctx context.Context, id string, vt models.VideoType) ([]models.Server, error) {
	return call(i, "get_servers", func() ([]models.Server, error) { return i.Provider.GetServers(ctx, id, vt) })
}

func (i *instrumented) GetVideo(ctx context.Context, server models.Server) (*models.Video, error) {
	return call(i, "get_video", func() (*models.Video, error) { return i.Provider.GetVideo(ctx, server) })
}
