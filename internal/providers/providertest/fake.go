// Package providertest provides a configurable in-memory provider for tests.
package providertest

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/providers"
)

var (
	_ providers.Provider         = (*Fake)(nil)
	_ providers.DomainDiscoverer = (*Discoverer)(nil)
)

// Fake is a provider whose behaviour is set per test. Unset funcs return empty
// results, or ErrNotFound for single-item lookups.
type Fake struct {
	ProviderName string
	Lang         string

	HomeFunc    func(ctx context.Context) (models.Partial[[]models.Category], error)
	SearchFunc  func(ctx context.Context, query string, page int) ([]models.Item, error)
	MovieFunc   func(ctx context.Context, id string) (*models.Movie, error)
	TvShowFunc  func(ctx context.Context, id string) (*models.TvShow, error)
	ServersFunc func(ctx context.Context, id string, vt models.VideoType) ([]models.Server, error)
	VideoFunc   func(ctx context.Context, server models.Server) (*models.Video, error)

	SearchCalls atomic.Int32
	VideoCalls  atomic.Int32
}

// New returns a Fake named name serving language.
func New(name, language string) *Fake {
	return &Fake{ProviderName: name, Lang: language}
}

func (f *Fake) Name() string     { return f.ProviderName }
func (f *Fake) Language() string { return f.Lang }
func (f *Fake) Logo() string     { return "" }
func (f *Fake) BaseURL() string {
	return "https://" + strings.ToLower(f.ProviderName) + ".test/"
}

func (f *Fake) GetHome(ctx context.Context) (models.Partial[[]models.Category], error) {
	if f.HomeFunc != nil {
		return f.HomeFunc(ctx)
	}
	return models.Partial[[]models.Category]{Value: []models.Category{}}, nil
}

func (f *Fake) Search(ctx context.Context, query string, page int) ([]models.Item, error) {
	f.SearchCalls.Add(1)
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, query, page)
	}
	return []models.Item{}, nil
}

func (f *Fake) GetMovies(context.Context, int) ([]*models.Movie, error) {
	return []*models.Movie{}, nil
}

func (f *Fake) GetTvShows(context.Context, int) ([]*models.TvShow, error) {
	return []*models.TvShow{}, nil
}

func (f *Fake) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	if f.MovieFunc != nil {
		return f.MovieFunc(ctx, id)
	}
	return nil, apperrors.NewNotFoundError("movie", id)
}

func (f *Fake) GetTvShow(ctx context.Context, id string) (*models.TvShow, error) {
	if f.TvShowFunc != nil {
		return f.TvShowFunc(ctx, id)
	}
	return nil, apperrors.NewNotFoundError("tv show", id)
}

func (f *Fake) GetEpisodesBySeason(context.Context, string) ([]*models.Episode, error) {
	return []*models.Episode{}, nil
}

func (f *Fake) GetGenre(_ context.Context, id string, _ int) (*models.Genre, error) {
	return &models.Genre{ID: id, Name: id}, nil
}

func (f *Fake) GetPeople(_ context.Context, id string, _ int) (*models.People, error) {
	return &models.People{ID: id, Name: id}, nil
}

func (f *Fake) GetServers(ctx context.Context, id string, vt models.VideoType) ([]models.Server, error) {
	if f.ServersFunc != nil {
		return f.ServersFunc(ctx, id, vt)
	}
	return []models.Server{}, nil
}

func (f *Fake) GetVideo(ctx context.Context, server models.Server) (*models.Video, error) {
	f.VideoCalls.Add(1)
	if f.VideoFunc != nil {
		return f.VideoFunc(ctx, server)
	}
	return &models.Video{Source: server.Src, Type: models.MimeHLS}, nil
}

// Discoverer is a Fake that also refreshes its domain.
type Discoverer struct {
	*Fake
	RefreshFunc  func(ctx context.Context) error
	RefreshCalls atomic.Int32
}

func (d *Discoverer) RefreshDomain(ctx context.Context) error {
	d.RefreshCalls.Add(1)
	if d.RefreshFunc != nil {
		return d.RefreshFunc(ctx)
	}
	return nil
}
