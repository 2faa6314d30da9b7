// Package providers defines the contract every content source implements and
// the registry the rest of the application uses to reach them.
package providers

import (
	"context"

	"github.com/Belphemur/StreamScraper/internal/models"
)

// Provider is a site adapter. Every method fetches from the remote site and
// returns fresh, unmerged catalog entities.
//
// Ids are opaque strings whose grammar is documented by each adapter. An id
// returned by one method is only meaningful to the same provider.
type Provider interface {
	Name() string
	BaseURL() string
	Logo() string
	Language() string

	// GetHome returns the home sections. Sections that fail to parse are
	// reported in Dropped instead of failing the call.
	GetHome(ctx context.Context) (models.Partial[[]models.Category], error)
	// Search returns matching shows. Some providers answer a blank query with
	// their genre list, sorted by name.
	Search(ctx context.Context, query string, page int) ([]models.Item, error)
	GetMovies(ctx context.Context, page int) ([]*models.Movie, error)
	GetTvShows(ctx context.Context, page int) ([]*models.TvShow, error)
	GetMovie(ctx context.Context, id string) (*models.Movie, error)
	// GetTvShow returns the show with its seasons. Season episodes may be
	// empty until GetEpisodesBySeason is called.
	GetTvShow(ctx context.Context, id string) (*models.TvShow, error)
	GetEpisodesBySeason(ctx context.Context, seasonID string) ([]*models.Episode, error)
	GetGenre(ctx context.Context, id string, page int) (*models.Genre, error)
	GetPeople(ctx context.Context, id string, page int) (*models.People, error)
	GetServers(ctx context.Context, id string, vt models.VideoType) ([]models.Server, error)
	GetVideo(ctx context.Context, server models.Server) (*models.Video, error)
}

// DomainDiscoverer is implemented by providers whose base domain rotates.
type DomainDiscoverer interface {
	// RefreshDomain follows the provider's entry point through redirects and
	// adopts the final host.
	RefreshDomain(ctx context.Context) error
}

// ShowsOf keeps the movies and TV shows of items, in order.
func ShowsOf(items []models.Item) models.ShowList {
	out := make(models.ShowList, 0, len(items))
	for _, item := range items {
		if show, ok := item.(models.Show); ok {
			out = append(out, show)
		}
	}
	return out
}
