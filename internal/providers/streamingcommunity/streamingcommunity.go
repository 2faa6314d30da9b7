// Package streamingcommunity talks to the inertia JSON API of StreamingCommunity,
// an Italian catalog whose domain rotates.
//
// Id grammar:
//   - movies and shows: "<title id>-<slug>";
//   - seasons: "<title id>-<slug>/season-<n>";
//   - episodes: "<title id>-<slug>?episode_id=<episode id>".
package streamingcommunity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/extractors"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/providers"
)

const (
	// Name is the provider name.
	Name = "StreamingCommunity"
	// DefaultDomain is used when no domain override is configured.
	DefaultDomain = "streamingcommunityz.me"

	lang             = "it"
	maxSearchResults = 60
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	_ providers.Provider         = (*Provider)(nil)
	_ providers.DomainDiscoverer = (*Provider)(nil)
)

// Options configures the provider.
type Options struct {
	// Domain overrides DefaultDomain. A bare host or a URL is accepted.
	Domain string
	// UnsafeTLSFallback retries once without certificate verification after a TLS error.
	UnsafeTLSFallback bool
	// OnDomainChange is called with the new base URL after a domain switch.
	OnDomainChange func(baseURL string)
	Extractors     *extractors.Registry
}

// Provider implements providers.Provider for StreamingCommunity.
type Provider struct {
	state      *client.DomainState
	extractors *extractors.Registry
	logger     zerolog.Logger

	// versionMu serializes the lazy fetch of the inertia version.
	versionMu sync.Mutex
	mu        sync.RWMutex
	version   string
}

// New creates the provider.
func New(c *client.Client, opts Options) *Provider {
	domain := opts.Domain
	if client.NormalizeBaseURL(domain) == "" {
		domain = DefaultDomain
	}
	p := &Provider{
		extractors: opts.Extractors,
		logger:     config.GetLogger().With().Str("provider", Name).Logger(),
	}
	p.state = client.NewDomainState(Name, domain, c, client.DomainOptions{
		UnsafeTLSFallback: opts.UnsafeTLSFallback,
		RefreshOnDrift:    true,
		Discover: func(ctx context.Context, s client.Session) (string, error) {
			return s.Client.ResolveFinalURL(ctx, s.BaseURL)
		},
		OnChange: func(baseURL string) {
			p.resetVersion()
			if opts.OnDomainChange != nil {
				opts.OnDomainChange(baseURL)
			}
		},
	})
	return p
}

func (p *Provider) Name() string     { return Name }
func (p *Provider) Language() string { return lang }
func (p *Provider) BaseURL() string  { return p.state.Current().BaseURL }
func (p *Provider) Logo() string     { return p.state.Current().URL("apple-touch-icon.png") }

// RefreshDomain follows the current base URL through its redirects and adopts the final host.
func (p *Provider) RefreshDomain(ctx context.Context) error {
	_, err := p.state.Refresh(ctx)
	return err
}

func (p *Provider) cachedVersion() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

func (p *Provider) setVersion(v string) {
	if v == "" {
		return
	}
	p.mu.Lock()
	p.version = v
	p.mu.Unlock()
}

func (p *Provider) resetVersion() {
	p.mu.Lock()
	p.version = ""
	p.mu.Unlock()
}

// currentVersion returns the inertia version, reading it from the home page
// data on first use. Concurrent callers wait for a single fetch.
func (p *Provider) currentVersion(ctx context.Context) (string, error) {
	if v := p.cachedVersion(); v != "" {
		return v, nil
	}
	p.versionMu.Lock()
	defer p.versionMu.Unlock()
	if v := p.cachedVersion(); v != "" {
		return v, nil
	}

	var data page
	err := p.state.Do(ctx, func(ctx context.Context, s client.Session) error {
		doc, err := p.document(ctx, s, s.URL(lang))
		if err != nil {
			return err
		}
		raw, ok := doc.Find("#app").First().Attr("data-page")
		if !ok {
			return apperrors.NewParseError(s.URL(lang), "#app data-page")
		}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return fmt.Errorf("decode %s data-page: %w", s.URL(lang), err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if data.Version == "" {
		return "", apperrors.NewParseError(p.BaseURL(), "inertia version")
	}
	if strings.HasPrefix(data.Props.AppURL, "http") {
		p.state.Adopt(data.Props.AppURL)
	}
	p.setVersion(data.Version)
	return data.Version, nil
}

func (p *Provider) header(s client.Session) http.Header {
	return client.Header("User-Agent", userAgent, "Referer", s.BaseURL)
}

// inertia fetches an inertia page. A 409 answer means the version is stale:
// it is cleared and a *apperrors.StaleSessionError is returned.
func (p *Provider) inertia(ctx context.Context, path string, query url.Values, out any) error {
	version, err := p.currentVersion(ctx)
	if err != nil {
		return err
	}
	err = p.state.Do(ctx, func(ctx context.Context, s client.Session) error {
		header := p.header(s)
		header.Set("X-Inertia", "true")
		header.Set("X-Inertia-Version", version)
		return p.getJSON(ctx, s, withQuery(s.URL(path), query), header, out)
	})
	if err != nil {
		var se *apperrors.HTTPStatusError
		if errors.As(err, &se) && se.IsStale() {
			p.resetVersion()
			return &apperrors.StaleSessionError{Provider: Name, StatusCode: se.StatusCode, Err: err}
		}
		return err
	}
	return nil
}

func (p *Provider) inertiaPage(ctx context.Context, path string) (*page, error) {
	var res page
	if err := p.inertia(ctx, path, nil, &res); err != nil {
		return nil, err
	}
	if res.Version != "" && res.Version != p.cachedVersion() {
		p.setVersion(res.Version)
	}
	return &res, nil
}

// api calls a plain JSON endpoint.
func (p *Provider) api(ctx context.Context, path string, query url.Values, out any) error {
	return p.state.Do(ctx, func(ctx context.Context, s client.Session) error {
		return p.getJSON(ctx, s, withQuery(s.URL(path), query), p.header(s), out)
	})
}

// get fetches rawURL on the session and follows the site when a redirect moved
// it to another domain.
func (p *Provider) get(ctx context.Context, s client.Session, rawURL string, header http.Header) (*client.Response, error) {
	resp, err := s.Client.Get(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}
	p.state.Follow(s, resp.URL)
	return resp, nil
}

func (p *Provider) getJSON(ctx context.Context, s client.Session, rawURL string, header http.Header, out any) error {
	resp, err := p.get(ctx, s, rawURL, header)
	if err != nil {
		return err
	}
	return resp.JSON(out)
}

func (p *Provider) document(ctx context.Context, s client.Session, rawURL string) (*goquery.Document, error) {
	resp, err := p.get(ctx, s, rawURL, p.header(s))
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

func withQuery(rawURL string, query url.Values) string {
	if len(query) == 0 {
		return rawURL
	}
	return rawURL + "?" + query.Encode()
}

func (p *Provider) imageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return "https://cdn." + p.state.Current().Host() + "/images/" + filename
}

func (p *Provider) details(t title) models.ShowDetails {
	return models.ShowDetails{
		ID:       t.key(),
		Title:    t.Name,
		Released: t.LastAirDate,
		Rating:   t.rating(),
		Poster:   p.imageURL(t.image("poster")),
		Banner:   p.imageURL(t.image("background")),
	}
}

func (p *Provider) show(t title) models.Show {
	if t.Type == "movie" {
		return &models.Movie{ShowDetails: p.details(t)}
	}
	return &models.TvShow{ShowDetails: p.details(t)}
}

func (p *Provider) shows(titles []title) models.ShowList {
	out := make(models.ShowList, 0, len(titles))
	for _, t := range titles {
		out = append(out, p.show(t))
	}
	return models.DedupeItems(out)
}

// GetHome returns the top 10 as Featured followed by the trending and latest sliders.
func (p *Provider) GetHome(ctx context.Context) (models.Partial[[]models.Category], error) {
	var home models.Partial[[]models.Category]
	res, err := p.inertiaPage(ctx, lang)
	if err != nil {
		return home, err
	}
	sliders := res.Props.Sliders

	if len(sliders) > 2 && len(sliders[2].Titles) > 0 {
		home.Value = append(home.Value, models.Category{Name: models.CategoryFeatured, Items: toItems(p.shows(sliders[2].Titles))})
	} else {
		home.Drop(models.CategoryFeatured, apperrors.NewParseError(p.BaseURL(), "top 10 slider"))
	}
	for i := range 2 {
		if i >= len(sliders) || len(sliders[i].Titles) == 0 {
			home.Drop(fmt.Sprintf("slider %d", i), apperrors.NewParseError(p.BaseURL(), "slider"))
			continue
		}
		name := sliders[i].Label
		if name == "" {
			name = sliders[i].Name
		}
		home.Value = append(home.Value, models.Category{Name: name, Items: toItems(p.shows(sliders[i].Titles))})
	}
	return home, nil
}

// Search queries the search API. A blank query returns the genre list sorted by name.
func (p *Provider) Search(ctx context.Context, query string, page int) ([]models.Item, error) {
	if strings.TrimSpace(query) == "" {
		if page > 1 {
			return []models.Item{}, nil
		}
		return p.genres(ctx)
	}
	shows, err := p.search(ctx, query, page)
	if err != nil {
		return nil, err
	}
	return toItems(shows), nil
}

func (p *Provider) search(ctx context.Context, query string, page int) (models.ShowList, error) {
	var res searchResponse
	err := p.api(ctx, "api/search", url.Values{
		"q":      {query},
		"offset": {strconv.Itoa((max(page, 1) - 1) * maxSearchResults)},
		"lang":   {lang},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.CurrentPage == nil || res.LastPage == nil || *res.CurrentPage > *res.LastPage {
		return models.ShowList{}, nil
	}
	return p.shows(res.Data), nil
}

func (p *Provider) genres(ctx context.Context) ([]models.Item, error) {
	res, err := p.inertiaPage(ctx, lang)
	if err != nil {
		return nil, err
	}
	genres := make([]*models.Genre, 0, len(res.Props.Genres))
	for _, g := range res.Props.Genres {
		genres = append(genres, &models.Genre{ID: g.ID.String(), Name: g.Name})
	}
	slices.SortStableFunc(genres, func(a, b *models.Genre) int { return strings.Compare(a.Name, b.Name) })
	return toItems(genres), nil
}

func (p *Provider) archive(ctx context.Context, query url.Values) ([]title, error) {
	query.Set("lang", lang)
	var res archiveResponse
	if err := p.inertia(ctx, "api/archive", query, &res); err != nil {
		return nil, err
	}
	return res.Titles, nil
}

// GetMovies returns the movie archive. The archive is not paginated: pages
// after the first are empty.
func (p *Provider) GetMovies(ctx context.Context, page int) ([]*models.Movie, error) {
	if page > 1 {
		return []*models.Movie{}, nil
	}
	titles, err := p.archive(ctx, url.Values{"type": {"movie"}})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Movie, 0, len(titles))
	for _, t := range titles {
		out = append(out, &models.Movie{ShowDetails: p.details(t)})
	}
	return models.DedupeItems(out), nil
}

// GetTvShows returns the TV archive, first page only.
func (p *Provider) GetTvShows(ctx context.Context, page int) ([]*models.TvShow, error) {
	if page > 1 {
		return []*models.TvShow{}, nil
	}
	titles, err := p.archive(ctx, url.Values{"type": {"tv"}})
	if err != nil {
		return nil, err
	}
	out := make([]*models.TvShow, 0, len(titles))
	for _, t := range titles {
		out = append(out, &models.TvShow{ShowDetails: p.details(t)})
	}
	return models.DedupeItems(out), nil
}

func (p *Provider) titlePage(ctx context.Context, id string) (*page, models.ShowDetails, models.ShowList, error) {
	res, err := p.inertiaPage(ctx, lang+"/titles/"+id)
	if err != nil {
		return nil, models.ShowDetails{}, nil, err
	}
	t := res.Props.Title
	if t.Name == "" {
		return nil, models.ShowDetails{}, nil, apperrors.NewParseError(p.state.Current().URL(lang+"/titles/"+id), "title")
	}
	d := p.details(t)
	d.ID = id
	d.Overview = t.Plot
	d.Banner = ""
	for _, g := range t.Genres {
		d.Genres = append(d.Genres, models.Genre{ID: g.ID.String(), Name: g.Name})
	}
	for _, a := range t.MainActors {
		d.Cast = append(d.Cast, models.People{ID: a.Name, Name: a.Name})
	}
	for _, tr := range t.Trailers {
		if tr.YoutubeID != "" {
			d.Trailer = "https://youtube.com/watch?v=" + tr.YoutubeID
			break
		}
	}
	var recommendations models.ShowList
	if len(res.Props.Sliders) > 0 {
		recommendations = p.shows(res.Props.Sliders[0].Titles)
	}
	return res, d, recommendations, nil
}

func (p *Provider) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	_, d, recommendations, err := p.titlePage(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Movie{ShowDetails: d, Recommendations: recommendations}, nil
}

// GetTvShow returns the show with its seasons. Episodes are fetched per season.
func (p *Provider) GetTvShow(ctx context.Context, id string) (*models.TvShow, error) {
	res, d, recommendations, err := p.titlePage(ctx, id)
	if err != nil {
		return nil, err
	}
	show := &models.TvShow{ShowDetails: d, Recommendations: recommendations, Seasons: []models.Season{}}
	for i, s := range res.Props.Title.Seasons {
		show.Seasons = append(show.Seasons, models.Season{
			ID:     id + "/season-" + s.Number.String(),
			Number: number(s.Number, i),
			Title:  s.Name,
		})
	}
	return show, nil
}

// GetEpisodesBySeason fetches the season page "<title id>-<slug>/season-<n>".
func (p *Provider) GetEpisodesBySeason(ctx context.Context, seasonID string) ([]*models.Episode, error) {
	showID, seasonNumber, ok := strings.Cut(seasonID, "/season-")
	if !ok || showID == "" {
		return nil, apperrors.NewParseError(seasonID, "season number")
	}
	res, err := p.inertiaPage(ctx, lang+"/titles/"+seasonID)
	if err != nil {
		return nil, err
	}
	if res.Props.LoadedSeason == nil {
		return nil, apperrors.NewParseError(p.state.Current().URL(lang+"/titles/"+seasonID), "loaded season")
	}
	seasonRef := &models.SeasonRef{ID: seasonID, Number: number(json.Number(seasonNumber), -1)}
	episodes := make([]*models.Episode, 0, len(res.Props.LoadedSeason.Episodes))
	for i, ep := range res.Props.LoadedSeason.Episodes {
		ref := *seasonRef
		episodes = append(episodes, &models.Episode{
			ID:       showID + "?episode_id=" + ep.ID.String(),
			Number:   number(ep.Number, i),
			Title:    ep.Name,
			Overview: ep.Plot,
			Poster:   p.imageURL(firstImage(ep.Images, "cover")),
			Show:     &models.ShowRef{ID: showID},
			Season:   &ref,
		})
	}
	return episodes, nil
}

func firstImage(images []image, kind string) string {
	return title{Images: images}.image(kind)
}

// GetGenre lists the archive filtered by genre id.
func (p *Provider) GetGenre(ctx context.Context, id string, page int) (*models.Genre, error) {
	titles, err := p.archive(ctx, url.Values{
		"genre[]": {id},
		"offset":  {strconv.Itoa((max(page, 1) - 1) * maxSearchResults)},
	})
	if err != nil {
		return nil, err
	}
	return &models.Genre{ID: id, Shows: p.shows(titles)}, nil
}

// GetPeople searches titles by the person name, which is the people id.
func (p *Provider) GetPeople(ctx context.Context, id string, page int) (*models.People, error) {
	shows, err := p.search(ctx, id, page)
	if err != nil {
		return nil, err
	}
	return &models.People{ID: id, Name: id, Filmography: shows}, nil
}

// GetServers reads the Vixcloud player iframe of a movie or episode.
func (p *Provider) GetServers(ctx context.Context, id string, vt models.VideoType) ([]models.Server, error) {
	titleID, _, _ := strings.Cut(id, "-")
	titleID, _, _ = strings.Cut(titleID, "?")
	if titleID == "" {
		return nil, apperrors.NewParseError(id, "title id")
	}
	path := lang + "/iframe/" + titleID
	if _, isEpisode := vt.(models.EpisodeVideo); isEpisode {
		_, episodeID, ok := strings.Cut(id, "episode_id=")
		if !ok || episodeID == "" {
			return nil, apperrors.NewParseError(id, "episode id")
		}
		path += "?" + url.Values{"episode_id": {episodeID}, "next_episode": {"1"}}.Encode()
	}

	var src string
	err := p.state.Do(ctx, func(ctx context.Context, s client.Session) error {
		doc, err := p.document(ctx, s, s.URL(path))
		if err != nil {
			return err
		}
		src = iframeSource(doc)
		if src == "" {
			return apperrors.NewParseError(s.URL(path), "player iframe")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []models.Server{{ID: id, Name: "Vixcloud", Src: src}}, nil
}

func iframeSource(doc *goquery.Document) string {
	src, _ := doc.Find("iframe").First().Attr("src")
	return strings.TrimSpace(src)
}

// GetVideo hands the Vixcloud embed to the extractor registry.
func (p *Provider) GetVideo(ctx context.Context, server models.Server) (*models.Video, error) {
	if p.extractors == nil {
		return nil, errors.New("no extractor registry configured")
	}
	return p.extractors.Extract(ctx, server.Src, extractors.Options{Referer: p.BaseURL(), Server: server})
}

func toItems[T models.Item](values []T) []models.Item {
	out := make([]models.Item, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
