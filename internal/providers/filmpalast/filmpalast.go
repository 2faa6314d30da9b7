// Package filmpalast scrapes filmpalast.to, a German catalog of movies and series.
//
// Id grammar:
//   - movie, show and episode ids are the slug of their "stream/<slug>" page;
//   - season ids are "<show slug>_<season number>", seasons being numbered by
//     their position on the show page.
package filmpalast

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/extractors"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/parser"
	"github.com/Belphemur/StreamScraper/internal/providers"
)

// Name is the provider name.
const Name = "FilmPalast"

// DefaultBaseURL is used when no domain override is configured.
const DefaultBaseURL = "https://filmpalast.to/"

var (
	episodeTitleRe = regexp.MustCompile(`S\d+E\d+`)
	yearRe         = regexp.MustCompile(`^\d{4}$`)
	qualities      = []string{"HD", "SD", "CAM", "TS", "HDRip"}
	// vlcOnlyHosts need an external player.
	vlcOnlyHosts = []string{"bigwarp", "vinovo"}
)

var _ providers.Provider = (*Provider)(nil)

// Provider implements providers.Provider for FilmPalast.
type Provider struct {
	client     *client.Client
	baseURL    string
	extractors *extractors.Registry
	logger     zerolog.Logger
}

// New creates the provider. An empty baseURL selects DefaultBaseURL.
func New(c *client.Client, baseURL string, ex *extractors.Registry) *Provider {
	if baseURL = client.NormalizeBaseURL(baseURL); baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		client:     c,
		baseURL:    baseURL,
		extractors: ex,
		logger:     config.GetLogger().With().Str("provider", Name).Logger(),
	}
}

func (p *Provider) Name() string     { return Name }
func (p *Provider) BaseURL() string  { return p.baseURL }
func (p *Provider) Language() string { return "de" }
func (p *Provider) Logo() string {
	return p.url("themes/downloadarchive/images/logo.png")
}

func (p *Provider) url(path string) string {
	return client.JoinURL(p.baseURL, path)
}

func (p *Provider) streamURL(slug string) string {
	return p.url("stream/" + url.PathEscape(slug))
}

func (p *Provider) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	return p.client.GetDocument(ctx, rawURL, nil)
}

// showDocument fetches a stream page; its season blocks are read once per season.
func (p *Provider) showDocument(ctx context.Context, slug string) (*goquery.Document, error) {
	return p.client.GetCachedDocument(ctx, p.streamURL(slug), nil)
}

// GetHome returns the featured slider, the newest movies and the newest series.
func (p *Provider) GetHome(ctx context.Context) (models.Partial[[]models.Category], error) {
	var home models.Partial[[]models.Category]

	doc, err := p.document(ctx, p.url("movies/new/page/1"))
	if err != nil {
		home.Drop(models.CategoryFeatured, err)
		home.Drop("Filme", err)
	} else {
		featured := p.parseSlider(doc)
		if len(featured) == 0 {
			home.Drop(models.CategoryFeatured, apperrors.NewParseError(p.baseURL, "featured slider"))
		} else {
			home.Value = append(home.Value, models.Category{Name: models.CategoryFeatured, Items: featured})
		}
		p.appendSection(&home, "Filme", toItems(p.parseArticles(doc)), p.baseURL)
	}

	series, err := p.document(ctx, p.url("serien/view/page/1"))
	if err != nil {
		home.Drop("Serien", err)
	} else {
		p.appendSection(&home, "Serien", toItems(asTvShows(p.parseArticles(series))), p.url("serien/view/page/1"))
	}

	if len(home.Value) == 0 {
		return home, home.Err()
	}
	return home, nil
}

func (p *Provider) appendSection(home *models.Partial[[]models.Category], name string, items []models.Item, source string) {
	if len(items) == 0 {
		home.Drop(name, apperrors.NewParseError(source, "articles"))
		return
	}
	home.Value = append(home.Value, models.Category{Name: name, Items: items})
}

func (p *Provider) parseSlider(doc *goquery.Document) []models.Item {
	items := make([]models.Item, 0)
	doc.Find("div.headerslider ul#sliderDla li").Each(func(_ int, li *goquery.Selection) {
		slug := parser.PathSegment(parser.Attr(li.Find("a.moviSliderPlay").First(), "href"))
		if slug == "" {
			return
		}
		movie := &models.Movie{}
		movie.ID = slug
		movie.Title = parser.Text(li.Find("span.title.rb"))
		movie.Overview = parser.Text(li.Find("div.moviedescription"))
		movie.Released = parser.Text(li.Find("span.releasedate b"))
		movie.Poster = p.image(parser.Attr(li.Find("a img").First(), "src"))
		// "<votes>/<rating>" text, the rating being the part after the slash.
		if views := li.Find("span.views b").Last(); views.Length() > 0 {
			if _, after, ok := strings.Cut(parser.Text(views), "/"); ok {
				movie.Rating, _ = parser.FirstFloat(after)
			}
		}
		items = append(items, movie)
	})
	return items
}

// parseArticles parses the article grid shared by listings, search, genres and people.
// Titles carrying an SxxEyy marker are series.
func (p *Provider) parseArticles(doc *goquery.Document) []models.Show {
	articles := parser.ListParser[models.Show]{Selector: "div#content article", Map: p.article}
	return models.DedupeItems(articles.ParseSelection(doc.Selection))
}

func (p *Provider) article(article *goquery.Selection) (models.Show, bool) {
	link := article.Find("h2 a").First()
	slug := parser.PathSegment(parser.Attr(link, "href"))
	if slug == "" {
		return nil, false
	}
	details := models.ShowDetails{
		ID:     slug,
		Title:  parser.Text(link),
		Poster: p.image(parser.Attr(article.Find("a img").First(), "src")),
	}
	applyInfo(&details, article)
	if episodeTitleRe.MatchString(details.Title) {
		return &models.TvShow{ShowDetails: details}, true
	}
	return &models.Movie{ShowDetails: details}, true
}

// applyInfo reads the rating stars, quality and release year of a grid article.
func applyInfo(d *models.ShowDetails, article *goquery.Selection) {
	if stars := article.Find(`img[src*="star_on"]`).Length(); stars > 0 {
		rating := float64(stars) / 10
		d.Rating = &rating
	}
	article.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := parser.Text(s)
		if d.Quality == "" && slices.Contains(qualities, text) {
			d.Quality = text
		}
		if d.Released == "" && yearRe.MatchString(text) {
			d.Released = text
		}
		return d.Quality == "" || d.Released == ""
	})
}

func (p *Provider) image(src string) string {
	if src == "" {
		return ""
	}
	return parser.ResolveURL(p.baseURL, src)
}

// Search returns the shows matching query. A blank query returns the sidebar
// genres sorted by name. Pages after the first are only requested when the
// result page has a pager.
func (p *Provider) Search(ctx context.Context, query string, page int) ([]models.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		if page > 1 {
			return []models.Item{}, nil
		}
		return p.genres(ctx)
	}

	searchURL := p.url("search/title/" + url.PathEscape(query))
	doc, err := p.document(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	if page > 1 {
		if doc.Find("div#paging a.pageing.button-small.rb").Length() == 0 {
			return []models.Item{}, nil
		}
		if doc, err = p.document(ctx, searchURL+"/"+strconv.Itoa(page)); err != nil {
			return nil, err
		}
	}
	return toItems(p.parseArticles(doc)), nil
}

func (p *Provider) genres(ctx context.Context) ([]models.Item, error) {
	doc, err := p.document(ctx, p.url("movies/new/page/1"))
	if err != nil {
		return nil, err
	}
	genres := make([]*models.Genre, 0)
	doc.Find("aside#sidebar section#genre ul li a").Each(func(_ int, a *goquery.Selection) {
		if name := parser.Text(a); name != "" {
			genres = append(genres, &models.Genre{ID: name, Name: name})
		}
	})
	genres = models.DedupeItems(genres)
	slices.SortStableFunc(genres, func(a, b *models.Genre) int { return strings.Compare(a.Name, b.Name) })
	return toItems(genres), nil
}

func (p *Provider) GetMovies(ctx context.Context, page int) ([]*models.Movie, error) {
	doc, err := p.document(ctx, p.url(fmt.Sprintf("movies/new/page/%d", max(page, 1))))
	if err != nil {
		return nil, err
	}
	return asMovies(p.parseArticles(doc)), nil
}

func (p *Provider) GetTvShows(ctx context.Context, page int) ([]*models.TvShow, error) {
	doc, err := p.document(ctx, p.url(fmt.Sprintf("serien/view/page/%d", max(page, 1))))
	if err != nil {
		return nil, err
	}
	return asTvShows(p.parseArticles(doc)), nil
}

// GetMovie parses a stream page.
func (p *Provider) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	pageURL := p.streamURL(id)
	doc, err := p.document(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	details, err := p.parseDetails(doc, id, pageURL)
	if err != nil {
		return nil, err
	}
	return &models.Movie{ShowDetails: details}, nil
}

// GetTvShow parses a stream page together with its season blocks.
func (p *Provider) GetTvShow(ctx context.Context, id string) (*models.TvShow, error) {
	pageURL := p.streamURL(id)
	doc, err := p.showDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := p.parseDetails(doc, id, pageURL)
	if err != nil {
		return nil, err
	}
	show := &models.TvShow{ShowDetails: details, Seasons: []models.Season{}}
	ref := models.ShowRef{ID: id, Title: details.Title, Poster: details.Poster}
	doc.Find("div#staffelWrapper div.staffelWrapperLoop").Each(func(i int, block *goquery.Selection) {
		season := models.Season{ID: seasonID(id, i+1), Number: i + 1}
		for _, ep := range parseEpisodes(block, ref, season) {
			season.Episodes = append(season.Episodes, *ep)
		}
		show.Seasons = append(show.Seasons, season)
	})
	return show, nil
}

func (p *Provider) parseDetails(doc *goquery.Document, id, pageURL string) (models.ShowDetails, error) {
	title := parser.Text(doc.Find("h2").First())
	if title == "" {
		return models.ShowDetails{}, apperrors.NewParseError(pageURL, "title")
	}
	d := models.ShowDetails{
		ID:       id,
		Title:    title,
		Poster:   p.image(parser.Attr(doc.Find("img.cover2").First(), "src")),
		Overview: parser.Text(doc.Find(`span[itemprop="description"]`).First()),
	}
	if v, err := strconv.ParseFloat(parser.Attr(doc.Find("div#star-rate").First(), "data-rating"), 64); err == nil {
		d.Rating = &v
	}
	doc.Find("ul#detail-content-list > li").Each(func(_ int, li *goquery.Selection) {
		label := parser.Text(li.Find("p").First())
		li.Find("a").Each(func(_ int, a *goquery.Selection) {
			name := parser.Text(a)
			if name == "" {
				return
			}
			switch {
			case strings.Contains(label, "Kategorien"), strings.Contains(label, "Genre"):
				d.Genres = append(d.Genres, models.Genre{ID: name, Name: name})
			case strings.Contains(label, "Regie"):
				d.Directors = append(d.Directors, models.People{ID: name, Name: name})
			case strings.Contains(label, "Schauspieler"):
				d.Cast = append(d.Cast, models.People{ID: name, Name: name})
			}
		})
	})
	return d, nil
}

func parseEpisodes(block *goquery.Selection, show models.ShowRef, season models.Season) []*models.Episode {
	episodes := make([]*models.Episode, 0)
	block.Find("ul.staffelEpisodenList li a.getStaffelStream").Each(func(i int, a *goquery.Selection) {
		slug := parser.PathSegment(parser.Attr(a, "href"))
		if slug == "" {
			return
		}
		showRef := show
		episodes = append(episodes, &models.Episode{
			ID:     slug,
			Number: i + 1,
			Title:  parser.OwnText(a),
			Show:   &showRef,
			Season: &models.SeasonRef{ID: season.ID, Number: season.Number},
		})
	})
	return episodes
}

func seasonID(showID string, number int) string {
	return showID + "_" + strconv.Itoa(number)
}

func parseSeasonID(id string) (string, int, error) {
	i := strings.LastIndex(id, "_")
	if i <= 0 {
		return "", 0, apperrors.NewParseError(id, "season number")
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 1 {
		return "", 0, apperrors.NewParseError(id, "season number")
	}
	return id[:i], n, nil
}

// GetEpisodesBySeason returns the episodes of the n-th season block of the show page.
func (p *Provider) GetEpisodesBySeason(ctx context.Context, id string) ([]*models.Episode, error) {
	showID, number, err := parseSeasonID(id)
	if err != nil {
		return nil, err
	}
	doc, err := p.showDocument(ctx, showID)
	if err != nil {
		return nil, err
	}
	block := doc.Find("div#staffelWrapper div.staffelWrapperLoop").Eq(number - 1)
	if block.Length() == 0 {
		return []*models.Episode{}, nil
	}
	show := models.ShowRef{ID: showID, Title: parser.Text(doc.Find("h2").First())}
	return parseEpisodes(block, show, models.Season{ID: id, Number: number}), nil
}

// GetGenre lists a genre page. The genre id is its name.
func (p *Provider) GetGenre(ctx context.Context, id string, page int) (*models.Genre, error) {
	doc, err := p.document(ctx, p.url(fmt.Sprintf("search/genre/%s/%d", url.PathEscape(id), max(page, 1))))
	if err != nil {
		return nil, err
	}
	return &models.Genre{ID: id, Name: capitalize(id), Shows: models.ShowList(p.parseArticles(doc))}, nil
}

// GetPeople searches titles by the person name, which is the people id.
func (p *Provider) GetPeople(ctx context.Context, id string, page int) (*models.People, error) {
	peopleURL := p.url("search/title/" + url.PathEscape(id))
	if page > 1 {
		peopleURL += "/" + strconv.Itoa(page)
	}
	doc, err := p.document(ctx, peopleURL)
	if err != nil {
		return nil, err
	}
	name := parser.Text(doc.Find("h1").First())
	if name == "" {
		name = id
	}
	return &models.People{
		ID:          id,
		Name:        name,
		Image:       p.image(parser.Attr(doc.Find("img.cover2").First(), "src")),
		Filmography: models.ShowList(p.parseArticles(doc)),
	}, nil
}

// GetServers lists the hoster blocks of a movie or episode stream page.
func (p *Provider) GetServers(ctx context.Context, id string, _ models.VideoType) ([]models.Server, error) {
	pageURL := p.streamURL(id)
	doc, err := p.document(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	servers := make([]models.Server, 0)
	doc.Find("ul.currentStreamLinks").Each(func(_ int, block *goquery.Selection) {
		name := parser.Text(block.Find("li.hostBg p.hostName").First())
		if name == "" {
			name = "Unbekannt"
		}
		link := parser.Attr(block.Find("a[href]").First(), "href")
		if link == "" {
			link = parser.Attr(block.Find("a[data-player-url]").First(), "data-player-url")
		}
		if link == "" {
			return
		}
		display := name
		lower := strings.ToLower(name)
		if slices.ContainsFunc(vlcOnlyHosts, func(h string) bool { return strings.Contains(lower, h) }) {
			display += " (VLC Only)"
		}
		servers = append(servers, models.Server{
			ID:   strings.Fields(name)[0],
			Name: display,
			Src:  parser.ResolveURL(pageURL, link),
		})
	})
	p.logger.Debug().Str("id", id).Int("servers", len(servers)).Msg("Parsed stream links")
	return servers, nil
}

// GetVideo follows the hoster redirect of server and extracts the final page.
// VOE mirrors are rewritten to the canonical voe.sx embed.
func (p *Provider) GetVideo(ctx context.Context, server models.Server) (*models.Video, error) {
	if p.extractors == nil {
		return nil, errors.New("no extractor registry configured")
	}
	final, err := p.client.ResolveFinalURL(ctx, server.Src)
	if err != nil {
		return nil, err
	}
	link := final
	if server.ID == "VOE" || server.Name == "VOE" {
		if u, err := url.Parse(final); err == nil {
			link = "https://voe.sx/e/" + strings.TrimLeft(u.EscapedPath(), "/") + "?"
		}
	}
	return p.extractors.Extract(ctx, link, extractors.Options{Referer: p.baseURL, Server: server})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func toItems[T models.Item](values []T) []models.Item {
	out := make([]models.Item, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func asMovies(shows []models.Show) []*models.Movie {
	out := make([]*models.Movie, 0, len(shows))
	for _, s := range shows {
		switch v := s.(type) {
		case *models.Movie:
			out = append(out, v)
		case *models.TvShow:
			out = append(out, &models.Movie{ShowDetails: v.ShowDetails})
		}
	}
	return out
}

func asTvShows(shows []models.Show) []*models.TvShow {
	out := make([]*models.TvShow, 0, len(shows))
	for _, s := range shows {
		switch v := s.(type) {
		case *models.TvShow:
			out = append(out, v)
		case *models.Movie:
			out = append(out, &models.TvShow{ShowDetails: v.ShowDetails})
		}
	}
	return out
}
