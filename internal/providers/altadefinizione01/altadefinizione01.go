// Package altadefinizione01 scrapes Altadefinizione01, an Italian catalog built
// on a DLE template.
//
// Id grammar:
//   - movies, shows, genres and people are the absolute URL of their page;
//   - seasons are "<show URL>#season-<n>" and episodes "<show URL>#s<n>e<m>",
//     both located on the show page.
package altadefinizione01

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
	"github.com/Belphemur/StreamScraper/internal/ranking"
)

const (
	// Name is the provider name.
	Name = "Altadefinizione01"
	// DefaultBaseURL is used when no domain override is configured.
	DefaultBaseURL = "https://altadefinizione01.wang/"

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	searchPageSize = 50
	gridSelector   = "#dle-content .boxgrid.caption"
	brokenPoster   = "Ошибка"
)

var (
	episodePrefixRe = regexp.MustCompile(`(?i)^Episodio\s*\d+\s*:\s*`)
	sourceSuffixRe  = regexp.MustCompile(`Fonte:.*$`)
)

var _ providers.Provider = (*Provider)(nil)

// Options configures the provider.
type Options struct {
	BaseURL    string
	Extractors *extractors.Registry
	// Ranking orders the mirrors of a movie or episode. The zero value selects ranking.DefaultPolicy.
	Ranking *ranking.Policy
}

// Provider implements providers.Provider for Altadefinizione01.
type Provider struct {
	client     *client.Client
	baseURL    string
	extractors *extractors.Registry
	policy     ranking.Policy
	logger     zerolog.Logger
}

// New creates the provider.
func New(c *client.Client, opts Options) *Provider {
	baseURL := client.NormalizeBaseURL(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	policy := ranking.DefaultPolicy()
	if opts.Ranking != nil {
		policy = *opts.Ranking
	}
	return &Provider{
		client:     c,
		baseURL:    baseURL,
		extractors: opts.Extractors,
		policy:     policy,
		logger:     config.GetLogger().With().Str("provider", Name).Logger(),
	}
}

func (p *Provider) Name() string     { return Name }
func (p *Provider) BaseURL() string  { return p.baseURL }
func (p *Provider) Language() string { return "it" }
func (p *Provider) Logo() string {
	return p.url("templates/Darktemplate_pagespeed/images/logo.png")
}

func (p *Provider) url(path string) string {
	return client.JoinURL(p.baseURL, path)
}

func (p *Provider) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	return p.client.GetDocument(ctx, rawURL, client.Header("User-Agent", userAgent))
}

// showDocument fetches a show page, which lists every season, episode and mirror.
func (p *Provider) showDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	return p.client.GetCachedDocument(ctx, rawURL, client.Header("User-Agent", userAgent))
}

// normalize turns protocol-relative and site-relative links into absolute URLs.
func (p *Provider) normalize(link string) string {
	link = strings.TrimSpace(link)
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "http"):
		return link
	case strings.HasPrefix(link, "//"):
		return "https:" + link
	case strings.HasPrefix(link, "/"):
		return p.url(link)
	default:
		return "https://" + link
	}
}

// GetHome returns every slider and every "latest" block of the home page.
func (p *Provider) GetHome(ctx context.Context) (models.Partial[[]models.Category], error) {
	var home models.Partial[[]models.Category]
	doc, err := p.document(ctx, p.baseURL)
	if err != nil {
		return home, err
	}

	doc.Find("div.slider").Each(func(_ int, slider *goquery.Selection) {
		name := parser.Text(slider.Find(".slider-strip b").First())
		if name == "" {
			return
		}
		p.appendSection(&home, name, p.parseGrid(slider, ".boxgrid.caption"))
	})

	doc.Find("div.son_eklenen").Each(func(_ int, section *goquery.Selection) {
		name := parser.Text(section.Find(".son_eklenen_head > strong").First())
		if name == "" {
			if section.Find(".son_eklenen_head_tv").Length() == 0 {
				return
			}
			name = "Sub ITA"
		}
		p.appendSection(&home, name, p.parseGrid(section, "#son_eklenen_kapsul .boxgrid.caption"))
	})

	if len(home.Value) == 0 {
		home.Drop(models.CategoryFeatured, apperrors.NewParseError(p.baseURL, "home sections"))
		return home, home.Err()
	}
	return home, nil
}

func (p *Provider) appendSection(home *models.Partial[[]models.Category], name string, shows models.ShowList) {
	if len(shows) == 0 {
		home.Drop(name, apperrors.NewParseError(p.baseURL, name))
		return
	}
	home.Value = append(home.Value, models.Category{Name: name, Items: toItems(shows)})
}

// parseGrid reads the ".boxgrid.caption" cards matching selector below root. A card
// is a TV show when it shows a season counter or links to the serie-tv category.
func (p *Provider) parseGrid(root *goquery.Selection, selector string) models.ShowList {
	cards := parser.ListParser[models.Show]{Selector: selector, Map: p.card}
	return models.DedupeItems(models.ShowList(cards.ParseSelection(root)))
}

func (p *Provider) card(card *goquery.Selection) (models.Show, bool) {
	anchor := card.Find(".cover.boxcaption h2 a, h3 a, .boxcaption h2 a").First()
	href := p.normalize(parser.Attr(anchor, "href"))
	if href == "" {
		return nil, false
	}
	d := models.ShowDetails{
		ID:     href,
		Title:  parser.Text(anchor),
		Poster: p.normalize(parser.Attr(card.Find("a > img").First(), "data-src")),
	}
	if card.Find(".se_num").Length() > 0 || card.Find(".ml-cat a[href*='/serie-tv/']").Length() > 0 {
		return &models.TvShow{ShowDetails: d}, true
	}
	return &models.Movie{ShowDetails: d}, true
}

// Search runs the site search. A blank query returns the category list sorted by name.
func (p *Provider) Search(ctx context.Context, query string, page int) ([]models.Item, error) {
	if strings.TrimSpace(query) == "" {
		if page > 1 {
			return []models.Item{}, nil
		}
		return p.genres(ctx)
	}

	params := url.Values{
		"do":          {"search"},
		"subaction":   {"search"},
		"titleonly":   {"3"},
		"story":       {query},
		"full_search": {"0"},
	}
	doc, err := p.document(ctx, p.url("index.php?"+params.Encode()))
	if err != nil {
		return nil, err
	}
	if page > 1 {
		if doc.Find("div.page_nav").Length() == 0 {
			return []models.Item{}, nil
		}
		params.Set("search_start", strconv.Itoa(page))
		params.Set("result_from", strconv.Itoa((page-1)*searchPageSize+1))
		if doc, err = p.document(ctx, p.url("index.php?"+params.Encode())); err != nil {
			return nil, err
		}
	}
	return toItems(p.parseGrid(doc.Selection, gridSelector)), nil
}

func (p *Provider) genres(ctx context.Context) ([]models.Item, error) {
	doc, err := p.document(ctx, p.baseURL)
	if err != nil {
		return nil, err
	}
	var widget *goquery.Selection
	doc.Find(".widget-title").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if parser.Text(s) == "Categorie in Altadefinizione" {
			widget = s.Parent()
			return false
		}
		return true
	})
	genres := make([]*models.Genre, 0)
	if widget == nil {
		return toItems(genres), nil
	}
	widget.Find("#wtab1 .kategori_list li > a[href]").Each(func(_ int, a *goquery.Selection) {
		href := p.normalize(parser.Attr(a, "href"))
		name := parser.Text(a)
		if href == "" || name == "" {
			return
		}
		genres = append(genres, &models.Genre{ID: href, Name: name})
	})
	slices.SortStableFunc(genres, func(a, b *models.Genre) int { return strings.Compare(a.Name, b.Name) })
	return toItems(genres), nil
}

func pagedURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/page/" + strconv.Itoa(page) + "/"
}

func (p *Provider) GetMovies(ctx context.Context, page int) ([]*models.Movie, error) {
	doc, err := p.document(ctx, pagedURL(p.url("cinema/"), page))
	if err != nil {
		return nil, err
	}
	return asMovies(p.parseGrid(doc.Selection, gridSelector)), nil
}

func (p *Provider) GetTvShows(ctx context.Context, page int) ([]*models.TvShow, error) {
	doc, err := p.document(ctx, pagedURL(p.url("serie-tv/"), page))
	if err != nil {
		return nil, err
	}
	return asTvShows(p.parseGrid(doc.Selection, gridSelector)), nil
}

// details reads the fields shared by movie and show pages.
func (p *Provider) details(doc *goquery.Document, id string) (models.ShowDetails, error) {
	d := models.ShowDetails{ID: id}
	d.Title = parser.Attr(doc.Find("meta[property='og:title']").First(), "content")
	if d.Title == "" {
		d.Title = parser.Text(doc.Find("h1, h2, title").First())
	}
	if d.Title == "" {
		return d, apperrors.NewParseError(id, "title")
	}

	poster := parser.Attr(doc.Find(".fix img").First(), "data-src")
	if poster == "" || strings.Contains(poster, brokenPoster) {
		poster = parser.Attr(doc.Find("#single .sbox .imagen meta[itemprop=image]").First(), "content")
		if poster == "" {
			poster = parser.Attr(doc.Find("meta[itemprop=image]").First(), "content")
		}
	}
	d.Poster = p.normalize(poster)

	if rating, err := strconv.ParseFloat(parser.Text(doc.Find("div.imdb_r [itemprop=ratingValue]").First()), 64); err == nil {
		d.Rating = &rating
	}
	d.Overview = strings.TrimSpace(sourceSuffixRe.ReplaceAllString(parser.OwnText(doc.Find(".sbox .entry-content p").First()), ""))

	if trailer := parser.Attr(doc.Find(".btn_trailer a[href]").First(), "href"); strings.Contains(strings.ToLower(trailer), "youtube") {
		d.Trailer = trailer
	}

	doc.Find("p.meta_dd b[title=Genere]").First().Parent().Find("a").Each(func(_ int, a *goquery.Selection) {
		name := parser.Text(a)
		if name == "" || strings.EqualFold(name, "Prossimamente") {
			return
		}
		d.Genres = append(d.Genres, models.Genre{ID: p.normalize(parser.Attr(a, "href")), Name: name})
	})

	doc.Find("p.meta_dd.limpiar").Each(func(_ int, meta *goquery.Selection) {
		if meta.Find("b.icon-male").Length() == 0 {
			return
		}
		meta.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			name, href := parser.Text(a), p.normalize(parser.Attr(a, "href"))
			if name == "" || href == "" {
				return
			}
			d.Cast = append(d.Cast, models.People{ID: href, Name: name})
		})
	})
	return d, nil
}

func (p *Provider) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	doc, err := p.document(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := p.details(doc, id)
	if err != nil {
		return nil, err
	}
	return &models.Movie{ShowDetails: d}, nil
}

// GetTvShow returns the show with every season and its episodes, all listed on the show page.
func (p *Provider) GetTvShow(ctx context.Context, id string) (*models.TvShow, error) {
	doc, err := p.showDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := p.details(doc, id)
	if err != nil {
		return nil, err
	}
	show := &models.TvShow{ShowDetails: d, Seasons: []models.Season{}}
	doc.Find("#tt_holder .tt_season ul li a[data-toggle=tab]").Each(func(_ int, tab *goquery.Selection) {
		paneID := strings.TrimPrefix(parser.Attr(tab, "href"), "#")
		number, _ := strconv.Atoi(parser.Text(tab))
		season := models.Season{
			ID:     models.SeasonKey{ShowID: id, Season: number}.String(),
			Number: number,
		}
		if paneID != "" {
			for _, ep := range p.parseEpisodes(doc.Find("#"+paneID).First(), id, number) {
				season.Episodes = append(season.Episodes, *ep)
			}
		}
		show.Seasons = append(show.Seasons, season)
	})
	return show, nil
}

func (p *Provider) GetEpisodesBySeason(ctx context.Context, seasonID string) ([]*models.Episode, error) {
	key, err := models.ParseSeasonKey(seasonID)
	if err != nil {
		return nil, apperrors.NewParseError(seasonID, "season key")
	}
	doc, err := p.showDocument(ctx, key.ShowID)
	if err != nil {
		return nil, err
	}
	return p.parseEpisodes(doc.Find(fmt.Sprintf("#season-%d", key.Season)).First(), key.ShowID, key.Season), nil
}

func episodeAnchors(pane *goquery.Selection) *goquery.Selection {
	return pane.Find("ul > li > a[allowfullscreen][data-link]")
}

// episodeNumber reads "1x5" style data-num attributes, falling back to the anchor text.
func episodeNumber(a *goquery.Selection) (int, bool) {
	num := parser.Attr(a, "data-num")
	if _, after, ok := strings.Cut(num, "x"); ok {
		num = after
	}
	if n, err := strconv.Atoi(strings.TrimSpace(num)); err == nil {
		return n, true
	}
	if n, err := strconv.Atoi(parser.Text(a)); err == nil {
		return n, true
	}
	return 0, false
}

func (p *Provider) parseEpisodes(pane *goquery.Selection, showID string, season int) []*models.Episode {
	episodes := make([]*models.Episode, 0)
	seasonRef := models.SeasonRef{ID: models.SeasonKey{ShowID: showID, Season: season}.String(), Number: season}
	episodeAnchors(pane).Each(func(_ int, a *goquery.Selection) {
		number, _ := episodeNumber(a)
		ref := seasonRef
		episodes = append(episodes, &models.Episode{
			ID:     models.EpisodeKey{ShowID: showID, Season: season, Episode: number}.String(),
			Number: number,
			Title:  strings.TrimSpace(episodePrefixRe.ReplaceAllString(parser.Attr(a, "data-title"), "")),
			Show:   &models.ShowRef{ID: showID},
			Season: &ref,
		})
	})
	return episodes
}

// GetGenre lists a category page.
func (p *Provider) GetGenre(ctx context.Context, id string, page int) (*models.Genre, error) {
	doc, err := p.document(ctx, pagedURL(id, page))
	if err != nil {
		return nil, err
	}
	return &models.Genre{ID: id, Shows: p.parseGrid(doc.Selection, gridSelector)}, nil
}

// GetPeople lists an actor's titles. Actor pages live under /xfsearch/attori/
// but paginate under /find/.
func (p *Provider) GetPeople(ctx context.Context, id string, page int) (*models.People, error) {
	doc, err := p.document(ctx, id)
	if err != nil {
		return nil, err
	}
	people := &models.People{ID: id, Filmography: models.ShowList{}}
	if page > 1 {
		if doc.Find("div.page_nav").Length() == 0 {
			return people, nil
		}
		base := strings.Replace(strings.TrimSuffix(id, "/"), "/xfsearch/attori/", "/find/", 1)
		if doc, err = p.document(ctx, pagedURL(base, page)); err != nil {
			return nil, err
		}
	}
	people.Filmography = p.parseGrid(doc.Selection, gridSelector)
	return people, nil
}

// GetServers lists the mirrors of a movie or episode, ranked by the configured policy.
func (p *Provider) GetServers(ctx context.Context, id string, vt models.VideoType) ([]models.Server, error) {
	var (
		servers []models.Server
		err     error
	)
	if _, isEpisode := vt.(models.EpisodeVideo); isEpisode {
		servers, err = p.episodeServers(ctx, id)
	} else {
		servers, err = p.movieServers(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return p.policy.Apply(servers), nil
}

func (p *Provider) episodeServers(ctx context.Context, id string) ([]models.Server, error) {
	key, err := models.ParseEpisodeKey(id)
	if err != nil {
		return nil, apperrors.NewParseError(id, "episode key")
	}
	doc, err := p.showDocument(ctx, key.ShowID)
	if err != nil {
		return nil, err
	}
	var anchor *goquery.Selection
	episodeAnchors(doc.Find(fmt.Sprintf("#season-%d", key.Season)).First()).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if n, ok := episodeNumber(a); ok && n == key.Episode {
			anchor = a
			return false
		}
		return true
	})
	servers := make([]models.Server, 0)
	if anchor == nil {
		return servers, nil
	}
	anchor.Parent().Find(".mirrors a[data-link]").Each(func(_ int, m *goquery.Selection) {
		link := p.normalize(parser.Attr(m, "data-link"))
		if link == "" {
			return
		}
		name := parser.Text(m)
		if name == "" {
			name = "Server"
		}
		servers = append(servers, models.Server{ID: link, Name: name, Src: link})
	})
	return servers, nil
}

func (p *Provider) movieServers(ctx context.Context, id string) ([]models.Server, error) {
	doc, err := p.document(ctx, id)
	if err != nil {
		return nil, err
	}
	embed := p.normalize(parser.Attr(doc.Find("iframe[src*='mostraguarda.stream']").First(), "src"))
	if embed == "" {
		return nil, apperrors.NewParseError(id, "embed iframe")
	}
	embedDoc, err := p.client.GetDocument(ctx, embed, client.Header("User-Agent", userAgent, "Referer", p.baseURL))
	if err != nil {
		return nil, err
	}
	servers := make([]models.Server, 0)
	embedDoc.Find("ul._player-mirrors li[data-link]").Each(func(_ int, li *goquery.Selection) {
		link := p.normalize(parser.Attr(li, "data-link"))
		if link == "" {
			return
		}
		name := parser.OwnText(li)
		if name == "" {
			name = parser.Text(li)
		}
		if name == "" {
			name = "Server"
		}
		if li.HasClass("fullhd") && !strings.Contains(strings.ToLower(name), "fullhd") {
			name += " (FullHD)"
		}
		servers = append(servers, models.Server{ID: link, Name: name, Src: link})
	})
	return servers, nil
}

func (p *Provider) GetVideo(ctx context.Context, server models.Server) (*models.Video, error) {
	if p.extractors == nil {
		return nil, errors.New("no extractor registry configured")
	}
	return p.extractors.Extract(ctx, server.Src, extractors.Options{Referer: p.baseURL, Server: server})
}

func toItems[T models.Item](values []T) []models.Item {
	out := make([]models.Item, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func asMovies(shows models.ShowList) []*models.Movie {
	out := make([]*models.Movie, 0, len(shows))
	for _, s := range shows {
		if m, ok := s.(*models.Movie); ok {
			out = append(out, m)
		}
	}
	return out
}

func asTvShows(shows models.ShowList) []*models.TvShow {
	out := make([]*models.TvShow, 0, len(shows))
	for _, s := range shows {
		if t, ok := s.(*models.TvShow); ok {
			out = append(out, t)
		}
	}
	return out
}
