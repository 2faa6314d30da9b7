package filmpalast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/extractors"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/testutil"
)

type stubExtractor struct {
	mainURL string
	links   []string
}

func (s *stubExtractor) Name() string                      { return "Stub" }
func (s *stubExtractor) MainURL() string                   { return s.mainURL }
func (s *stubExtractor) AliasURLs() []string               { return nil }
func (s *stubExtractor) RotatingDomains() []*regexp.Regexp { return nil }
func (s *stubExtractor) Extract(_ context.Context, link string, _ extractors.Options) (*models.Video, error) {
	s.links = append(s.links, link)
	return &models.Video{Source: link + ".m3u8", Type: models.MimeHLS}, nil
}

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := client.New(client.Options{Timeout: 5 * time.Second})
	return New(c, srv.URL, nil), srv
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func TestNew_DefaultBaseURL(t *testing.T) {
	t.Parallel()
	p := New(client.New(client.Options{}), "", nil)
	if p.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", p.BaseURL(), DefaultBaseURL)
	}
	if p.Language() != "de" || p.Name() != "FilmPalast" {
		t.Errorf("Unexpected identity %s/%s", p.Name(), p.Language())
	}
}

func TestSearch_BlankQueryReturnsSortedGenres(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies/new/page/1" {
			http.NotFound(w, r)
			return
		}
		writeHTML(w, testutil.GenerateFilmPalastListHTML(testutil.FilmPalastListOptions{
			Genres: []string{"Thriller", "Action", "Drama", "Action"},
		}))
	}))

	items, err := p.Search(context.Background(), "  ", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	var names []string
	for _, item := range items {
		g, ok := item.(*models.Genre)
		if !ok {
			t.Fatalf("Expected only genres, got %T", item)
		}
		names = append(names, g.Name)
	}
	if got := strings.Join(names, ","); got != "Action,Drama,Thriller" {
		t.Errorf("Genres = %s, want Action,Drama,Thriller", got)
	}

	items, err = p.Search(context.Background(), "", 2)
	if err != nil || len(items) != 0 {
		t.Errorf("Second blank page = %v, %v; want empty", items, err)
	}
}

func TestSearch_PagingRequiresPager(t *testing.T) {
	t.Parallel()
	var pagedCalls atomic.Int32
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/title/dune":
			writeHTML(w, testutil.GenerateFilmPalastListHTML(testutil.FilmPalastListOptions{
				Articles: []testutil.ArticleOptions{
					{Slug: "dune", Title: "Dune", Quality: "HD", Year: "2021", Stars: 8},
					{Slug: "dune-s01e01", Title: "Dune Prophecy S01E01"},
				},
			}))
		default:
			pagedCalls.Add(1)
			http.NotFound(w, r)
		}
	}))

	items, err := p.Search(context.Background(), "dune", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(items))
	}
	movie, ok := items[0].(*models.Movie)
	if !ok {
		t.Fatalf("First result = %T, want *models.Movie", items[0])
	}
	if movie.ID != "dune" || movie.Quality != "HD" || movie.Released != "2021" {
		t.Errorf("Unexpected movie %+v", movie.ShowDetails)
	}
	if movie.Rating == nil || *movie.Rating != 0.8 {
		t.Errorf("Rating = %v, want 0.8", movie.Rating)
	}
	if _, ok := items[1].(*models.TvShow); !ok {
		t.Errorf("Episode titled result = %T, want *models.TvShow", items[1])
	}

	items, err = p.Search(context.Background(), "dune", 2)
	if err != nil {
		t.Fatalf("Search page 2 failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no results without pager, got %d", len(items))
	}
	if pagedCalls.Load() != 0 {
		t.Errorf("Page 2 must not be requested without a pager")
	}
}

func TestGetHome(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movies/new/page/1":
			writeHTML(w, testutil.GenerateFilmPalastListHTML(testutil.FilmPalastListOptions{
				Slider:   []testutil.ArticleOptions{{Slug: "oppenheimer", Title: "Oppenheimer", Year: "2023"}},
				Articles: []testutil.ArticleOptions{{Slug: "barbie", Title: "Barbie"}},
			}))
		case "/serien/view/page/1":
			http.Error(w, "down", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))

	home, err := p.GetHome(context.Background())
	if err != nil {
		t.Fatalf("GetHome failed: %v", err)
	}
	if len(home.Value) != 2 {
		t.Fatalf("Expected 2 categories, got %d", len(home.Value))
	}
	if home.Value[0].Name != models.CategoryFeatured || home.Value[1].Name != "Filme" {
		t.Errorf("Unexpected categories %q, %q", home.Value[0].Name, home.Value[1].Name)
	}
	featured := home.Value[0].Items[0].(*models.Movie)
	if featured.ID != "oppenheimer" || featured.Rating == nil || *featured.Rating != 7.1 {
		t.Errorf("Unexpected featured %+v", featured.ShowDetails)
	}
	if home.Complete() || len(home.Dropped) != 1 || home.Dropped[0].Section != "Serien" {
		t.Errorf("Expected Serien to be dropped, got %+v", home.Dropped)
	}
}

func showPage() string {
	return testutil.GenerateFilmPalastStreamHTML(testutil.FilmPalastStreamOptions{
		Title:     "Dark",
		Overview:  "Time travel",
		Rating:    "8.7",
		Genres:    []string{"Drama", "Mystery"},
		Directors: []string{"Baran bo Odar"},
		Cast:      []string{"Louis Hofmann"},
		Seasons:   [][]string{{"dark-s01e01", "dark-s01e02"}, {"dark-s02e01"}},
	})
}

func TestGetTvShow(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/dark" {
			http.NotFound(w, r)
			return
		}
		writeHTML(w, showPage())
	}))

	show, err := p.GetTvShow(context.Background(), "dark")
	if err != nil {
		t.Fatalf("GetTvShow failed: %v", err)
	}
	if show.Title != "Dark" || show.Overview != "Time travel" {
		t.Errorf("Unexpected details %+v", show.ShowDetails)
	}
	if show.Rating == nil || *show.Rating != 8.7 {
		t.Errorf("Rating = %v", show.Rating)
	}
	if len(show.Genres) != 2 || len(show.Directors) != 1 || len(show.Cast) != 1 {
		t.Errorf("Genres/directors/cast = %d/%d/%d", len(show.Genres), len(show.Directors), len(show.Cast))
	}
	if len(show.Seasons) != 2 {
		t.Fatalf("Expected 2 seasons, got %d", len(show.Seasons))
	}
	s1 := show.Seasons[0]
	if s1.ID != "dark_1" || s1.Number != 1 || len(s1.Episodes) != 2 {
		t.Errorf("Unexpected season %+v", s1)
	}
	ep := s1.Episodes[1]
	if ep.ID != "dark-s01e02" || ep.Number != 2 || ep.Title != "Episode 2" {
		t.Errorf("Unexpected episode %+v", ep)
	}
	if ep.Show == nil || ep.Show.ID != "dark" || ep.Season == nil || ep.Season.ID != "dark_1" {
		t.Errorf("Episode refs = %+v / %+v", ep.Show, ep.Season)
	}
}

func TestGetEpisodesBySeason(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, showPage())
	}))

	episodes, err := p.GetEpisodesBySeason(context.Background(), "dark_2")
	if err != nil {
		t.Fatalf("GetEpisodesBySeason failed: %v", err)
	}
	if len(episodes) != 1 || episodes[0].ID != "dark-s02e01" || episodes[0].Season.Number != 2 {
		t.Errorf("Unexpected episodes %+v", episodes)
	}

	episodes, err = p.GetEpisodesBySeason(context.Background(), "dark_9")
	if err != nil || len(episodes) != 0 {
		t.Errorf("Missing season = %v, %v; want empty", episodes, err)
	}

	_, err = p.GetEpisodesBySeason(context.Background(), "dark")
	var pe *apperrors.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("Expected ParseError for a malformed season id, got %v", err)
	}
}

func TestGetServers(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, testutil.GenerateFilmPalastStreamHTML(testutil.FilmPalastStreamOptions{
			Title: "Barbie",
			Hosts: []testutil.HostOptions{
				{Name: "VOE HD", Link: "https://voe.sx/e/abc"},
				{Name: "Bigwarp HD", PlayerURL: "https://bigwarp.io/e/xyz"},
				{Name: "", Link: "/out/1"},
				{Name: "Broken"},
			},
		}))
	}))

	servers, err := p.GetServers(context.Background(), "barbie", models.MovieVideo{ID: "barbie"})
	if err != nil {
		t.Fatalf("GetServers failed: %v", err)
	}
	if len(servers) != 3 {
		t.Fatalf("Expected 3 servers, got %d: %+v", len(servers), servers)
	}
	if servers[0].ID != "VOE" || servers[0].Src != "https://voe.sx/e/abc" {
		t.Errorf("Unexpected first server %+v", servers[0])
	}
	if servers[1].Name != "Bigwarp HD (VLC Only)" || servers[1].Src != "https://bigwarp.io/e/xyz" {
		t.Errorf("Unexpected VLC server %+v", servers[1])
	}
	if servers[2].Name != "Unbekannt" || !strings.HasSuffix(servers[2].Src, "/out/1") {
		t.Errorf("Unexpected unnamed server %+v", servers[2])
	}
}

func TestGetVideo_FollowsRedirect(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/out/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/host/e/abc", http.StatusFound)
	})
	mux.HandleFunc("/host/e/abc", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, "<html></html>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	stub := &stubExtractor{mainURL: srv.URL}
	p := New(client.New(client.Options{Timeout: 5 * time.Second}), srv.URL, extractors.NewRegistry(stub))

	video, err := p.GetVideo(context.Background(), models.Server{ID: "Stub", Name: "Stub", Src: srv.URL + "/out/1"})
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if len(stub.links) != 1 || stub.links[0] != srv.URL+"/host/e/abc" {
		t.Errorf("Extractor links = %v", stub.links)
	}
	if video.Source != srv.URL+"/host/e/abc.m3u8" {
		t.Errorf("Source = %q", video.Source)
	}
}

func TestGetVideo_NoRegistry(t *testing.T) {
	t.Parallel()
	p := New(client.New(client.Options{}), "", nil)
	if _, err := p.GetVideo(context.Background(), models.Server{Src: "https://voe.sx/e/x"}); err == nil {
		t.Error("Expected an error without an extractor registry")
	}
}

func TestParseSeasonID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		id      string
		show    string
		number  int
		wantErr bool
	}{
		{"dark_2", "dark", 2, false},
		{"the_office_10", "the_office", 10, false},
		{"dark", "", 0, true},
		{"dark_0", "", 0, true},
		{"_1", "", 0, true},
	}
	for _, tt := range tests {
		show, n, err := parseSeasonID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSeasonID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (show != tt.show || n != tt.number) {
			t.Errorf("parseSeasonID(%q) = %q, %d", tt.id, show, n)
		}
	}
}
