package streamingcommunity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/testutil"
)

// fakeSite serves the inertia endpoints of a StreamingCommunity instance.
type fakeSite struct {
	mu           sync.Mutex
	version      string
	htmlFetches  atomic.Int32
	lastQuery    string
	lastIframe   string
	searchResult map[string]any
}

func titleJSON(id int, slug, name, kind string) map[string]any {
	return map[string]any{
		"id":            id,
		"slug":          slug,
		"name":          name,
		"type":          kind,
		"score":         "7.5",
		"last_air_date": "2021-10-22",
		"images":        []map[string]any{{"filename": slug + "-poster.jpg", "type": "poster"}},
	}
}

func (f *fakeSite) currentVersion() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *fakeSite) setVersion(v string) {
	f.mu.Lock()
	f.version = v
	f.mu.Unlock()
}

func (f *fakeSite) setSearchResult(v map[string]any) {
	f.mu.Lock()
	f.searchResult = v
	f.mu.Unlock()
}

func (f *fakeSite) requests() (query, iframe string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery, f.lastIframe
}

func (f *fakeSite) homeProps(appURL string) map[string]any {
	return map[string]any{
		"app_url": appURL,
		"genres": []map[string]any{
			{"id": 3, "name": "Thriller"},
			{"id": 1, "name": "Azione"},
			{"id": 2, "name": "Commedia"},
		},
		"sliders": []map[string]any{
			{"label": "Titoli del momento", "titles": []any{titleJSON(1, "dune", "Dune", "movie")}},
			{"label": "Aggiunti di recente", "titles": []any{titleJSON(2, "dark", "Dark", "tv")}},
			{"label": "Top 10", "titles": []any{titleJSON(1, "dune", "Dune", "movie"), titleJSON(2, "dark", "Dark", "tv")}},
		},
	}
}

func (f *fakeSite) handler(srv **httptest.Server) http.Handler {
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	inertia := func(w http.ResponseWriter, r *http.Request, props map[string]any) {
		if r.Header.Get("X-Inertia") != "true" {
			f.htmlFetches.Add(1)
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(testutil.GenerateInertiaAppHTML(map[string]any{
				"version": f.currentVersion(),
				"props":   f.homeProps((*srv).URL),
			})))
			return
		}
		if r.Header.Get("X-Inertia-Version") != f.currentVersion() {
			w.WriteHeader(http.StatusConflict)
			return
		}
		writeJSON(w, map[string]any{"version": f.currentVersion(), "props": props})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/it", func(w http.ResponseWriter, r *http.Request) {
		inertia(w, r, f.homeProps((*srv).URL))
	})
	mux.HandleFunc("/it/titles/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/it/titles/")
		if season, ok := strings.CutPrefix(path, "2-dark/season-"); ok {
			inertia(w, r, map[string]any{
				"loadedSeason": map[string]any{"episodes": []map[string]any{
					{"id": 101, "name": "Segreti", "number": 1, "images": []map[string]any{{"filename": "e1.jpg", "type": "cover"}}},
					{"id": 102, "name": "Bugie", "number": 2},
				}},
				"season": season,
			})
			return
		}
		title := titleJSON(2, "dark", "Dark", "tv")
		title["plot"] = "Viaggi nel tempo"
		title["genres"] = []map[string]any{{"id": 2, "name": "Drama"}}
		title["main_actors"] = []map[string]any{{"name": "Louis Hofmann"}}
		title["trailers"] = []map[string]any{{"youtube_id": "abc123"}}
		title["seasons"] = []map[string]any{{"number": 1}, {"number": "2"}}
		inertia(w, r, map[string]any{
			"title":   title,
			"sliders": []map[string]any{{"titles": []any{titleJSON(1, "dune", "Dune", "movie")}}},
		})
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastQuery = r.URL.RawQuery
		res := f.searchResult
		f.mu.Unlock()
		writeJSON(w, res)
	})
	mux.HandleFunc("/it/iframe/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastIframe = r.URL.RequestURI()
		f.mu.Unlock()
		_, _ = w.Write([]byte(`<html><body><iframe src="https://vixcloud.co/embed/42?token=x"></iframe></body></html>`))
	})
	return mux
}

func newFakeProvider(t *testing.T) (*Provider, *fakeSite, *httptest.Server) {
	t.Helper()
	site := &fakeSite{version: "v1"}
	var srv *httptest.Server
	srv = httptest.NewServer(site.handler(&srv))
	t.Cleanup(srv.Close)
	p := New(client.New(client.Options{Timeout: 5 * time.Second}), Options{Domain: srv.URL})
	return p, site, srv
}

func TestNew_DefaultDomain(t *testing.T) {
	t.Parallel()
	p := New(client.New(client.Options{}), Options{})
	if p.BaseURL() != "https://"+DefaultDomain+"/" {
		t.Errorf("BaseURL = %q", p.BaseURL())
	}
}

func TestGetHome(t *testing.T) {
	t.Parallel()
	p, site, _ := newFakeProvider(t)

	home, err := p.GetHome(context.Background())
	if err != nil {
		t.Fatalf("GetHome failed: %v", err)
	}
	if !home.Complete() {
		t.Errorf("Unexpected dropped sections %+v", home.Dropped)
	}
	var names []string
	for _, c := range home.Value {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, "|"); got != "Featured|Titoli del momento|Aggiunti di recente" {
		t.Errorf("Categories = %s", got)
	}
	featured := home.Value[0].Items
	if len(featured) != 2 {
		t.Fatalf("Expected 2 featured items, got %d", len(featured))
	}
	movie, ok := featured[0].(*models.Movie)
	if !ok || movie.ID != "1-dune" {
		t.Errorf("Unexpected featured item %#v", featured[0])
	}
	if movie.Rating == nil || *movie.Rating != 7.5 {
		t.Errorf("Rating = %v", movie.Rating)
	}
	if !strings.HasSuffix(movie.Poster, "/images/dune-poster.jpg") || !strings.HasPrefix(movie.Poster, "https://cdn.") {
		t.Errorf("Poster = %q", movie.Poster)
	}
	if _, ok := featured[1].(*models.TvShow); !ok {
		t.Errorf("Expected the second featured item to be a TV show, got %T", featured[1])
	}
	if site.htmlFetches.Load() != 1 {
		t.Errorf("Version page fetched %d times", site.htmlFetches.Load())
	}
}

func TestSearch_BlankQueryReturnsSortedGenres(t *testing.T) {
	t.Parallel()
	p, _, _ := newFakeProvider(t)

	items, err := p.Search(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	var names []string
	for _, item := range items {
		g, ok := item.(*models.Genre)
		if !ok {
			t.Fatalf("Expected genres only, got %T", item)
		}
		names = append(names, g.Name)
	}
	if got := strings.Join(names, ","); got != "Azione,Commedia,Thriller" {
		t.Errorf("Genres = %s", got)
	}
	if items[0].ItemID() != "1" {
		t.Errorf("Genre id = %q, want 1", items[0].ItemID())
	}
}

func TestSearch_Paging(t *testing.T) {
	t.Parallel()
	p, site, _ := newFakeProvider(t)

	site.setSearchResult(map[string]any{
		"data":         []any{titleJSON(1, "dune", "Dune", "movie")},
		"current_page": 2,
		"last_page":    3,
	})
	items, err := p.Search(context.Background(), "dune", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(items))
	}
	if query, _ := site.requests(); !strings.Contains(query, "offset=60") || !strings.Contains(query, "q=dune") {
		t.Errorf("Query = %q", query)
	}

	site.setSearchResult(map[string]any{"data": []any{titleJSON(1, "dune", "Dune", "movie")}, "current_page": 4, "last_page": 3})
	items, err = p.Search(context.Background(), "dune", 4)
	if err != nil || len(items) != 0 {
		t.Errorf("Past the last page = %v, %v; want empty", items, err)
	}

	site.setSearchResult(map[string]any{"data": []any{}})
	items, err = p.Search(context.Background(), "dune", 1)
	if err != nil || len(items) != 0 {
		t.Errorf("Missing paging fields = %v, %v; want empty", items, err)
	}
}

func TestStaleVersion(t *testing.T) {
	t.Parallel()
	p, site, _ := newFakeProvider(t)

	if _, err := p.GetTvShow(context.Background(), "2-dark"); err != nil {
		t.Fatalf("First call failed: %v", err)
	}

	site.setVersion("v2")
	_, err := p.GetTvShow(context.Background(), "2-dark")
	var stale *apperrors.StaleSessionError
	if !errors.As(err, &stale) {
		t.Fatalf("Expected StaleSessionError, got %v", err)
	}
	if stale.StatusCode != http.StatusConflict || !apperrors.IsStaleSession(err) {
		t.Errorf("Unexpected stale error %+v", stale)
	}
	if p.cachedVersion() != "" {
		t.Errorf("Version must be cleared after a 409, got %q", p.cachedVersion())
	}

	if _, err := p.GetTvShow(context.Background(), "2-dark"); err != nil {
		t.Fatalf("Call after refetching the version failed: %v", err)
	}
	if p.cachedVersion() != "v2" {
		t.Errorf("Version = %q, want v2", p.cachedVersion())
	}
	if site.htmlFetches.Load() != 2 {
		t.Errorf("Version page fetched %d times, want 2", site.htmlFetches.Load())
	}
}

func TestConcurrentCallsFetchVersionOnce(t *testing.T) {
	t.Parallel()
	p, site, _ := newFakeProvider(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.GetMovie(context.Background(), "1-dune"); err != nil {
				t.Errorf("GetMovie failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if site.htmlFetches.Load() != 1 {
		t.Errorf("Version page fetched %d times, want 1", site.htmlFetches.Load())
	}
}

func TestGetTvShowAndEpisodes(t *testing.T) {
	t.Parallel()
	p, _, _ := newFakeProvider(t)

	show, err := p.GetTvShow(context.Background(), "2-dark")
	if err != nil {
		t.Fatalf("GetTvShow failed: %v", err)
	}
	if show.ID != "2-dark" || show.Overview != "Viaggi nel tempo" || show.Trailer != "https://youtube.com/watch?v=abc123" {
		t.Errorf("Unexpected details %+v", show.ShowDetails)
	}
	if len(show.Genres) != 1 || len(show.Cast) != 1 || len(show.Recommendations) != 1 {
		t.Errorf("Genres/cast/recommendations = %d/%d/%d", len(show.Genres), len(show.Cast), len(show.Recommendations))
	}
	if len(show.Seasons) != 2 || show.Seasons[1].ID != "2-dark/season-2" || show.Seasons[1].Number != 2 {
		t.Fatalf("Unexpected seasons %+v", show.Seasons)
	}

	episodes, err := p.GetEpisodesBySeason(context.Background(), show.Seasons[1].ID)
	if err != nil {
		t.Fatalf("GetEpisodesBySeason failed: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("Expected 2 episodes, got %d", len(episodes))
	}
	ep := episodes[0]
	if ep.ID != "2-dark?episode_id=101" || ep.Number != 1 || ep.Title != "Segreti" {
		t.Errorf("Unexpected episode %+v", ep)
	}
	if ep.Season == nil || ep.Season.Number != 2 || ep.Show == nil || ep.Show.ID != "2-dark" {
		t.Errorf("Episode refs = %+v / %+v", ep.Season, ep.Show)
	}
	if !strings.HasSuffix(ep.Poster, "/images/e1.jpg") {
		t.Errorf("Poster = %q", ep.Poster)
	}

	if _, err := p.GetEpisodesBySeason(context.Background(), "2-dark"); err == nil {
		t.Error("Expected an error for a season id without a number")
	}
}

func TestGetServers(t *testing.T) {
	t.Parallel()
	p, site, _ := newFakeProvider(t)

	servers, err := p.GetServers(context.Background(), "2-dark?episode_id=101", models.EpisodeVideo{ID: "2-dark?episode_id=101"})
	if err != nil {
		t.Fatalf("GetServers failed: %v", err)
	}
	if len(servers) != 1 || servers[0].Name != "Vixcloud" || servers[0].Src != "https://vixcloud.co/embed/42?token=x" {
		t.Errorf("Unexpected servers %+v", servers)
	}
	if _, iframe := site.requests(); iframe != "/it/iframe/2?episode_id=101&next_episode=1" {
		t.Errorf("Iframe request = %q", iframe)
	}

	if _, err := p.GetServers(context.Background(), "1-dune", models.MovieVideo{ID: "1-dune"}); err != nil {
		t.Fatalf("Movie GetServers failed: %v", err)
	}
	if _, iframe := site.requests(); iframe != "/it/iframe/1" {
		t.Errorf("Iframe request = %q", iframe)
	}
}

func TestRefreshDomain(t *testing.T) {
	t.Parallel()
	_, _, srv := newFakeProvider(t)

	old := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/it", http.StatusMovedPermanently)
	}))
	t.Cleanup(old.Close)

	var changed []string
	var mu sync.Mutex
	p := New(client.New(client.Options{Timeout: 5 * time.Second}), Options{
		Domain: old.URL,
		OnDomainChange: func(base string) {
			mu.Lock()
			changed = append(changed, base)
			mu.Unlock()
		},
	})
	p.setVersion("stale")

	if err := p.RefreshDomain(context.Background()); err != nil {
		t.Fatalf("RefreshDomain failed: %v", err)
	}
	if p.BaseURL() != srv.URL+"/" {
		t.Errorf("BaseURL = %q, want %q", p.BaseURL(), srv.URL+"/")
	}
	if p.cachedVersion() != "" {
		t.Error("Version must be cleared after a domain change")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changed) != 1 || changed[0] != srv.URL+"/" {
		t.Errorf("OnDomainChange calls = %v", changed)
	}
}

func TestDomainDrift_RediscoversOnNotFound(t *testing.T) {
	t.Parallel()
	_, _, srv := newFakeProvider(t)

	// The retired domain only redirects its root; every other path is gone.
	old := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, srv.URL+"/", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(old.Close)

	p := New(client.New(client.Options{Timeout: 5 * time.Second}), Options{Domain: old.URL})
	for range 2 {
		items, err := p.Search(context.Background(), "", 1)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(items) != 3 {
			t.Errorf("Expected 3 genres, got %d", len(items))
		}
	}
	if p.BaseURL() != srv.URL+"/" {
		t.Errorf("BaseURL = %q, want %q", p.BaseURL(), srv.URL+"/")
	}
}

func TestRedirectedRequestsAdoptNewDomain(t *testing.T) {
	t.Parallel()
	_, _, srv := newFakeProvider(t)

	var oldHits atomic.Int32
	old := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oldHits.Add(1)
		http.Redirect(w, r, srv.URL+r.URL.RequestURI(), http.StatusMovedPermanently)
	}))
	t.Cleanup(old.Close)

	var changed atomic.Int32
	p := New(client.New(client.Options{Timeout: 5 * time.Second}), Options{
		Domain:         old.URL,
		OnDomainChange: func(string) { changed.Add(1) },
	})
	if _, err := p.GetTvShow(context.Background(), "2-dark"); err != nil {
		t.Fatalf("GetTvShow failed: %v", err)
	}
	if p.BaseURL() != srv.URL+"/" {
		t.Errorf("BaseURL = %q, want %q", p.BaseURL(), srv.URL+"/")
	}
	hits := oldHits.Load()
	if _, err := p.GetTvShow(context.Background(), "2-dark"); err != nil {
		t.Fatalf("Second GetTvShow failed: %v", err)
	}
	if oldHits.Load() != hits {
		t.Error("Requests after the redirect must go to the new domain")
	}
	if changed.Load() != 1 {
		t.Errorf("OnDomainChange called %d times, want 1", changed.Load())
	}
}
