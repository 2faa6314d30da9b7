package altadefinizione01

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/ranking"
	"github.com/Belphemur/StreamScraper/internal/testutil"
)

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func newTestProvider(t *testing.T, policy *ranking.Policy, handler func(srv *httptest.Server) http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(srv).ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	p := New(client.New(client.Options{Timeout: 5 * time.Second}), Options{BaseURL: srv.URL, Ranking: policy})
	return p, srv
}

func darkPage() string {
	return testutil.GenerateAltadefinizioneDetailHTML(testutil.AltadefinizioneDetailOptions{
		Title:    "Dark",
		Poster:   "/uploads/dark.jpg",
		Rating:   "8.7",
		Overview: "Viaggi nel tempo.",
		Trailer:  "https://www.youtube.com/watch?v=abc",
		Genres:   []testutil.LinkOptions{{Name: "Drammatico", URL: "/drammatico/"}, {Name: "Prossimamente", URL: "/prossimamente/"}},
		Cast:     []testutil.LinkOptions{{Name: "Louis Hofmann", URL: "/xfsearch/attori/louis+hofmann/"}},
		Seasons: []testutil.SeasonOptions{
			{Number: 1, Episodes: []testutil.EpisodeOptions{
				{Number: 1, Title: "Segreti", Mirrors: []testutil.MirrorOptions{
					{Name: "Supervideo 4K", Link: "//supervideo.cc/4k/e1"},
					{Name: "Supervideo", Link: "//supervideo.cc/e/e1"},
					{Name: "Dropload 4K", Link: "https://dropload.io/4k/e1"},
					{Name: "Mixdrop", Link: "https://mixdrop.co/e/e1"},
				}},
				{Number: 2, Title: "Bugie", Mirrors: []testutil.MirrorOptions{{Name: "Supervideo", Link: "//supervideo.cc/e/e2"}}},
			}},
			{Number: 2, Episodes: []testutil.EpisodeOptions{
				{Number: 1, Title: "Inizi", Mirrors: []testutil.MirrorOptions{{Name: "Supervideo", Link: "//supervideo.cc/e/s2e1"}}},
			}},
		},
	})
}

func TestSearch_BlankQueryReturnsSortedGenres(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, nil, func(*httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeHTML(w, testutil.GenerateAltadefinizionePageHTML(testutil.AltadefinizionePageOptions{
				Genres: []testutil.LinkOptions{
					{Name: "Thriller", URL: "/thriller/"},
					{Name: "Animazione", URL: "/animazione/"},
					{Name: "Commedia", URL: "https://other.test/commedia/"},
				},
			}))
		})
	})

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
	if got := strings.Join(names, ","); got != "Animazione,Commedia,Thriller" {
		t.Errorf("Genres = %s", got)
	}
	if !strings.HasPrefix(items[0].ItemID(), p.BaseURL()) || !strings.HasSuffix(items[0].ItemID(), "/animazione/") {
		t.Errorf("Relative genre link not resolved: %q", items[0].ItemID())
	}
	if items[1].ItemID() != "https://other.test/commedia/" {
		t.Errorf("Absolute genre link changed: %q", items[1].ItemID())
	}
}

func TestSearch_Paging(t *testing.T) {
	t.Parallel()
	var (
		mu      sync.Mutex
		queries []string
	)
	p, srv := newTestProvider(t, nil, func(srv *httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			queries = append(queries, r.URL.RawQuery)
			mu.Unlock()
			writeHTML(w, testutil.GenerateAltadefinizionePageHTML(testutil.AltadefinizionePageOptions{
				Results: []testutil.GridItemOptions{
					{URL: srv.URL + "/dune.html", Title: "Dune", Poster: "//cdn.test/dune.jpg"},
					{URL: srv.URL + "/dark.html", Title: "Dark", TvShow: true},
				},
				Paging: true,
			}))
		})
	})

	items, err := p.Search(context.Background(), "dune part", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(items))
	}
	movie, ok := items[0].(*models.Movie)
	if !ok || movie.ID != srv.URL+"/dune.html" || movie.Poster != "https://cdn.test/dune.jpg" {
		t.Errorf("Unexpected movie %#v", items[0])
	}
	if _, ok := items[1].(*models.TvShow); !ok {
		t.Errorf("Expected a TV show, got %T", items[1])
	}
	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(queries))
	}
	if !strings.Contains(queries[1], "search_start=3") || !strings.Contains(queries[1], "result_from=101") {
		t.Errorf("Paged query = %q", queries[1])
	}
	if !strings.Contains(queries[0], "story=dune+part") {
		t.Errorf("First query = %q", queries[0])
	}
}

func TestGetHome(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, nil, func(srv *httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeHTML(w, testutil.GenerateAltadefinizionePageHTML(testutil.AltadefinizionePageOptions{
				Sliders: []testutil.SectionOptions{{Name: "Al cinema", Items: []testutil.GridItemOptions{{URL: "/dune.html", Title: "Dune"}}}},
				Latest: []testutil.SectionOptions{
					{Name: "Ultimi film", Items: []testutil.GridItemOptions{{URL: "/barbie.html", Title: "Barbie"}}},
					{Items: []testutil.GridItemOptions{{URL: "/dark.html", Title: "Dark", TvShow: true}}},
					{Name: "Vuoto"},
				},
			}))
		})
	})

	home, err := p.GetHome(context.Background())
	if err != nil {
		t.Fatalf("GetHome failed: %v", err)
	}
	var names []string
	for _, c := range home.Value {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, "|"); got != "Al cinema|Ultimi film|Sub ITA" {
		t.Errorf("Categories = %s", got)
	}
	if len(home.Dropped) != 1 || home.Dropped[0].Section != "Vuoto" {
		t.Errorf("Dropped = %+v", home.Dropped)
	}
}

func TestGetTvShow(t *testing.T) {
	t.Parallel()
	p, srv := newTestProvider(t, nil, func(*httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { writeHTML(w, darkPage()) })
	})
	id := srv.URL + "/serie-tv/dark.html"

	show, err := p.GetTvShow(context.Background(), id)
	if err != nil {
		t.Fatalf("GetTvShow failed: %v", err)
	}
	if show.Title != "Dark" || show.Overview != "Viaggi nel tempo." || show.Poster != srv.URL+"/uploads/dark.jpg" {
		t.Errorf("Unexpected details %+v", show.ShowDetails)
	}
	if show.Rating == nil || *show.Rating != 8.7 || show.Trailer == "" {
		t.Errorf("Rating/trailer = %v/%q", show.Rating, show.Trailer)
	}
	if len(show.Genres) != 1 || show.Genres[0].Name != "Drammatico" {
		t.Errorf("Genres = %+v", show.Genres)
	}
	if len(show.Cast) != 1 || show.Cast[0].ID != srv.URL+"/xfsearch/attori/louis+hofmann/" {
		t.Errorf("Cast = %+v", show.Cast)
	}
	if len(show.Seasons) != 2 {
		t.Fatalf("Expected 2 seasons, got %d", len(show.Seasons))
	}
	s1 := show.Seasons[0]
	if s1.ID != id+"#season-1" || len(s1.Episodes) != 2 {
		t.Errorf("Unexpected season %+v", s1)
	}
	ep := s1.Episodes[1]
	if ep.ID != id+"#s1e2" || ep.Number != 2 || ep.Title != "Bugie" {
		t.Errorf("Unexpected episode %+v", ep)
	}

	episodes, err := p.GetEpisodesBySeason(context.Background(), show.Seasons[1].ID)
	if err != nil {
		t.Fatalf("GetEpisodesBySeason failed: %v", err)
	}
	if len(episodes) != 1 || episodes[0].ID != id+"#s2e1" || episodes[0].Title != "Inizi" {
		t.Errorf("Unexpected episodes %+v", episodes)
	}
}

func TestGetServers_EpisodeDropsFourKDuplicates(t *testing.T) {
	t.Parallel()
	p, srv := newTestProvider(t, nil, func(*httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { writeHTML(w, darkPage()) })
	})
	id := models.EpisodeKey{ShowID: srv.URL + "/serie-tv/dark.html", Season: 1, Episode: 1}.String()

	servers, err := p.GetServers(context.Background(), id, models.EpisodeVideo{ID: id, Number: 1})
	if err != nil {
		t.Fatalf("GetServers failed: %v", err)
	}
	var names []string
	for _, s := range servers {
		names = append(names, s.Name)
		if s.Name == "Supervideo 4K" {
			t.Errorf("4K duplicate of Supervideo must be dropped")
		}
	}
	// Dropload 4K has no plain equivalent and stays.
	if got := strings.Join(names, ","); got != "Supervideo,Dropload 4K,Mixdrop" {
		t.Errorf("Servers = %s", got)
	}
	if servers[0].Src != "https://supervideo.cc/e/e1" {
		t.Errorf("Protocol-relative link not normalized: %q", servers[0].Src)
	}
}

func TestGetServers_EpisodeKeepsFourKWhenConfigured(t *testing.T) {
	t.Parallel()
	policy := ranking.Policy{FourK: ranking.FourKDeprioritize, Dedupe: true}
	p, srv := newTestProvider(t, &policy, func(*httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { writeHTML(w, darkPage()) })
	})
	id := models.EpisodeKey{ShowID: srv.URL + "/serie-tv/dark.html", Season: 1, Episode: 1}.String()

	servers, err := p.GetServers(context.Background(), id, models.EpisodeVideo{ID: id})
	if err != nil {
		t.Fatalf("GetServers failed: %v", err)
	}
	if len(servers) != 4 || servers[3].Name != "Supervideo 4K" {
		t.Errorf("Expected the 4K duplicate last, got %+v", servers)
	}
}

func TestGetServers_UnknownEpisode(t *testing.T) {
	t.Parallel()
	p, srv := newTestProvider(t, nil, func(*httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { writeHTML(w, darkPage()) })
	})
	id := models.EpisodeKey{ShowID: srv.URL + "/serie-tv/dark.html", Season: 1, Episode: 9}.String()

	servers, err := p.GetServers(context.Background(), id, models.EpisodeVideo{ID: id})
	if err != nil || len(servers) != 0 {
		t.Errorf("Unknown episode = %+v, %v; want empty", servers, err)
	}
	if _, err := p.GetServers(context.Background(), "not-an-episode", models.EpisodeVideo{}); err == nil {
		t.Error("Expected an error for a malformed episode id")
	}
}

func TestGetServers_Movie(t *testing.T) {
	t.Parallel()
	p, srv := newTestProvider(t, nil, func(srv *httptest.Server) http.Handler {
		mux := http.NewServeMux()
		mux.HandleFunc("/dune.html", func(w http.ResponseWriter, r *http.Request) {
			writeHTML(w, testutil.GenerateAltadefinizioneDetailHTML(testutil.AltadefinizioneDetailOptions{
				Title:    "Dune",
				EmbedURL: srv.URL + "/mostraguarda.stream/movie/tt1160419",
			}))
		})
		mux.HandleFunc("/mostraguarda.stream/movie/tt1160419", func(w http.ResponseWriter, r *http.Request) {
			writeHTML(w, testutil.GenerateMostraguardaEmbedHTML([]testutil.MirrorOptions{
				{Name: "Supervideo", Link: "//supervideo.cc/e/dune"},
				{Name: "Supervideo", Link: "supervideo.cc/e/dune-fhd", FullHD: true},
				{Name: "Dropload", Link: "//supervideo.cc/e/dune"},
				{Name: "Empty"},
			}))
		})
		return mux
	})

	servers, err := p.GetServers(context.Background(), srv.URL+"/dune.html", models.MovieVideo{ID: srv.URL + "/dune.html"})
	if err != nil {
		t.Fatalf("GetServers failed: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("Expected 2 servers, got %+v", servers)
	}
	if servers[1].Name != "Supervideo (FullHD)" || servers[1].Src != "https://supervideo.cc/e/dune-fhd" {
		t.Errorf("Unexpected FullHD server %+v", servers[1])
	}
}

func TestGetServers_MovieWithoutEmbed(t *testing.T) {
	t.Parallel()
	p, srv := newTestProvider(t, nil, func(*httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeHTML(w, testutil.GenerateAltadefinizioneDetailHTML(testutil.AltadefinizioneDetailOptions{Title: "Dune"}))
		})
	})
	if _, err := p.GetServers(context.Background(), srv.URL+"/dune.html", models.MovieVideo{}); err == nil {
		t.Error("Expected an error without the embed iframe")
	}
}

func TestGetPeople_PagingUsesFindPath(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		paths []string
	)
	p, srv := newTestProvider(t, nil, func(*httptest.Server) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.URL.Path)
			mu.Unlock()
			writeHTML(w, testutil.GenerateAltadefinizionePageHTML(testutil.AltadefinizionePageOptions{
				Results: []testutil.GridItemOptions{{URL: "/dune.html", Title: "Dune"}},
				Paging:  true,
			}))
		})
	})

	people, err := p.GetPeople(context.Background(), srv.URL+"/xfsearch/attori/zendaya/", 2)
	if err != nil {
		t.Fatalf("GetPeople failed: %v", err)
	}
	if len(people.Filmography) != 1 {
		t.Errorf("Filmography = %+v", people.Filmography)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[1] != "/find/zendaya/page/2/" {
		t.Errorf("Requested paths = %v", paths)
	}
}
