package storage

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/providers/builtin"
	"github.com/Belphemur/StreamScraper/internal/testutil"
)

var _ builtin.DomainStore = (*Preferences)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesDirectoryAndMigratesOnce(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "streamscraper.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Movies("p").Save(context.Background(), &models.Movie{ShowDetails: models.ShowDetails{ID: "m", Title: "M"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()
	if _, err := s.Movies("p").GetByID(context.Background(), "m"); err != nil {
		t.Errorf("Movie lost across reopen: %v", err)
	}
}

func TestRepository_SaveAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	movies := s.Movies("StreamingCommunity")

	rating := 7.5
	m := &models.Movie{
		ShowDetails: models.ShowDetails{ID: "42-dune", Title: "Dune", Rating: &rating, IsFavorite: true},
		Recommendations: models.ShowList{&models.TvShow{ShowDetails: models.ShowDetails{ID: "7", Title: "Dark"}}},
	}
	if err := movies.Save(ctx, m); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := movies.GetByID(ctx, "42-dune")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Dune" || !got.IsFavorite || got.Rating == nil || *got.Rating != 7.5 {
		t.Errorf("Unexpected movie %+v", got)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0].ItemID() != "7" {
		t.Errorf("Recommendations not restored: %+v", got.Recommendations)
	}

	m.Title = "Dune: Part One"
	m.IsFavorite = false
	if err := movies.Save(ctx, m); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	all, err := movies.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 || all[0].Title != "Dune: Part One" {
		t.Errorf("Upsert must replace the row, got %+v", all)
	}
	favorites, err := movies.List(ctx, ListOptions{FavoritesOnly: true})
	if err != nil {
		t.Fatalf("List favorites failed: %v", err)
	}
	if len(favorites) != 0 {
		t.Errorf("Favorite flag not updated: %+v", favorites)
	}

	if _, err := s.Movies("FilmPalast").GetByID(ctx, "42-dune"); !errors.Is(err, &apperrors.ErrNotFound{}) {
		t.Errorf("Ids must be scoped by provider, got %v", err)
	}
}

func TestRepository_GetByIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	shows := newTestStore(t).TvShows("p")
	for _, id := range []string{"a", "b", "c"} {
		if err := shows.Save(ctx, &models.TvShow{ShowDetails: models.ShowDetails{ID: id, Title: id}}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	got, err := testutil.CollectStream(cctx, shows.GetByIDs(ctx, []string{"a", "c", "missing"}))
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"a", "c"}) {
		t.Errorf("GetByIDs = %v, want [a c]", ids)
	}

	empty, err := testutil.CollectStream(cctx, shows.GetByIDs(ctx, nil))
	if err != nil || len(empty) != 0 {
		t.Errorf("No ids must yield nothing, got %v, %v", empty, err)
	}
}

func TestRepository_Merge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	episodes := s.Episodes("p")

	stored := &models.Episode{
		ID: "e1", Number: 1, Title: "Old", IsWatched: true,
		WatchHistory: &models.WatchHistory{LastPlaybackPositionMillis: 1000, DurationMillis: 3000},
		Show:         &models.ShowRef{ID: "show"},
	}
	if err := episodes.Save(ctx, stored); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fresh := &models.Episode{ID: "e1", Number: 1, Title: "Pilot", Show: &models.ShowRef{ID: "show"}}
	merged, err := episodes.Merge(ctx, fresh)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.Title != "Pilot" || !merged.IsWatched || merged.WatchHistory == nil || merged.WatchHistory.LastPlaybackPositionMillis != 1000 {
		t.Errorf("Unexpected merge %+v", merged)
	}
	if fresh.IsWatched {
		t.Error("Merge must not modify its input")
	}

	unknown := &models.Episode{ID: "e2", Title: "New"}
	merged, err = episodes.Merge(ctx, unknown)
	if err != nil || merged == unknown || merged.Title != "New" {
		t.Errorf("Unknown ids must yield a copy, got %+v, %v", merged, err)
	}

	byShow, err := episodes.ByShow(ctx, "show", ListOptions{WatchedOnly: true})
	if err != nil {
		t.Fatalf("ByShow failed: %v", err)
	}
	if len(byShow) != 1 || byShow[0].ID != "e1" {
		t.Errorf("ByShow = %+v", byShow)
	}

	if err := episodes.Delete(ctx, "e1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := episodes.GetByID(ctx, "e1"); !errors.Is(err, &apperrors.ErrNotFound{}) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_Providers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.Movies("Zeta").Save(ctx, &models.Movie{ShowDetails: models.ShowDetails{ID: "1"}})
	_ = s.TvShows("Alpha").Save(ctx, &models.TvShow{ShowDetails: models.ShowDetails{ID: "1"}})
	_ = s.Episodes("Zeta").Save(ctx, &models.Episode{ID: "1"})

	names, err := s.Providers(ctx)
	if err != nil {
		t.Fatalf("Providers failed: %v", err)
	}
	if !slices.Equal(names, []string{"Alpha", "Zeta"}) {
		t.Errorf("Providers = %v", names)
	}
}

func TestPreferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := &config.Config{Language: "de", ActiveProvider: "FilmPalast"}
	cfg.DoH.Enabled = true
	cfg.DoH.URL = "https://1.1.1.1/dns-query"
	prefs := newTestStore(t).Preferences(cfg)

	if lang, _ := prefs.Language(ctx); lang != "de" {
		t.Errorf("Language = %q, want the configured de", lang)
	}
	if err := prefs.SetLanguage(ctx, " IT "); err != nil {
		t.Fatalf("SetLanguage failed: %v", err)
	}
	if lang, _ := prefs.Language(ctx); lang != "it" {
		t.Errorf("Language = %q, want it", lang)
	}

	if name, _ := prefs.ActiveProvider(ctx); name != "FilmPalast" {
		t.Errorf("ActiveProvider = %q", name)
	}
	_ = prefs.SetActiveProvider(ctx, "StreamingCommunity")
	if name, _ := prefs.ActiveProvider(ctx); name != "StreamingCommunity" {
		t.Errorf("ActiveProvider = %q", name)
	}

	if url, _ := prefs.DoHURL(ctx); url != "https://1.1.1.1/dns-query" {
		t.Errorf("DoHURL = %q", url)
	}

	if d, err := prefs.DomainOverride(ctx, "StreamingCommunity"); err != nil || d != "" {
		t.Errorf("Unset override = %q, %v", d, err)
	}
	_ = prefs.SetDomainOverride(ctx, "StreamingCommunity", "https://streamingcommunity.new/")
	_ = prefs.SetDomainOverride(ctx, "StreamingCommunity", "https://streamingcommunity.newer/")
	if d, _ := prefs.DomainOverride(ctx, "streamingcommunity"); d != "https://streamingcommunity.newer/" {
		t.Errorf("DomainOverride = %q", d)
	}
	all, err := prefs.DomainOverrides(ctx)
	if err != nil || len(all) != 1 || all["streamingcommunity"] == "" {
		t.Errorf("DomainOverrides = %v, %v", all, err)
	}

	_ = prefs.SetDomainOverride(ctx, "StreamingCommunity", "")
	if d, _ := prefs.DomainOverride(ctx, "StreamingCommunity"); d != "" {
		t.Errorf("Clearing the override left %q", d)
	}
}

func TestPreferences_Defaults(t *testing.T) {
	t.Parallel()
	prefs := newTestStore(t).Preferences(nil)
	ctx := context.Background()
	if lang, _ := prefs.Language(ctx); lang != "it" {
		t.Errorf("Default language = %q, want it", lang)
	}
	if url, _ := prefs.DoHURL(ctx); url != "" {
		t.Errorf("DoH must be off without config, got %q", url)
	}
}
