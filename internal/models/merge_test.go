package models

import (
	"reflect"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func freshMovie() *Movie {
	return &Movie{
		ShowDetails: ShowDetails{
			ID:       "stream/inception",
			Title:    "Inception",
			Overview: "new overview",
			Rating:   ptr(8.8),
			Genres:   []Genre{{ID: "genre/sci-fi", Name: "Sci-Fi"}},
			Cast:     []People{{ID: "p/1", Name: "Leonardo DiCaprio"}},
		},
		Recommendations: ShowList{&Movie{ShowDetails: ShowDetails{ID: "stream/tenet", Title: "Tenet"}}},
	}
}

func persistedMovie() *Movie {
	watched := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	return &Movie{
		ShowDetails: ShowDetails{
			ID:           "stream/inception",
			Title:        "Old title",
			IsFavorite:   true,
			IsWatched:    true,
			WatchHistory: &WatchHistory{LastEngagementTimeUTC: 1, LastPlaybackPositionMillis: 2, DurationMillis: 3},
		},
		WatchedDate: &watched,
	}
}

func freshShow() *TvShow {
	return &TvShow{
		ShowDetails: ShowDetails{ID: "show-1", Title: "Dark"},
		Seasons: []Season{{
			ID:     "show-1#season-1",
			Number: 1,
			Episodes: []Episode{
				{ID: "show-1#s1e1", Number: 1, Title: "Secrets"},
				{ID: "show-1#s1e2", Number: 2, Title: "Lies"},
			},
		}},
	}
}

func persistedShow() *TvShow {
	return &TvShow{
		ShowDetails: ShowDetails{ID: "show-1", Title: "Dark (old)", IsFavorite: true},
		IsWatching:  true,
		Seasons: []Season{{
			ID: "show-1#season-1",
			Episodes: []Episode{
				{ID: "show-1#s1e2", IsWatched: true, WatchHistory: &WatchHistory{DurationMillis: 10}},
			},
		}},
	}
}

func TestMergeMovie(t *testing.T) {
	t.Parallel()
	fresh, persisted := freshMovie(), persistedMovie()
	merged := MergeMovie(fresh, persisted)

	if merged.Title != "Inception" || merged.Overview != "new overview" {
		t.Errorf("Expected scraped fields from fresh, got %q / %q", merged.Title, merged.Overview)
	}
	if !merged.IsFavorite || !merged.IsWatched {
		t.Error("Expected user state from persisted")
	}
	if merged.WatchHistory == nil || merged.WatchHistory.DurationMillis != 3 {
		t.Fatalf("Expected watch history from persisted, got %+v", merged.WatchHistory)
	}
	if merged.WatchedDate == nil || !merged.WatchedDate.Equal(*persisted.WatchedDate) {
		t.Errorf("Expected watched date from persisted, got %v", merged.WatchedDate)
	}
}

func TestMergeMovie_NoAliasing(t *testing.T) {
	t.Parallel()
	fresh, persisted := freshMovie(), persistedMovie()
	merged := MergeMovie(fresh, persisted)

	merged.WatchHistory.DurationMillis = 99
	*merged.Rating = 1
	merged.Genres[0].Name = "changed"
	merged.Recommendations[0].Details().Title = "changed"

	if persisted.WatchHistory.DurationMillis != 3 {
		t.Error("Persisted watch history was aliased")
	}
	if *fresh.Rating != 8.8 {
		t.Error("Fresh rating was aliased")
	}
	if fresh.Genres[0].Name != "Sci-Fi" {
		t.Error("Fresh genres were aliased")
	}
	if fresh.Recommendations[0].Details().Title != "Tenet" {
		t.Error("Fresh recommendations were aliased")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		fresh     Item
		persisted Item
	}{
		{"movie", freshMovie(), persistedMovie()},
		{"tv show", freshShow(), persistedShow()},
		{"episode", &Episode{ID: "e1", Number: 3, Show: &ShowRef{ID: "s"}}, &Episode{ID: "e1", IsWatched: true, WatchedDate: ptr(time.Unix(100, 0))}},
		{"genre", &Genre{ID: "g", Name: "Drama"}, &Genre{ID: "g", Name: "Old"}},
		{"people", &People{ID: "p", Name: "Someone"}, &People{ID: "p"}},
		{"no persisted", freshMovie(), nil},
		{"different id", freshMovie(), &Movie{ShowDetails: ShowDetails{ID: "other", IsFavorite: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			once := MergeItem(tt.fresh, tt.persisted)
			twice := MergeItem(once, tt.persisted)
			if !reflect.DeepEqual(once, twice) {
				t.Errorf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
			}
		})
	}
}

func TestMergeTvShow_Episodes(t *testing.T) {
	t.Parallel()
	merged := MergeTvShow(freshShow(), persistedShow())

	if !merged.IsFavorite || !merged.IsWatching {
		t.Error("Expected show user state from persisted")
	}
	if merged.Title != "Dark" {
		t.Errorf("Expected fresh title, got %q", merged.Title)
	}
	eps := merged.Seasons[0].Episodes
	if eps[0].IsWatched {
		t.Error("Episode 1 should not be watched")
	}
	if !eps[1].IsWatched || eps[1].WatchHistory == nil {
		t.Error("Episode 2 should carry persisted watch state")
	}
}

func TestMergeItem_DifferentKinds(t *testing.T) {
	t.Parallel()
	fresh := freshMovie()
	got := MergeItem(fresh, &TvShow{ShowDetails: ShowDetails{ID: fresh.ID, IsFavorite: true}})

	movie, ok := got.(*Movie)
	if !ok {
		t.Fatalf("Expected *Movie, got %T", got)
	}
	if movie.IsFavorite {
		t.Error("State must not be merged across kinds")
	}
	if movie == fresh {
		t.Error("Expected a copy, got the fresh pointer")
	}
}

func TestMergeAll(t *testing.T) {
	t.Parallel()
	persisted := []Item{persistedMovie(), &Episode{ID: "e", IsWatched: true}}
	fresh := []Item{freshMovie(), &Episode{ID: "e"}, &Genre{ID: "g"}, (*Movie)(nil)}

	got := MergeAll(fresh, persisted)
	if len(got) != 3 {
		t.Fatalf("Expected 3 merged items, got %d", len(got))
	}
	if !got[0].(*Movie).IsFavorite {
		t.Error("Expected movie merged with persisted state")
	}
	if !got[1].(*Episode).IsWatched {
		t.Error("Expected episode merged with persisted state")
	}
}
