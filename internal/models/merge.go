package models

import (
	"slices"
	"time"
)

// MergeMovie returns a copy of fresh carrying the user state of persisted.
// Neither argument is modified and the result shares no memory with them.
// A nil persisted, or one with a different id, yields a plain copy of fresh.
func MergeMovie(fresh, persisted *Movie) *Movie {
	out := fresh.Clone()
	if out == nil || persisted == nil || persisted.ID != fresh.ID {
		return out
	}
	out.IsFavorite = persisted.IsFavorite
	out.IsWatched = persisted.IsWatched
	out.WatchedDate = cloneTime(persisted.WatchedDate)
	out.WatchHistory = persisted.WatchHistory.Clone()
	return out
}

// MergeTvShow returns a copy of fresh carrying the user state of persisted,
// including the state of every episode persisted under a season of the same id.
func MergeTvShow(fresh, persisted *TvShow) *TvShow {
	out := fresh.Clone()
	if out == nil || persisted == nil || persisted.ID != fresh.ID {
		return out
	}
	out.IsFavorite = persisted.IsFavorite
	out.IsWatched = persisted.IsWatched
	out.IsWatching = persisted.IsWatching

	known := make(map[string]*Episode)
	for i := range persisted.Seasons {
		for j := range persisted.Seasons[i].Episodes {
			ep := &persisted.Seasons[i].Episodes[j]
			known[ep.ID] = ep
		}
	}
	for i := range out.Seasons {
		for j := range out.Seasons[i].Episodes {
			ep := &out.Seasons[i].Episodes[j]
			if p, ok := known[ep.ID]; ok {
				applyEpisodeState(ep, p)
			}
		}
	}
	return out
}

// MergeEpisode returns a copy of fresh carrying the watch state of persisted.
func MergeEpisode(fresh, persisted *Episode) *Episode {
	out := fresh.Clone()
	if out == nil || persisted == nil || persisted.ID != fresh.ID {
		return out
	}
	applyEpisodeState(out, persisted)
	return out
}

func applyEpisodeState(dst, persisted *Episode) {
	dst.IsWatched = persisted.IsWatched
	dst.WatchedDate = cloneTime(persisted.WatchedDate)
	dst.WatchHistory = persisted.WatchHistory.Clone()
}

// MergeItem merges any two items. Items of different kinds or ids are not merged and a copy
// of fresh is returned. Genres and people carry no user state so they are only copied.
func MergeItem(fresh, persisted Item) Item {
	if isNil(fresh) {
		return nil
	}
	if !SameItem(fresh, persisted) {
		return CloneItem(fresh)
	}
	switch f := fresh.(type) {
	case *Movie:
		return MergeMovie(f, persisted.(*Movie))
	case *TvShow:
		return MergeTvShow(f, persisted.(*TvShow))
	case *Episode:
		return MergeEpisode(f, persisted.(*Episode))
	case *Genre:
		return f.Clone()
	case *People:
		return f.Clone()
	default:
		return fresh
	}
}

// CloneItem returns a deep copy of any item.
func CloneItem(item Item) Item {
	if isNil(item) {
		return nil
	}
	switch v := item.(type) {
	case *Movie:
		return v.Clone()
	case *TvShow:
		return v.Clone()
	case *Episode:
		return v.Clone()
	case *Genre:
		return v.Clone()
	case *People:
		return v.Clone()
	default:
		return item
	}
}

// Clone returns a deep copy of w.
func (w *WatchHistory) Clone() *WatchHistory {
	if w == nil {
		return nil
	}
	out := *w
	return &out
}

func (d ShowDetails) clone() ShowDetails {
	out := d
	if d.Rating != nil {
		r := *d.Rating
		out.Rating = &r
	}
	out.Genres = cloneGenres(d.Genres)
	out.Directors = clonePeople(d.Directors)
	out.Cast = clonePeople(d.Cast)
	out.WatchHistory = d.WatchHistory.Clone()
	return out
}

// Clone returns a deep copy of m.
func (m *Movie) Clone() *Movie {
	if m == nil {
		return nil
	}
	return &Movie{
		ShowDetails:     m.ShowDetails.clone(),
		WatchedDate:     cloneTime(m.WatchedDate),
		Recommendations: cloneShows(m.Recommendations),
	}
}

// Clone returns a deep copy of s.
func (s *TvShow) Clone() *TvShow {
	if s == nil {
		return nil
	}
	out := &TvShow{
		ShowDetails:     s.ShowDetails.clone(),
		IsWatching:      s.IsWatching,
		Recommendations: cloneShows(s.Recommendations),
	}
	if s.Seasons != nil {
		out.Seasons = make([]Season, len(s.Seasons))
		for i := range s.Seasons {
			out.Seasons[i] = s.Seasons[i].clone()
		}
	}
	return out
}

func (s Season) clone() Season {
	out := s
	if s.Episodes != nil {
		out.Episodes = make([]Episode, len(s.Episodes))
		for i := range s.Episodes {
			out.Episodes[i] = *s.Episodes[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of e.
func (e *Episode) Clone() *Episode {
	if e == nil {
		return nil
	}
	out := *e
	if e.Show != nil {
		ref := *e.Show
		out.Show = &ref
	}
	if e.Season != nil {
		ref := *e.Season
		out.Season = &ref
	}
	out.WatchedDate = cloneTime(e.WatchedDate)
	out.WatchHistory = e.WatchHistory.Clone()
	return &out
}

// Clone returns a deep copy of g.
func (g *Genre) Clone() *Genre {
	if g == nil {
		return nil
	}
	return &Genre{ID: g.ID, Name: g.Name, Shows: cloneShows(g.Shows)}
}

// Clone returns a deep copy of p.
func (p *People) Clone() *People {
	if p == nil {
		return nil
	}
	return &People{ID: p.ID, Name: p.Name, Image: p.Image, Filmography: cloneShows(p.Filmography)}
}

func cloneShows(shows ShowList) ShowList {
	if shows == nil {
		return nil
	}
	out := make(ShowList, 0, len(shows))
	for _, s := range shows {
		if c, ok := CloneItem(s).(Show); ok {
			out = append(out, c)
		}
	}
	return out
}

func cloneGenres(genres []Genre) []Genre {
	if genres == nil {
		return nil
	}
	out := make([]Genre, len(genres))
	for i := range genres {
		out[i] = *genres[i].Clone()
	}
	return out
}

func clonePeople(people []People) []People {
	if people == nil {
		return nil
	}
	out := make([]People, len(people))
	for i := range people {
		out[i] = *people[i].Clone()
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// MergeAll merges every fresh item with the persisted item of the same kind and id, if any.
func MergeAll[T Item](fresh []T, persisted []Item) []Item {
	index := make(map[itemKey]Item, len(persisted))
	for _, p := range persisted {
		if !isNil(p) {
			index[itemKey{kind: p.Kind(), id: p.ItemID()}] = p
		}
	}
	out := make([]Item, 0, len(fresh))
	for _, f := range fresh {
		if isNil(f) {
			continue
		}
		out = append(out, MergeItem(f, index[itemKey{kind: f.Kind(), id: f.ItemID()}]))
	}
	return slices.Clip(out)
}
