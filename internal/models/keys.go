package models

import (
	"fmt"
	"strconv"
	"strings"
)

// EpisodeKey locates an episode inside a show page. Providers that have no dedicated
// episode URL encode it into an opaque id as "<ShowID>#s<Season>e<Episode>".
type EpisodeKey struct {
	ShowID  string
	Season  int
	Episode int
}

// String encodes the key.
func (k EpisodeKey) String() string {
	return fmt.Sprintf("%s#s%de%d", k.ShowID, k.Season, k.Episode)
}

// ParseEpisodeKey decodes an id produced by EpisodeKey.String.
func ParseEpisodeKey(id string) (EpisodeKey, error) {
	show, frag, ok := cutLast(id, "#s")
	if !ok {
		return EpisodeKey{}, fmt.Errorf("episode key %q: missing season marker", id)
	}
	seasonStr, episodeStr, ok := strings.Cut(frag, "e")
	if !ok {
		return EpisodeKey{}, fmt.Errorf("episode key %q: missing episode marker", id)
	}
	season, err := strconv.Atoi(seasonStr)
	if err != nil {
		return EpisodeKey{}, fmt.Errorf("episode key %q: bad season: %w", id, err)
	}
	episode, err := strconv.Atoi(episodeStr)
	if err != nil {
		return EpisodeKey{}, fmt.Errorf("episode key %q: bad episode: %w", id, err)
	}
	return EpisodeKey{ShowID: show, Season: season, Episode: episode}, nil
}

// SeasonKey locates a season inside a show page, encoded as "<ShowID>#season-<Season>".
type SeasonKey struct {
	ShowID string
	Season int
}

// String encodes the key.
func (k SeasonKey) String() string {
	return fmt.Sprintf("%s#season-%d", k.ShowID, k.Season)
}

// ParseSeasonKey decodes an id produced by SeasonKey.String.
func ParseSeasonKey(id string) (SeasonKey, error) {
	show, num, ok := cutLast(id, "#season-")
	if !ok {
		return SeasonKey{}, fmt.Errorf("season key %q: missing season marker", id)
	}
	season, err := strconv.Atoi(num)
	if err != nil {
		return SeasonKey{}, fmt.Errorf("season key %q: bad season: %w", id, err)
	}
	return SeasonKey{ShowID: show, Season: season}, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
