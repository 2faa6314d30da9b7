package models

import "time"

// WatchHistory is the persisted playback state of a movie or episode. All values are milliseconds.
type WatchHistory struct {
	LastEngagementTimeUTC      int64 `json:"lastEngagementTimeUtcMillis"`
	LastPlaybackPositionMillis int64 `json:"lastPlaybackPositionMillis"`
	DurationMillis             int64 `json:"durationMillis"`
}

// ShowDetails holds the fields shared by movies and TV shows.
// IsFavorite, IsWatched and WatchHistory are user state: providers never set them.
type ShowDetails struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Overview  string   `json:"overview,omitempty"`
	Released  string   `json:"released,omitempty"` // year or ISO date, as published
	Runtime   int      `json:"runtime,omitempty"`  // minutes
	Rating    *float64 `json:"rating,omitempty"`
	Quality   string   `json:"quality,omitempty"`
	Poster    string   `json:"poster,omitempty"`
	Banner    string   `json:"banner,omitempty"`
	Trailer   string   `json:"trailer,omitempty"`
	Genres    []Genre  `json:"genres,omitempty"`
	Directors []People `json:"directors,omitempty"`
	Cast      []People `json:"cast,omitempty"`

	IsFavorite   bool          `json:"isFavorite"`
	IsWatched    bool          `json:"isWatched"`
	WatchHistory *WatchHistory `json:"watchHistory,omitempty"`
}

// Movie is a single-video show.
type Movie struct {
	ShowDetails
	WatchedDate     *time.Time `json:"watchedDate,omitempty"`
	Recommendations ShowList   `json:"recommendations,omitempty"`
}

// TvShow is a show made of seasons. Seasons may carry no episodes until
// they are fetched individually.
type TvShow struct {
	ShowDetails
	IsWatching      bool     `json:"isWatching"`
	Seasons         []Season `json:"seasons,omitempty"`
	Recommendations ShowList `json:"recommendations,omitempty"`
}

// Season groups episodes. Number 0 means specials or unnumbered.
type Season struct {
	ID       string    `json:"id"`
	Number   int       `json:"number"`
	Title    string    `json:"title,omitempty"`
	Poster   string    `json:"poster,omitempty"`
	Episodes []Episode `json:"episodes,omitempty"`
}

// ShowRef is a weak back-reference from an episode to its show.
type ShowRef struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Poster string `json:"poster,omitempty"`
	Banner string `json:"banner,omitempty"`
}

// SeasonRef is a weak back-reference from an episode to its season.
type SeasonRef struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

// Episode is one episode of a TV show.
type Episode struct {
	ID       string     `json:"id"`
	Number   int        `json:"number"`
	Title    string     `json:"title,omitempty"`
	Released string     `json:"released,omitempty"`
	Overview string     `json:"overview,omitempty"`
	Poster   string     `json:"poster,omitempty"`
	Show     *ShowRef   `json:"show,omitempty"`
	Season   *SeasonRef `json:"season,omitempty"`

	IsWatched    bool          `json:"isWatched"`
	WatchedDate  *time.Time    `json:"watchedDate,omitempty"`
	WatchHistory *WatchHistory `json:"watchHistory,omitempty"`
}

// Genre is a genre page. Shows is only populated when the genre itself is fetched.
type Genre struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Shows ShowList `json:"shows,omitempty"`
}

// People is a person page. Filmography is only populated when the person is fetched.
type People struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Image       string   `json:"image,omitempty"`
	Filmography ShowList `json:"filmography,omitempty"`
}

// Well-known home category names.
const (
	CategoryFeatured         = "Featured"
	CategoryContinueWatching = "Continue Watching"
	CategoryFavoriteMovies   = "Favorite Movies"
	CategoryFavoriteTvShows  = "Favorite TV Shows"
)

// Category is a named, ordered group of mixed items for a home page section.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}
