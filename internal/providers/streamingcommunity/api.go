package streamingcommunity

import (
	"encoding/json"
	"strconv"
	"strings"
)

type image struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

type genre struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type actor struct {
	Name string `json:"name"`
}

type trailer struct {
	YoutubeID string `json:"youtube_id"`
}

type season struct {
	Number json.Number `json:"number"`
	Name   string      `json:"name"`
}

// title is a movie or TV show as returned by every endpoint.
type title struct {
	ID          json.Number `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Score       json.Number `json:"score"`
	LastAirDate string      `json:"last_air_date"`
	Plot        string      `json:"plot"`
	Images      []image     `json:"images"`
	Genres      []genre     `json:"genres"`
	MainActors  []actor     `json:"main_actors"`
	Trailers    []trailer   `json:"trailers"`
	Seasons     []season    `json:"seasons"`
}

func (t title) key() string {
	return t.ID.String() + "-" + t.Slug
}

func (t title) image(kind string) string {
	for _, img := range t.Images {
		if img.Type == kind && img.Filename != "" {
			return img.Filename
		}
	}
	return ""
}

func (t title) rating() *float64 {
	f, err := t.Score.Float64()
	if err != nil {
		return nil
	}
	return &f
}

type slider struct {
	Label  string  `json:"label"`
	Name   string  `json:"name"`
	Titles []title `json:"titles"`
}

type episode struct {
	ID     json.Number `json:"id"`
	Name   string      `json:"name"`
	Number json.Number `json:"number"`
	Plot   string      `json:"plot"`
	Images []image     `json:"images"`
}

// page is an inertia page response: the home page, a title page or a season page.
type page struct {
	Version string `json:"version"`
	Props   struct {
		AppURL       string   `json:"app_url"`
		Genres       []genre  `json:"genres"`
		Sliders      []slider `json:"sliders"`
		Title        title    `json:"title"`
		LoadedSeason *struct {
			Episodes []episode `json:"episodes"`
		} `json:"loadedSeason"`
	} `json:"props"`
}

type searchResponse struct {
	Data        []title `json:"data"`
	CurrentPage *int    `json:"current_page"`
	LastPage    *int    `json:"last_page"`
}

type archiveResponse struct {
	Titles []title `json:"titles"`
}

// number parses a season or episode number, falling back to position+1.
func number(n json.Number, position int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(n.String())); err == nil {
		return v
	}
	return position + 1
}
