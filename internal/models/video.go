package models

import (
	"fmt"
	"maps"
	"slices"
)

// Server is one candidate hosting page for a movie or episode.
// ID is opaque and is often a URL itself; Src is the URL to resolve further.
type Server struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Src  string `json:"src"`
}

// Subtitle is an external subtitle track attached to a Video.
type Subtitle struct {
	Label   string `json:"label"`
	File    string `json:"file"`
	Default bool   `json:"default,omitempty"`
}

// Video is a resolved, playable stream. Headers must accompany every request to Source.
type Video struct {
	Source    string            `json:"source"`
	Type      string            `json:"type,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Subtitles []Subtitle        `json:"subtitles"`
}

// Common values of Video.Type.
const (
	MimeHLS  = "application/x-mpegURL"
	MimeMP4  = "video/mp4"
	MimeDASH = "application/dash+xml"
)

// Clone returns a deep copy of v.
func (v *Video) Clone() *Video {
	if v == nil {
		return nil
	}
	out := *v
	out.Headers = maps.Clone(v.Headers)
	out.Subtitles = slices.Clone(v.Subtitles)
	return &out
}

// VideoType tells a provider whether the id passed to GetServers is a movie or an episode.
// The implementations are MovieVideo and EpisodeVideo.
type VideoType interface {
	VideoID() string
	isVideoType()
}

// MovieVideo requests the servers of a movie.
type MovieVideo struct {
	ID string `json:"id"`
}

// EpisodeVideo requests the servers of one episode. Show and Season locate the episode
// for providers that list episode mirrors on the show page.
type EpisodeVideo struct {
	ID     string    `json:"id"`
	Number int       `json:"number"`
	Show   ShowRef   `json:"show"`
	Season SeasonRef `json:"season"`
}

func (MovieVideo) isVideoType()   {}
func (EpisodeVideo) isVideoType() {}

func (v MovieVideo) VideoID() string   { return v.ID }
func (v EpisodeVideo) VideoID() string { return v.ID }

// NewVideoType builds a VideoType from a textual kind ("movie" or "episode").
func NewVideoType(kind, id string) (VideoType, error) {
	switch Kind(kind) {
	case KindMovie:
		return MovieVideo{ID: id}, nil
	case KindEpisode:
		return EpisodeVideo{ID: id}, nil
	default:
		return nil, fmt.Errorf("unknown video type %q", kind)
	}
}

// VideoTypeOf returns the VideoType matching a movie or episode item.
func VideoTypeOf(item Item) (VideoType, bool) {
	switch v := item.(type) {
	case *Movie:
		return MovieVideo{ID: v.ID}, true
	case *Episode:
		ev := EpisodeVideo{ID: v.ID, Number: v.Number}
		if v.Show != nil {
			ev.Show = *v.Show
		}
		if v.Season != nil {
			ev.Season = *v.Season
		}
		return ev, true
	default:
		return nil, false
	}
}
