package services

import (
	"context"

	"github.com/Belphemur/StreamScraper/internal/models"
)

// Resolution is the server that produced a playable video, together with the video.
type Resolution struct {
	Server models.Server `json:"server"`
	Video  *models.Video `json:"video"`
}

// VideoResolver turns catalog items into playable videos
type VideoResolver interface {
	// Servers returns the servers of a movie or episode, ranked by the provider's policy
	Servers(ctx context.Context, provider, id string, vt models.VideoType) ([]models.Server, error)
	// Video resolves one server into a playable video
	Video(ctx context.Context, provider string, server models.Server) (*models.Video, error)
	// Resolve tries the ranked servers in order and returns the first one that yields a video
	Resolve(ctx context.Context, provider, id string, vt models.VideoType) (*Resolution, error)
}
