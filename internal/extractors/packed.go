package extractors

import (
	"context"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/jsunpack"
	"github.com/Belphemur/StreamScraper/internal/models"
)

// PackedPlayer resolves hosts that hide a JW Player setup in a packed script:
// the stream is the "file" (or "sources") field of the unpacked source and the
// subtitles are its caption tracks.
type PackedPlayer struct {
	hostInfo
	client    *client.Client
	userAgent string
	captions  bool
}

// NewSupervideo creates the Supervideo extractor.
func NewSupervideo(c *client.Client) *PackedPlayer {
	return &PackedPlayer{
		hostInfo:  hostInfo{name: "Supervideo", mainURL: "https://supervideo.cc", aliases: []string{"https://supervideo.tv"}},
		client:    c,
		userAgent: chromeUA,
		captions:  true,
	}
}

// NewDropload creates the Dropload extractor.
func NewDropload(c *client.Client) *PackedPlayer {
	return &PackedPlayer{
		hostInfo: hostInfo{name: "Dropload", mainURL: "https://dropload.tv", aliases: []string{"https://dropload.io"}},
		client:   c,
		captions: true,
	}
}

// NewLamovie creates the Lamovie extractor.
func NewLamovie(c *client.Client) *PackedPlayer {
	return &PackedPlayer{
		hostInfo: hostInfo{name: "Lamovie", mainURL: "https://lamovie.link", aliases: []string{"https://vimeos.net"}},
		client:   c,
	}
}

// Extract implements Extractor.
func (p *PackedPlayer) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	if strings.HasPrefix(link, "//") {
		link = "https:" + link
	}
	page, err := p.client.GetText(ctx, link, client.Header("User-Agent", p.userAgent, "Referer", opts.Referer))
	if err != nil {
		return nil, err
	}
	script, err := jsunpack.UnpackAll(page)
	if err != nil {
		return nil, err
	}
	source, ok := jsunpack.FindFirst(script, jsunpack.FileField, jsunpack.SourcesField)
	if !ok {
		return nil, &apperrors.UnpackError{Reason: "no file field in unpacked script"}
	}

	var subtitles []models.Subtitle
	if p.captions {
		subtitles = jsunpack.ExtractCaptions(script)
	}
	return newVideo(jsunpack.NormalizeURL(source), map[string]string{
		"User-Agent": p.userAgent,
		"Referer":    refererOf(link),
	}, subtitles), nil
}
