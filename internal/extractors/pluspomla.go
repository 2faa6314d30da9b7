package extractors

import (
	"context"
	"regexp"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/jsunpack"
	"github.com/Belphemur/StreamScraper/internal/models"
)

var ajaxURLRe = regexp.MustCompile(`\$\.ajax\s*\(\s*\{\s*url\s*:\s*["']([^"']+)["']`)

type plusPomlaData struct {
	Sources []struct {
		File string `json:"file"`
	} `json:"sources"`
}

// PlusPomla resolves embeds whose page loads its sources through a jQuery ajax
// call. The ajax endpoint answers JSON and checks the embed page as Referer.
type PlusPomla struct {
	hostInfo
	client *client.Client
}

// NewPlusPomla creates the PlusPomla extractor.
func NewPlusPomla(c *client.Client) *PlusPomla {
	return &PlusPomla{
		hostInfo: hostInfo{name: "PlusPomla", mainURL: "https://apu.animemovil2.com"},
		client:   c,
	}
}

// Extract implements Extractor.
func (p *PlusPomla) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	page, err := p.client.GetText(ctx, link, client.Header("Referer", opts.Referer))
	if err != nil {
		return nil, err
	}
	endpoint, ok := jsunpack.FindString(page, ajaxURLRe)
	if !ok {
		return nil, apperrors.NewParseError(link, "ajax url")
	}

	// The endpoint is protocol-relative; it inherits the scheme of the embed.
	var data plusPomlaData
	if err := p.client.GetJSON(ctx, client.JoinURL(link, endpoint), client.Header("Referer", link), &data); err != nil {
		return nil, err
	}
	for _, s := range data.Sources {
		if s.File != "" {
			return newVideo(jsunpack.NormalizeURL(s.File), nil, nil), nil
		}
	}
	return nil, apperrors.NewParseError(link, "sources")
}
