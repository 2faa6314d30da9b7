package extractors

import (
	"context"
	"regexp"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/jsunpack"
	"github.com/Belphemur/StreamScraper/internal/models"
)

var mixDropEmbedRe = regexp.MustCompile(`^(https?://[^/]+/e/[^/?#]+)`)

// MixDrop resolves mixdrop embeds. The stream URL is the MDCore "wurl"
// assignment, usually inside a packed script.
type MixDrop struct {
	hostInfo
	client *client.Client
}

// NewMixDrop creates the MixDrop extractor.
func NewMixDrop(c *client.Client) *MixDrop {
	return &MixDrop{
		hostInfo: hostInfo{
			name:    "MixDrop",
			mainURL: "https://mixdrop.co",
			aliases: []string{
				"https://mixdrop.bz",
				"https://mixdrop.ag",
				"https://mixdrop.ch",
				"https://mixdrop.to",
				"https://mixdrop.cv",
				"https://mxdrop.to",
				"https://mixdrop.club",
			},
			rotating: []*regexp.Regexp{regexp.MustCompile(`(?i)^md[3bfyz][a-z0-9]*\.[a-z0-9]+$`)},
		},
		client: c,
	}
}

// embedURL rewrites file pages and retired domains to the embed page.
func (m *MixDrop) embedURL(link string) string {
	link = strings.Replace(link, "/f/", "/e/", 1)
	link = strings.Replace(link, ".club/", ".ag/", 1)
	if match := mixDropEmbedRe.FindStringSubmatch(link); match != nil {
		return match[1]
	}
	return link
}

// Extract implements Extractor.
func (m *MixDrop) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	embed := m.embedURL(link)
	page, err := m.client.GetText(ctx, embed, client.Header("User-Agent", chromeUA, "Referer", opts.Referer))
	if err != nil {
		return nil, err
	}
	script, err := scriptSource(page)
	if err != nil {
		return nil, err
	}
	source, err := requireField(embed, script, jsunpack.WurlField, "wurl")
	if err != nil {
		return nil, err
	}
	return newVideo(source, map[string]string{
		"User-Agent": chromeUA,
		"Referer":    refererOf(embed),
	}, nil), nil
}
