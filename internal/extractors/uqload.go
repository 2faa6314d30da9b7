package extractors

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/models"
)

var uqloadSourcesRe = regexp.MustCompile(`sources:\s*\["([^"]+)"]`)

// Uqload resolves uqload embeds from the "sources" array of the player script.
type Uqload struct {
	hostInfo
	client *client.Client
}

// NewUqload creates the Uqload extractor.
func NewUqload(c *client.Client) *Uqload {
	return &Uqload{
		hostInfo: hostInfo{
			name:     "Uqload",
			mainURL:  "https://uqload.cx",
			aliases:  []string{"https://uqload.co", "https://uqload.io"},
			rotating: []*regexp.Regexp{regexp.MustCompile(`(?i)^uqload\.[a-z]+$`)},
		},
		client: c,
	}
}

// Extract implements Extractor.
func (u *Uqload) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	doc, err := u.client.GetDocument(ctx, link, client.Header("Referer", opts.Referer))
	if err != nil {
		return nil, err
	}

	var source string
	doc.Find(`script[type="text/javascript"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		data := s.Text()
		if !strings.Contains(data, "sources:") {
			return true
		}
		if m := uqloadSourcesRe.FindStringSubmatch(data); m != nil {
			source = m[1]
		}
		return false
	})
	if source == "" {
		return nil, apperrors.NewParseError(link, "sources")
	}
	return newVideo(source, map[string]string{"Referer": u.mainURL}, nil), nil
}
