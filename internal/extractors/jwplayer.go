package extractors

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/jsunpack"
	"github.com/Belphemur/StreamScraper/internal/models"
)

var yourUploadFileRe = regexp.MustCompile(`file:\s*'([^']+\.(?:m3u8|mp4))'`)

// JWPlayer resolves hosts that configure JW Player in a plain inline script.
type JWPlayer struct {
	hostInfo
	client *client.Client
	// markers must all appear in the script holding the player setup.
	markers   []string
	fileRe    *regexp.Regexp
	userAgent string
	// referer is sent with the stream; empty means none.
	referer string
}

// NewOneUpload creates the OneUpload extractor.
func NewOneUpload(c *client.Client) *JWPlayer {
	return &JWPlayer{
		hostInfo: hostInfo{name: "OneUpload", mainURL: "https://oneupload.net", aliases: []string{"https://tipfly.xyz"}},
		client:   c,
		markers:  []string{"jwplayer", "sources", "file"},
		fileRe:   jsunpack.FileField,
	}
}

// NewGoodstream creates the Goodstream extractor.
func NewGoodstream(c *client.Client) *JWPlayer {
	return &JWPlayer{
		hostInfo:  hostInfo{name: "Goodstream", mainURL: "https://goodstream.one"},
		client:    c,
		markers:   []string{"jwplayer", "sources", "file"},
		fileRe:    jsunpack.FileField,
		userAgent: chrome120,
	}
}

// NewYourUpload creates the YourUpload extractor.
func NewYourUpload(c *client.Client) *JWPlayer {
	return &JWPlayer{
		hostInfo: hostInfo{
			name:    "YourUpload",
			mainURL: "https://www.yourupload.com",
			aliases: []string{"https://www.yucache.net"},
		},
		client:    c,
		markers:   []string{"jwplayerOptions"},
		fileRe:    yourUploadFileRe,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
		referer:   "https://www.yourupload.com",
	}
}

// Extract implements Extractor.
func (j *JWPlayer) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	doc, err := j.client.GetDocument(ctx, link, client.Header("User-Agent", j.userAgent, "Referer", opts.Referer))
	if err != nil {
		return nil, err
	}

	var source string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		data := s.Text()
		for _, marker := range j.markers {
			if !strings.Contains(data, marker) {
				return true
			}
		}
		source, _ = jsunpack.FindString(data, j.fileRe)
		return source == ""
	})
	if source == "" {
		return nil, apperrors.NewParseError(link, "player file")
	}

	return newVideo(jsunpack.NormalizeURL(source), map[string]string{
		"User-Agent": j.userAgent,
		"Referer":    j.referer,
	}, nil), nil
}
