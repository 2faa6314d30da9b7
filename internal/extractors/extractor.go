// Package extractors turns the URL of a third-party hosting page into a playable
// video. Each extractor declares the hosts it serves; the Registry dispatches a
// link to the extractor owning its host.
package extractors

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/jsunpack"
	"github.com/Belphemur/StreamScraper/internal/models"
)

// User agents required by some hosts. They refuse or serve decoy pages to others.
const (
	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	chrome120 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0"
	windowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
)

// Options carries the context of the server a link was found on.
type Options struct {
	// Referer is sent to hosts that check where the embed was loaded from.
	Referer string
	// Server is the provider server the link belongs to, when known.
	Server models.Server
}

// Extractor resolves links of one hosting service.
type Extractor interface {
	Name() string
	// MainURL is the canonical base URL of the host.
	MainURL() string
	// AliasURLs are other base URLs served by the same extractor.
	AliasURLs() []string
	// RotatingDomains match hosts that change subdomain or TLD over time.
	RotatingDomains() []*regexp.Regexp
	Extract(ctx context.Context, link string, opts Options) (*models.Video, error)
}

// hostInfo implements the descriptive half of Extractor.
type hostInfo struct {
	name     string
	mainURL  string
	aliases  []string
	rotating []*regexp.Regexp
}

func (h hostInfo) Name() string                      { return h.name }
func (h hostInfo) MainURL() string                   { return h.mainURL }
func (h hostInfo) AliasURLs() []string               { return h.aliases }
func (h hostInfo) RotatingDomains() []*regexp.Regexp { return h.rotating }

// HostOf returns the lowercase host of rawURL without scheme, port or "www." prefix.
// Scheme-less and protocol-relative inputs are accepted.
func HostOf(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + strings.TrimPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// origin returns "scheme://host" of link, or "" when link is not absolute.
func origin(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// refererOf returns the origin of link with a trailing slash, as browsers send it.
func refererOf(link string) string {
	if o := origin(link); o != "" {
		return o + "/"
	}
	return ""
}

// mimeOf guesses the video type from the stream URL.
func mimeOf(source string) string {
	path := source
	if u, err := url.Parse(source); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	switch {
	case strings.HasSuffix(path, ".m3u8"), strings.Contains(path, "/playlist/"):
		return models.MimeHLS
	case strings.HasSuffix(path, ".mpd"):
		return models.MimeDASH
	case strings.HasSuffix(path, ".mp4"):
		return models.MimeMP4
	default:
		return ""
	}
}

// newVideo builds a Video, dropping empty header values.
func newVideo(source string, headers map[string]string, subtitles []models.Subtitle) *models.Video {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		if v != "" {
			h[k] = v
		}
	}
	if len(h) == 0 {
		h = nil
	}
	if subtitles == nil {
		subtitles = []models.Subtitle{}
	}
	return &models.Video{Source: source, Type: mimeOf(source), Headers: h, Subtitles: subtitles}
}

// scriptSource returns the unpacked packed script of page when there is one,
// otherwise the page itself. A packed script that cannot be unpacked is an
// *apperrors.UnpackError.
func scriptSource(page string) (string, error) {
	if !jsunpack.Detect(page) {
		return page, nil
	}
	return jsunpack.UnpackAll(page)
}

// requireField returns the first capture of re in script as a normalized URL.
func requireField(link, script string, re *regexp.Regexp, what string) (string, error) {
	m := re.FindStringSubmatch(script)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "", apperrors.NewParseError(link, what)
	}
	return jsunpack.NormalizeURL(m[1]), nil
}
