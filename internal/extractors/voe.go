package extractors

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/jsunpack"
	"github.com/Belphemur/StreamScraper/internal/models"
)

var (
	voeRedirectRe = regexp.MustCompile(`window\.location\.href\s*=\s*['"]([^'"]+)['"]`)
	voeSourceRe   = regexp.MustCompile(`['"](hls|mp4)['"]\s*:\s*['"]([^'"]+)['"]`)
)

// Voe resolves voe.sx embeds. Mirror domains first answer with a script
// redirect; the player page lists "hls" and "mp4" sources, sometimes base64
// encoded.
type Voe struct {
	hostInfo
	client *client.Client
}

// NewVoe creates the Voe extractor.
func NewVoe(c *client.Client) *Voe {
	return &Voe{
		hostInfo: hostInfo{name: "Voe", mainURL: "https://voe.sx"},
		client:   c,
	}
}

// Extract implements Extractor.
func (v *Voe) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	header := client.Header("User-Agent", chrome120, "Referer", opts.Referer)
	page, err := v.client.GetText(ctx, link, header)
	if err != nil {
		return nil, err
	}
	if m := voeRedirectRe.FindStringSubmatch(page); m != nil && !voeSourceRe.MatchString(page) {
		link = m[1]
		if page, err = v.client.GetText(ctx, link, header); err != nil {
			return nil, err
		}
	}

	script, err := scriptSource(page)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string)
	for _, m := range voeSourceRe.FindAllStringSubmatch(script, -1) {
		if _, seen := sources[m[1]]; !seen {
			sources[m[1]] = decodeVoeSource(m[2])
		}
	}
	source := sources["hls"]
	if source == "" {
		source = sources["mp4"]
	}
	if source == "" {
		return nil, apperrors.NewParseError(link, "hls source")
	}
	return newVideo(jsunpack.NormalizeURL(source), map[string]string{"Referer": refererOf(link)}, jsunpack.ExtractCaptions(page)), nil
}

// decodeVoeSource returns s, base64-decoded when it is not already a URL.
func decodeVoeSource(s string) string {
	if strings.HasPrefix(s, "http") || strings.HasPrefix(s, "//") {
		return s
	}
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return string(decoded)
	}
	return s
}
