package jsunpack

import (
	"regexp"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/models"
)

// Player config fields commonly found in unpacked scripts. Group 1 is the value.
var (
	FileField    = regexp.MustCompile(`file\s*:\s*["']([^"']+)["']`)
	SourcesField = regexp.MustCompile(`sources\s*:\s*\[\s*\{\s*(?:src|file)\s*:\s*["']([^"']+)["']`)
	WurlField    = regexp.MustCompile(`wurl.*?=.*?"(.*?)";`)
	HLSField     = regexp.MustCompile(`["']?hls\d*["']?\s*:\s*["']([^"']+\.m3u8[^"']*)["']`)

	tracksRe     = regexp.MustCompile(`(?s)tracks\s*:\s*\[(.*?)\]`)
	trackObjRe   = regexp.MustCompile(`(?s)\{(.*?)\}`)
	trackFileRe  = regexp.MustCompile(`["']?file["']?\s*:\s*["']([^"']+)["']`)
	trackLabelRe = regexp.MustCompile(`["']?label["']?\s*:\s*["']([^"']*)["']`)
	trackKindRe  = regexp.MustCompile(`["']?kind["']?\s*:\s*["']([^"']*)["']`)
	trackDefRe   = regexp.MustCompile(`["']?default["']?\s*:\s*(?:true|["']true["'])`)
)

// FindString returns the first capture group of re in script.
func FindString(script string, re *regexp.Regexp) (string, bool) {
	m := re.FindStringSubmatch(script)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// FindFirst tries each expression in order and returns the first match.
func FindFirst(script string, res ...*regexp.Regexp) (string, bool) {
	for _, re := range res {
		if v, ok := FindString(script, re); ok {
			return v, true
		}
	}
	return "", false
}

// ExtractCaptions parses the subtitle tracks of a JW Player "tracks: [...]" block.
// Thumbnail and chapter tracks are skipped. An absent block yields no subtitles.
func ExtractCaptions(script string) []models.Subtitle {
	block := tracksRe.FindStringSubmatch(script)
	if block == nil {
		return []models.Subtitle{}
	}
	subs := make([]models.Subtitle, 0)
	for _, obj := range trackObjRe.FindAllStringSubmatch(block[1], -1) {
		body := obj[1]
		kind, _ := FindString(body, trackKindRe)
		if kind != "captions" && kind != "subtitles" {
			continue
		}
		file, ok := FindString(body, trackFileRe)
		if !ok {
			continue
		}
		label, _ := FindString(body, trackLabelRe)
		if label == "" {
			label = "Unknown"
		}
		subs = append(subs, models.Subtitle{
			Label:   label,
			File:    NormalizeURL(file),
			Default: trackDefRe.MatchString(body),
		})
	}
	return subs
}

// NormalizeURL fixes protocol-relative and scheme-less stream URLs.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(strings.ReplaceAll(u, `\/`, "/"))
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "/"):
		return u
	default:
		return "https://" + u
	}
}
