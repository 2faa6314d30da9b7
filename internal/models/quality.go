package models

import (
	"regexp"
	"strings"
)

// Quality is the video quality advertised by a show or server label.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityCam
	Quality480p
	Quality720p
	Quality1080p
	Quality2160p // 4K
)

// String returns the string representation of the quality
func (q Quality) String() string {
	switch q {
	case QualityCam:
		return "cam"
	case Quality480p:
		return "480p"
	case Quality720p:
		return "720p"
	case Quality1080p:
		return "1080p"
	case Quality2160p:
		return "2160p"
	default:
		return "unknown"
	}
}

var qualityTokens = []struct {
	re      *regexp.Regexp
	quality Quality
}{
	{regexp.MustCompile(`(?i)\b(4k|2160p?|uhd)\b`), Quality2160p},
	{regexp.MustCompile(`(?i)\b(full\s*hd|fhd|1080p?)\b`), Quality1080p},
	{regexp.MustCompile(`(?i)\b(hd|720p?)\b`), Quality720p},
	{regexp.MustCompile(`(?i)\b(sd|480p?|360p?)\b`), Quality480p},
	{regexp.MustCompile(`(?i)\b(cam|hdcam|ts|telesync)\b`), QualityCam},
}

// ParseQuality extracts the quality advertised by a free-form label such as
// "Supervideo 4K", "FullHD" or "HD". The highest matching quality wins.
func ParseQuality(label string) Quality {
	label = strings.TrimSpace(label)
	for _, t := range qualityTokens {
		if t.re.MatchString(label) {
			return t.quality
		}
	}
	return QualityUnknown
}

// Is4K reports whether a label advertises a 4K/UHD stream. "4k" counts anywhere
// in the label, so glued names like "Supervideo4K" match too.
func Is4K(label string) bool {
	return strings.Contains(strings.ToLower(label), "4k") || ParseQuality(label) == Quality2160p
}

// MarshalJSON implements json.Marshaler interface
func (q Quality) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler interface
func (q *Quality) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	*q = ParseQuality(str)
	return nil
}
