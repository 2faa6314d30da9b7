package search

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Belphemur/StreamScraper/internal/models"
)

// Confidence buckets a title similarity score.
type Confidence int

const (
	ConfidenceNone   Confidence = iota // score < 0.70
	ConfidenceLow                      // score >= 0.70
	ConfidenceMedium                   // score >= 0.85
	ConfidenceHigh                     // score >= 0.95
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// Match is the item whose title is closest to a query.
type Match struct {
	Item       models.Item
	Score      float64
	Confidence Confidence
}

// BestMatch returns the item whose title best matches query using
// Jaro-Winkler similarity over accent-folded titles. The first item wins ties.
// Item is nil when nothing reaches ConfidenceLow.
func BestMatch(query string, items []models.Item) Match {
	q := foldTitle(query)
	best := Match{Confidence: ConfidenceNone}
	if q == "" {
		return best
	}
	for _, item := range items {
		title := foldTitle(models.Title(item))
		if title == "" {
			continue
		}
		score := float64(edlib.JaroWinklerSimilarity(q, title))
		if score > best.Score {
			best.Item, best.Score = item, score
		}
	}

	switch {
	case best.Score >= 0.95:
		best.Confidence = ConfidenceHigh
	case best.Score >= 0.85:
		best.Confidence = ConfidenceMedium
	case best.Score >= 0.70:
		best.Confidence = ConfidenceLow
	default:
		best.Item = nil
	}
	return best
}

// foldTitle lowercases s, strips accents and punctuation and collapses spaces.
func foldTitle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
