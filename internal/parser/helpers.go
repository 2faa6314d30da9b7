package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	spaceRe  = regexp.MustCompile(`\s+`)
	intRe    = regexp.MustCompile(`\d+`)
	floatRe  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	cssURLRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
)

// Text returns the text of s with whitespace runs collapsed and trimmed.
func Text(s *goquery.Selection) string {
	return CleanText(s.Text())
}

// CleanText collapses whitespace runs and trims.
func CleanText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// OwnText returns the text of s excluding the text of its child elements.
func OwnText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return CleanText(b.String())
}

// Attr returns the first non-empty attribute of s among names.
func Attr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// Image returns the image URL of an <img>, preferring lazy-load attributes.
func Image(s *goquery.Selection) string {
	return Attr(s, "data-src", "data-lazy-src", "data-original", "src")
}

// BackgroundImage extracts the url(...) of an inline style attribute.
func BackgroundImage(s *goquery.Selection) string {
	style, _ := s.Attr("style")
	if m := cssURLRe.FindStringSubmatch(style); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ResolveURL resolves ref against base. Protocol-relative and absolute refs are
// supported; an unparsable ref is returned unchanged.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// FirstInt returns the first run of digits in s.
func FirstInt(s string) (int, bool) {
	m := intRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FirstFloat returns the first decimal number in s, accepting a comma separator.
func FirstFloat(s string) (*float64, bool) {
	m := floatRe.FindString(s)
	if m == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}

// PathSegment returns the last non-empty path segment of a URL or path, without query or fragment.
func PathSegment(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	return parts[len(parts)-1]
}
