package parser

import (
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Parser defines a generic interface for parsing HTML content
type Parser[T any] interface {
	ParseHtml(body io.Reader) ([]T, error)
}

// ListParser maps every element matching Selector to a T. Elements for which
// Map reports false are skipped.
type ListParser[T any] struct {
	Selector string
	Map      func(s *goquery.Selection) (T, bool)
}

var _ Parser[string] = ListParser[string]{}

// ParseHtml parses body and maps the matching elements.
func (p ListParser[T]) ParseHtml(body io.Reader) ([]T, error) {
	doc, err := NewDocument(body, "")
	if err != nil {
		return nil, err
	}
	return p.ParseSelection(doc.Selection), nil
}

// ParseSelection maps the elements matching Selector below root.
func (p ListParser[T]) ParseSelection(root *goquery.Selection) []T {
	out := make([]T, 0)
	root.Find(p.Selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := p.Map(s); ok {
			out = append(out, v)
		}
	})
	return out
}
