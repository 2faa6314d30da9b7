package parser

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// NewUTF8Reader wraps an io.Reader with automatic character encoding detection and conversion to UTF-8.
//
// The charset is detected from, in order:
// 1. The Content-Type header value, when contentType is non-empty
// 2. HTML <meta charset="..."> or <meta http-equiv="Content-Type"> tags
// 3. Byte order marks (BOM)
// 4. Heuristic detection if none of the above are present
func NewUTF8Reader(body io.Reader, contentType string) (io.Reader, error) {
	return charset.NewReader(body, contentType)
}

// NewDocument decodes body to UTF-8 and parses it into a goquery document.
func NewDocument(body io.Reader, contentType string) (*goquery.Document, error) {
	utf8Body, err := NewUTF8Reader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
