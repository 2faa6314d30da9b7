package client

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding lists the content codings the transport can decode.
const acceptEncoding = "gzip, deflate, br, zstd"

// compressionTransport advertises gzip, deflate, brotli and zstd and decodes the
// response body transparently, including stacked codings such as "gzip, br".
type compressionTransport struct {
	transport http.RoundTripper
}

func newCompressionTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &compressionTransport{transport: base}
}

func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	codings := parseContentEncoding(resp.Header.Get("Content-Encoding"))
	if len(codings) == 0 {
		return resp, nil
	}
	for _, coding := range codings {
		if !supportedCoding(coding) {
			return resp, nil
		}
	}

	body := &decodedBody{closers: []io.Closer{resp.Body}}
	var reader io.Reader = resp.Body
	// Codings are listed in the order they were applied; undo them from last to first.
	for i := len(codings) - 1; i >= 0; i-- {
		next, closer, err := decoder(codings[i], reader)
		if err != nil {
			_ = body.Close()
			return nil, err
		}
		if closer != nil {
			body.closers = append(body.closers, closer)
		}
		reader = next
	}
	body.reader = reader

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

func supportedCoding(coding string) bool {
	switch coding {
	case "gzip", "x-gzip", "deflate", "br", "zstd", "identity":
		return true
	}
	return false
}

// decoder wraps r with the decompressor for coding.
func decoder(coding string, r io.Reader) (io.Reader, io.Closer, error) {
	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case "br":
		return brotli.NewReader(r), nil, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	default:
		return r, nil, nil
	}
}

// decodedBody reads from the outermost decoder and closes every layer, innermost last.
type decodedBody struct {
	reader  io.Reader
	closers []io.Closer
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decodedBody) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// parseContentEncoding splits a Content-Encoding header into lower-cased codings.
func parseContentEncoding(header string) []string {
	var codings []string
	for _, part := range strings.Split(header, ",") {
		if coding := strings.ToLower(strings.TrimSpace(part)); coding != "" {
			codings = append(codings, coding)
		}
	}
	return codings
}
