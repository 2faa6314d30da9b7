package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
)

// redirectPolicy follows redirects until a URL repeats or maxHops is exceeded.
// via holds every request of the chain so far, so it doubles as the visited set.
func redirectPolicy(maxHops int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		next := req.URL.String()
		for _, prev := range via {
			if prev.URL.String() == next {
				return &apperrors.RedirectLoopError{URL: next, Hops: len(via)}
			}
		}
		if len(via) >= maxHops {
			return &apperrors.RedirectLoopError{URL: next, Hops: len(via)}
		}
		return nil
	}
}

// ResolveFinalURL follows the redirect chain starting at start and returns the URL it ends on.
// The status of the final response is ignored: discovery only needs where the chain lands.
func (c *Client) ResolveFinalURL(ctx context.Context, start string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, &Request{URL: start})
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyError(start, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	final := resp.Request.URL.String()
	if final == "" {
		return "", fmt.Errorf("redirect chain from %s ended without a URL", start)
	}
	return final, nil
}
