package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/failsafe-go/failsafe-go"
	"github.com/rs/zerolog"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/cache"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/metrics"
	"github.com/Belphemur/StreamScraper/internal/parser"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 10
	// maxBodySize bounds how much of a response body is read into memory.
	maxBodySize = 32 << 20
)

// RetryOptions configures the retry policy applied to retryable failures.
type RetryOptions struct {
	MaxRetries int
	Delay      time.Duration
}

// Options configures a Client.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Proxy        string
	DoHURLs      []string
	Unsafe       bool
	MaxRedirects int
	Retry        RetryOptions
	// Cache stores bodies of Cacheable GET requests by URL.
	Cache  cache.Cache
	Logger *zerolog.Logger
}

// OptionsFromConfig maps the application configuration to client options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Timeout:   config.Duration(cfg.ClientTimeout, defaultTimeout),
		UserAgent: cfg.UserAgent,
		Proxy:     cfg.ProxyConnectionString,
		DoHURLs:   cfg.DoHURLs(),
		Retry: RetryOptions{
			MaxRetries: cfg.Retry.MaxRetries,
			Delay:      config.Duration(cfg.Retry.Delay, 500*time.Millisecond),
		},
	}
}

// Request describes one outbound HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Form is sent url-encoded as the body when set.
	Form url.Values
	Body []byte
	// Cacheable marks GET requests whose response may be served from Options.Cache.
	Cacheable bool
}

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL        string      `json:"url"`
	StatusCode int         `json:"status"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// Document parses the body as HTML, converting it to UTF-8 first.
func (r *Response) Document() (*goquery.Document, error) {
	return parser.NewDocument(bytes.NewReader(r.Body), r.Header.Get("Content-Type"))
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode json from %s: %w", r.URL, err)
	}
	return nil
}

// Client performs HTTP requests with compression, optional DNS-over-HTTPS,
// redirect loop detection, retries and response caching.
type Client struct {
	opts       Options
	httpClient *http.Client
	resolver   *DoHResolver
	executor   failsafe.Executor[*Response]
	cache      *cache.Typed[*Response]
	logger     zerolog.Logger
}

// New creates a client from opts. Invalid proxy URLs are logged and ignored.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.GetUserAgent()
	}
	logger := config.GetLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	c := &Client{opts: opts, logger: logger}

	// Clone DefaultTransport to keep its pooling, HTTP/2 and timeout settings.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", opts.Proxy).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	if len(opts.DoHURLs) > 0 {
		c.resolver = NewDoHResolver(opts.DoHURLs, nil)
		transport.DialContext = c.resolver.DialContext(&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second})
	}
	if opts.Unsafe {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per provider
	}

	c.httpClient = &http.Client{
		Timeout:       opts.Timeout,
		Transport:     newCompressionTransport(transport),
		CheckRedirect: redirectPolicy(opts.MaxRedirects),
	}
	c.executor = newExecutor(opts.Retry)
	if opts.Cache != nil {
		c.cache = cache.NewTyped[*Response](opts.Cache)
	}
	return c
}

// NewFromConfig creates a client configured from the application configuration.
func NewFromConfig(cfg *config.Config) *Client {
	return New(OptionsFromConfig(cfg))
}

// WithUnsafeTLS returns a copy of the client that skips TLS certificate verification.
// It shares the response cache and DNS resolver settings of c.
func (c *Client) WithUnsafeTLS() *Client {
	if c.opts.Unsafe {
		return c
	}
	opts := c.opts
	opts.Unsafe = true
	return New(opts)
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.opts.Timeout
}

// Unsafe reports whether the client skips TLS verification.
func (c *Client) Unsafe() bool {
	return c.opts.Unsafe
}

// Do executes req, retrying retryable failures. Non-2xx statuses are returned as
// *apperrors.HTTPStatusError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	cacheable := c.cache != nil && req.Cacheable && method == http.MethodGet
	if cacheable {
		if resp, ok := c.cache.Get(req.URL); ok {
			metrics.FetchRequestsTotal.WithLabelValues("cache_hit").Inc()
			return resp, nil
		}
	}

	resp, err := c.executor.WithContext(ctx).Get(func() (*Response, error) {
		return c.do(ctx, method, req)
	})
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Set(req.URL, resp)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method string, req *Request) (*Response, error) {
	start := time.Now()
	httpReq, err := c.newRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues("error").Inc()
		err = classifyError(req.URL, err)
		c.logger.Debug().Err(err).Str("url", req.URL).Str("method", method).Msg("Request failed")
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues("error").Inc()
		return nil, classifyError(req.URL, err)
	}

	finalURL := httpResp.Request.URL.String()
	c.logger.Debug().
		Str("url", req.URL).
		Str("final_url", finalURL).
		Int("status", httpResp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Request completed")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		metrics.FetchRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, apperrors.NewHTTPStatusError(finalURL, httpResp.StatusCode)
	}
	metrics.FetchRequestsTotal.WithLabelValues("success").Inc()
	return &Response{
		URL:        finalURL,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method string, req *Request) (*http.Request, error) {
	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", req.URL, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// Get fetches rawURL.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	return c.Do(ctx, &Request{URL: rawURL, Header: header})
}

// GetDocument fetches rawURL and parses it as HTML.
func (c *Client) GetDocument(ctx context.Context, rawURL string, header http.Header) (*goquery.Document, error) {
	resp, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// GetCachedDocument is GetDocument served from the response cache when the
// client has one. Used for pages that several operations parse in turn.
func (c *Client) GetCachedDocument(ctx context.Context, rawURL string, header http.Header) (*goquery.Document, error) {
	resp, err := c.Do(ctx, &Request{URL: rawURL, Header: header, Cacheable: true})
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// GetText fetches rawURL and returns its body as a string.
func (c *Client) GetText(ctx context.Context, rawURL string, header http.Header) (string, error) {
	resp, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	resp, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

// PostForm posts form url-encoded to rawURL.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, header http.Header) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, URL: rawURL, Form: form, Header: header})
}

// Header builds a header from key/value pairs. A trailing key without value is ignored.
func Header(pairs ...string) http.Header {
	h := make(http.Header, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			h.Set(pairs[i], pairs[i+1])
		}
	}
	return h
}
