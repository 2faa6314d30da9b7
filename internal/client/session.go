package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/metrics"
)

// Session is a provider's view of its remote site: the base URL together with the
// client used to reach it. Base URL and client always change together.
type Session struct {
	BaseURL string
	Client  *Client
	Unsafe  bool
}

// URL resolves path against the session base URL.
func (s Session) URL(path string) string {
	return JoinURL(s.BaseURL, path)
}

// Host returns the host name of the base URL.
func (s Session) Host() string {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// DiscoverFunc finds the current base URL of a provider whose domain rotates.
type DiscoverFunc func(ctx context.Context, current Session) (string, error)

// DomainOptions configures a DomainState.
type DomainOptions struct {
	// UnsafeTLSFallback retries a request once without certificate verification after a TLS error.
	UnsafeTLSFallback bool
	Discover          DiscoverFunc
	// RefreshOnDrift runs Discover after a 404 or 5xx answer and, when the base
	// URL moved, runs the request once more against the new domain.
	RefreshOnDrift bool
	// OnChange is called with the new base URL after it was adopted.
	OnChange func(baseURL string)
}

// DomainState owns a provider's mutable Session. Reads take a snapshot under a
// read lock, updates swap base URL and client in one step, and concurrent
// refreshes share a single discovery.
type DomainState struct {
	name string
	opts DomainOptions

	mu      sync.RWMutex
	current Session
	safe    *Client
	unsafe  *Client

	refresh singleflight.Group
}

// NewDomainState creates the state for provider name starting at baseURL.
func NewDomainState(name, baseURL string, c *Client, opts DomainOptions) *DomainState {
	return &DomainState{
		name: name,
		opts: opts,
		current: Session{
			BaseURL: NormalizeBaseURL(baseURL),
			Client:  c,
			Unsafe:  c.Unsafe(),
		},
		safe: c,
	}
}

// Current returns a snapshot of the session.
func (d *DomainState) Current() Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Adopt switches to the base URL of rawURL (a URL or a bare host) and reports
// whether the base URL changed.
func (d *DomainState) Adopt(rawURL string) bool {
	base := NormalizeBaseURL(rawURL)
	if base == "" {
		return false
	}

	d.mu.Lock()
	if base == d.current.BaseURL {
		d.mu.Unlock()
		return false
	}
	previous := d.current.BaseURL
	d.current = Session{BaseURL: base, Client: d.current.Client, Unsafe: d.current.Unsafe}
	d.mu.Unlock()

	metrics.DomainChangesTotal.WithLabelValues(d.name).Inc()
	logger := config.GetLogger()
	logger.Info().Str("provider", d.name).Str("from", previous).Str("to", base).Msg("Provider domain changed")
	if d.opts.OnChange != nil {
		d.opts.OnChange(base)
	}
	return true
}

// Refresh runs domain discovery and adopts its result. Concurrent callers share one run.
// Discovery is detached from the caller's cancellation and bounded by the client
// timeout, so one cancelled caller does not fail the others waiting on it.
func (d *DomainState) Refresh(ctx context.Context) (Session, error) {
	if d.opts.Discover == nil {
		return d.Current(), nil
	}
	ch := d.refresh.DoChan("refresh", func() (any, error) {
		discoverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.safe.Timeout())
		defer cancel()
		found, err := d.opts.Discover(discoverCtx, d.Current())
		if err != nil {
			return nil, fmt.Errorf("discover %s domain: %w", d.name, err)
		}
		d.Adopt(found)
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return d.Current(), ctx.Err()
	case res := <-ch:
		return d.Current(), res.Err
	}
}

// Follow adopts the domain a request against s ended on when a redirect moved it
// to another host.
func (d *DomainState) Follow(s Session, finalURL string) {
	base := NormalizeBaseURL(finalURL)
	if base == "" || base == s.BaseURL {
		return
	}
	d.Adopt(base)
}

// Do runs fn with the current session. When the provider opted in to the unsafe
// fallback and fn fails with a TLS error, the session switches to a client that
// skips verification and fn runs once more. With RefreshOnDrift, a 404 or 5xx
// answer triggers discovery and fn runs again if the domain changed.
func (d *DomainState) Do(ctx context.Context, fn func(ctx context.Context, s Session) error) error {
	s := d.Current()
	err := d.run(ctx, s, fn)
	if err == nil || !d.opts.RefreshOnDrift || d.opts.Discover == nil || !IsDomainDrift(err) {
		return err
	}

	logger := config.GetLogger()
	fresh, rerr := d.Refresh(ctx)
	if rerr != nil {
		logger.Warn().Err(rerr).Str("provider", d.name).Msg("Domain discovery after failed request did not succeed")
		return err
	}
	if fresh.BaseURL == s.BaseURL {
		return err
	}
	logger.Info().Str("provider", d.name).Str("base_url", fresh.BaseURL).Msg("Retrying request on the rediscovered domain")
	return d.run(ctx, fresh, fn)
}

func (d *DomainState) run(ctx context.Context, s Session, fn func(ctx context.Context, s Session) error) error {
	err := fn(ctx, s)
	if err == nil || s.Unsafe || !d.opts.UnsafeTLSFallback || !IsTLSError(err) {
		return err
	}

	logger := config.GetLogger()
	logger.Warn().Err(err).Str("provider", d.name).Str("base_url", s.BaseURL).Msg("TLS verification failed, retrying without verification")
	return fn(ctx, d.useUnsafe())
}

// IsDomainDrift reports whether err is an HTTP answer hinting that the site moved:
// a 404 or any 5xx.
func IsDomainDrift(err error) bool {
	var se *apperrors.HTTPStatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusNotFound || se.StatusCode >= http.StatusInternalServerError
}

func (d *DomainState) useUnsafe() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unsafe == nil {
		d.unsafe = d.safe.WithUnsafeTLS()
	}
	d.current = Session{BaseURL: d.current.BaseURL, Client: d.unsafe, Unsafe: true}
	return d.current
}

// NormalizeBaseURL turns a URL or bare host into "scheme://host/". It returns ""
// when no host can be found.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

// JoinURL resolves ref against base. Absolute refs are returned unchanged.
func JoinURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
