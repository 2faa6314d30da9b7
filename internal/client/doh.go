package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/net/dns/dnsmessage"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/metrics"
)

const (
	dohContentType = "application/dns-message"
	// dohMaxTTL caps how long an answer is reused regardless of the record TTL.
	dohMaxTTL     = 10 * time.Minute
	dohMinTTL     = 30 * time.Second
	dohCacheSize  = 256
	dohMaxMessage = 64 << 10
)

type dohAnswer struct {
	ips     []string
	expires time.Time
}

// DoHResolver resolves host names over DNS-over-HTTPS (RFC 8484), trying each
// endpoint in order until one answers.
type DoHResolver struct {
	endpoints []string
	client    *http.Client
	answers   *lru.LRU[string, dohAnswer]
	now       func() time.Time
}

// NewDoHResolver creates a resolver for endpoints. When httpClient is nil a client
// using the system resolver is used to reach the endpoints themselves.
func NewDoHResolver(endpoints []string, httpClient *http.Client) *DoHResolver {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	return &DoHResolver{
		endpoints: endpoints,
		client:    httpClient,
		answers:   lru.NewLRU[string, dohAnswer](dohCacheSize, nil, dohMaxTTL),
		now:       time.Now,
	}
}

// Resolve returns the addresses of host, preferring IPv4.
func (r *DoHResolver) Resolve(ctx context.Context, host string) ([]string, error) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if cached, ok := r.answers.Get(host); ok && r.now().Before(cached.expires) {
		metrics.DoHLookupsTotal.WithLabelValues("cache_hit").Inc()
		return cached.ips, nil
	}

	var errs []error
	for _, endpoint := range r.endpoints {
		ips, ttl, err := r.lookup(ctx, endpoint, host)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger := config.GetLogger()
			logger.Debug().Err(err).Str("host", host).Str("resolver", endpoint).Msg("DoH lookup failed, trying next resolver")
			errs = append(errs, err)
			continue
		}
		metrics.DoHLookupsTotal.WithLabelValues("success").Inc()
		r.answers.Add(host, dohAnswer{ips: ips, expires: r.now().Add(ttl)})
		return ips, nil
	}

	metrics.DoHLookupsTotal.WithLabelValues("error").Inc()
	if len(errs) == 0 {
		errs = append(errs, errors.New("no resolvers configured"))
	}
	return nil, &apperrors.DNSResolutionError{Host: host, Resolvers: r.endpoints, Err: errors.Join(errs...)}
}

// lookup queries A records first and falls back to AAAA when the host has none.
func (r *DoHResolver) lookup(ctx context.Context, endpoint, host string) ([]string, time.Duration, error) {
	ips, ttl, err := r.query(ctx, endpoint, host, dnsmessage.TypeA)
	if err != nil || len(ips) > 0 {
		return ips, ttl, err
	}
	ips, ttl, err = r.query(ctx, endpoint, host, dnsmessage.TypeAAAA)
	if err != nil {
		return nil, 0, err
	}
	if len(ips) == 0 {
		return nil, 0, fmt.Errorf("no address records for %s", host)
	}
	return ips, ttl, nil
}

func (r *DoHResolver) query(ctx context.Context, endpoint, host string, qtype dnsmessage.Type) ([]string, time.Duration, error) {
	msg, err := buildQuery(host, qtype)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(msg))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", dohContentType)
	req.Header.Set("Accept", dohContentType)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, apperrors.NewHTTPStatusError(endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, dohMaxMessage))
	if err != nil {
		return nil, 0, err
	}
	return parseAnswer(body)
}

func buildQuery(host string, qtype dnsmessage.Type) ([]byte, error) {
	name, err := dnsmessage.NewName(host + ".")
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	// RFC 8484 recommends ID 0 so identical queries are cache friendly.
	b := dnsmessage.NewBuilder(make([]byte, 0, 512), dnsmessage.Header{RecursionDesired: true})
	b.EnableCompression()
	if err := b.StartQuestions(); err != nil {
		return nil, err
	}
	if err := b.Question(dnsmessage.Question{Name: name, Type: qtype, Class: dnsmessage.ClassINET}); err != nil {
		return nil, err
	}
	return b.Finish()
}

// parseAnswer extracts A/AAAA addresses and the smallest TTL from a DNS response.
func parseAnswer(msg []byte) ([]string, time.Duration, error) {
	var p dnsmessage.Parser
	header, err := p.Start(msg)
	if err != nil {
		return nil, 0, fmt.Errorf("parse dns response: %w", err)
	}
	if header.RCode != dnsmessage.RCodeSuccess {
		return nil, 0, fmt.Errorf("dns response code %s", header.RCode)
	}
	if err := p.SkipAllQuestions(); err != nil {
		return nil, 0, err
	}

	var ips []string
	ttl := dohMaxTTL
	for {
		h, err := p.AnswerHeader()
		if errors.Is(err, dnsmessage.ErrSectionDone) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		switch h.Type {
		case dnsmessage.TypeA:
			res, err := p.AResource()
			if err != nil {
				return nil, 0, err
			}
			ips = append(ips, net.IP(res.A[:]).String())
		case dnsmessage.TypeAAAA:
			res, err := p.AAAAResource()
			if err != nil {
				return nil, 0, err
			}
			ips = append(ips, net.IP(res.AAAA[:]).String())
		default:
			if err := p.SkipAnswer(); err != nil {
				return nil, 0, err
			}
			continue
		}
		if d := time.Duration(h.TTL) * time.Second; d < ttl {
			ttl = d
		}
	}
	return ips, max(ttl, dohMinTTL), nil
}

// DialContext returns a dial function that resolves host names through r.
// IP literals and localhost are dialed directly.
func (r *DoHResolver) DialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil || net.ParseIP(host) != nil || host == "localhost" {
			return dialer.DialContext(ctx, network, addr)
		}

		ips, err := r.Resolve(ctx, host)
		if err != nil {
			return nil, err
		}
		var errs []error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	}
}
