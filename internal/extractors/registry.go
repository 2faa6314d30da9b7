package extractors

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/metrics"
	"github.com/Belphemur/StreamScraper/internal/models"
)

// Registry dispatches links to extractors by host. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	extractors []Extractor
	hosts      map[string]Extractor
	logger     zerolog.Logger
}

// NewRegistry indexes the given extractors. When two extractors declare the same
// host, the first one keeps it.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{
		extractors: make([]Extractor, 0, len(extractors)),
		hosts:      make(map[string]Extractor),
		logger:     config.GetLogger(),
	}
	for _, e := range extractors {
		if e == nil {
			continue
		}
		r.extractors = append(r.extractors, e)
		for _, base := range append([]string{e.MainURL()}, e.AliasURLs()...) {
			host := HostOf(base)
			if host == "" {
				continue
			}
			if owner, taken := r.hosts[host]; taken {
				r.logger.Warn().
					Str("host", host).
					Str("extractor", e.Name()).
					Str("owner", owner.Name()).
					Msg("Host already registered, ignoring duplicate")
				continue
			}
			r.hosts[host] = e
		}
	}
	return r
}

// NewDefaultRegistry returns a registry of every built-in extractor.
func NewDefaultRegistry(c *client.Client) *Registry {
	return NewRegistry(Builtin(c)...)
}

// Find returns the extractor owning link's host: an exact match on a main or
// alias host first, then the first rotating-domain pattern that matches.
func (r *Registry) Find(link string) (Extractor, error) {
	host := HostOf(link)
	if host != "" {
		if e, ok := r.hosts[host]; ok {
			return e, nil
		}
		for _, e := range r.extractors {
			for _, re := range e.RotatingDomains() {
				if re.MatchString(host) {
					return e, nil
				}
			}
		}
	}
	return nil, &apperrors.NoExtractorFoundError{URL: link, Host: host}
}

// Extract resolves link with the extractor owning its host. A failing extractor
// is not followed by another one; callers pick a different server instead.
func (r *Registry) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	e, err := r.Find(link)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("none", metrics.Status(err)).Inc()
		r.logger.Warn().Str("url", link).Msg("No extractor for link")
		return nil, err
	}

	start := time.Now()
	video, err := e.Extract(ctx, link, opts)
	if err == nil && (video == nil || video.Source == "") {
		err = apperrors.NewParseError(link, "video source")
	}
	metrics.ExtractionsTotal.WithLabelValues(e.Name(), metrics.Status(err)).Inc()
	if err != nil {
		r.logger.Error().Err(err).Str("extractor", e.Name()).Str("url", link).Msg("Extraction failed")
		return nil, fmt.Errorf("%s extractor: %w", e.Name(), err)
	}
	if video.Subtitles == nil {
		video.Subtitles = []models.Subtitle{}
	}

	r.logger.Debug().
		Str("extractor", e.Name()).
		Str("url", link).
		Str("source", video.Source).
		Int("subtitles", len(video.Subtitles)).
		Dur("elapsed", time.Since(start)).
		Msg("Extracted video")
	return video, nil
}

// Get returns the extractor with the given name, ignoring case.
func (r *Registry) Get(name string) (Extractor, bool) {
	for _, e := range r.extractors {
		if strings.EqualFold(e.Name(), name) {
			return e, true
		}
	}
	return nil, false
}

// Extractors returns the registered extractors in registration order.
func (r *Registry) Extractors() []Extractor {
	return slices.Clone(r.extractors)
}
