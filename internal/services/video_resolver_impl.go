package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/cache"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/providers"
	"github.com/Belphemur/StreamScraper/internal/ranking"
)

// DefaultVideoResolver implements VideoResolver over a provider registry.
// Resolved videos are cached by provider and server source.
type DefaultVideoResolver struct {
	registry *providers.Registry
	policy   func(provider string) ranking.Policy
	videos   *cache.Typed[*models.Video]
}

// NewVideoResolver creates a resolver. Ranking policies are read per provider
// from cfg; videoCache may be nil to disable caching.
func NewVideoResolver(registry *providers.Registry, cfg *config.Config, videoCache cache.Cache) VideoResolver {
	r := &DefaultVideoResolver{
		registry: registry,
		policy: func(provider string) ranking.Policy {
			if cfg == nil {
				return ranking.DefaultPolicy()
			}
			return ranking.FromConfig(cfg.ProviderSettings(provider).Ranking)
		},
	}
	if videoCache != nil {
		r.videos = cache.NewTyped[*models.Video](videoCache)
	}
	return r
}

func (r *DefaultVideoResolver) provider(name string) (providers.Provider, error) {
	entry, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return entry.Provider, nil
}

// Servers returns the adapter's servers after the provider's ranking policy.
func (r *DefaultVideoResolver) Servers(ctx context.Context, provider, id string, vt models.VideoType) ([]models.Server, error) {
	p, err := r.provider(provider)
	if err != nil {
		return nil, err
	}
	servers, err := p.GetServers(ctx, id, vt)
	if err != nil {
		return nil, err
	}
	ranked := r.policy(p.Name()).Apply(servers)

	logger := config.GetLogger()
	logger.Debug().
		Str("provider", p.Name()).
		Str("id", id).
		Int("servers", len(servers)).
		Int("ranked", len(ranked)).
		Msg("Ranked servers")
	return ranked, nil
}

func videoKey(provider string, server models.Server) string {
	return provider + "|" + server.Src
}

// Video resolves server through the provider, using the cache when possible.
// The returned video is never shared with the cache.
func (r *DefaultVideoResolver) Video(ctx context.Context, provider string, server models.Server) (*models.Video, error) {
	p, err := r.provider(provider)
	if err != nil {
		return nil, err
	}
	key := videoKey(p.Name(), server)
	if r.videos != nil {
		if v, ok := r.videos.Get(key); ok && v != nil && v.Source != "" {
			return v.Clone(), nil
		}
	}

	video, err := p.GetVideo(ctx, server)
	if err != nil {
		return nil, err
	}
	if video == nil || video.Source == "" {
		return nil, apperrors.NewParseError(server.Src, "video source")
	}
	if r.videos != nil {
		r.videos.Set(key, video)
	}
	return video.Clone(), nil
}

// Resolve walks the ranked servers until one yields a video. When none does,
// the per-server failures are joined into a *apperrors.NoServerFoundError.
func (r *DefaultVideoResolver) Resolve(ctx context.Context, provider, id string, vt models.VideoType) (*Resolution, error) {
	servers, err := r.Servers(ctx, provider, id, vt)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, &apperrors.NoServerFoundError{ID: id}
	}

	logger := config.GetLogger()
	var errs []error
	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		video, err := r.Video(ctx, provider, server)
		if err == nil {
			logger.Info().
				Str("provider", provider).
				Str("id", id).
				Str("server", server.Name).
				Msg("Resolved video")
			return &Resolution{Server: server, Video: video}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.Warn().Err(err).Str("provider", provider).Str("server", server.Name).Msg("Server failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", server.Name, err))
	}
	return nil, &apperrors.NoServerFoundError{ID: id, Err: errors.Join(errs...)}
}
