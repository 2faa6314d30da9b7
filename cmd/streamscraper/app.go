package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Belphemur/StreamScraper/internal/backup"
	"github.com/Belphemur/StreamScraper/internal/cache"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/extractors"
	"github.com/Belphemur/StreamScraper/internal/providers"
	"github.com/Belphemur/StreamScraper/internal/providers/builtin"
	"github.com/Belphemur/StreamScraper/internal/search"
	"github.com/Belphemur/StreamScraper/internal/services"
	"github.com/Belphemur/StreamScraper/internal/storage"
)

// Show pages are parsed once per season; they only need to outlive one browse session.
const responseTTL = 5 * time.Minute

// app holds the components shared by every command.
type app struct {
	cfg         *config.Config
	store       *storage.Store
	preferences *storage.Preferences
	registry    *providers.Registry
	respCache   cache.Cache
	videoCache  cache.Cache
	resolver    services.VideoResolver
	search      *search.Orchestrator
	backup      *backup.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	store, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	prefs := store.Preferences(cfg)

	opts := client.OptionsFromConfig(cfg)
	opts.Cache = cache.FromConfig(cfg, "responses", responseTTL)
	httpClient := client.New(opts)
	registry := builtin.NewRegistry(ctx, cfg, httpClient, extractors.NewDefaultRegistry(httpClient), prefs)

	names := make([]string, 0, len(registry.All()))
	for _, e := range registry.All() {
		names = append(names, e.Provider.Name())
	}
	logger.Info().
		Strs("providers", names).
		Str("database", cfg.Database.Path).
		Str("cache", cfg.Cache.Type).
		Msg("Application initialized")

	videoCache := cache.FromConfig(cfg, "videos", 0)
	return &app{
		cfg:         cfg,
		store:       store,
		preferences: prefs,
		registry:    registry,
		respCache:   opts.Cache,
		videoCache:  videoCache,
		resolver:    services.NewVideoResolver(registry, cfg, videoCache),
		search:      search.NewFromConfig(registry, cfg),
		backup:      backup.NewManager(store, names...),
	}, nil
}

func (a *app) close() {
	logger := config.GetLogger()
	for name, c := range map[string]cache.Cache{"responses": a.respCache, "videos": a.videoCache} {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Str("cache", name).Msg("Failed to close cache")
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close database")
	}
}

// language returns the flag value, else the preferred search language.
func (a *app) language(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return a.preferences.Language(ctx)
}
