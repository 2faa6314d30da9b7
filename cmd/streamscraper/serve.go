package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Belphemur/StreamScraper/internal/api"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/metrics"
	"github.com/Belphemur/StreamScraper/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API, the Prometheus metrics endpoint when enabled,
and the periodic domain discovery of providers with rotating domains.`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "Override server.port")
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := config.GetLogger()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "streamscraper@" + version,
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	router := api.NewRouter(api.Deps{
		Registry:    a.registry,
		Resolver:    a.resolver,
		Search:      a.search,
		Store:       a.store,
		Preferences: a.preferences,
		Backup:      a.backup,
		Language:    cfg.Language,
	})
	port := cfg.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}
	apiServer := api.NewHTTPServer(cfg.Server.Address, port, router)

	sched, err := scheduler.NewFromConfig(a.registry, cfg)
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	servers := []*http.Server{apiServer}
	if cfg.Metrics.Enabled {
		servers = append(servers, metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port))
	}
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info().Str("address", srv.Addr).Msg("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errs := []error{sched.Stop()}
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		return err
	}
	logger.Info().Msg("Server stopped gracefully")
	return nil
}
