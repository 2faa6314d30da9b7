// Package api exposes providers, video resolution and global search over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Belphemur/StreamScraper/internal/backup"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/providers"
	"github.com/Belphemur/StreamScraper/internal/search"
	"github.com/Belphemur/StreamScraper/internal/services"
	"github.com/Belphemur/StreamScraper/internal/storage"
)

// Deps are the collaborators served by the API. Store, Preferences and
// Backup are optional; their routes answer 404 when unset.
type Deps struct {
	Registry    *providers.Registry
	Resolver    services.VideoResolver
	Search      *search.Orchestrator
	Store       *storage.Store
	Preferences *storage.Preferences
	Backup      *backup.Manager
	// Language searched when a request names none.
	Language string
}

type server struct {
	Deps
	logger zerolog.Logger
}

// NewRouter builds the API router.
func NewRouter(deps Deps) chi.Router {
	s := &server{Deps: deps, logger: config.GetLogger()}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/providers", s.listProviders)
		r.Route("/providers/{provider}", func(r chi.Router) {
			r.Get("/home", s.home)
			r.Get("/search", s.providerSearch)
			r.Get("/movies", s.movies)
			r.Get("/tv-shows", s.tvShows)
			r.Get("/movie", s.movie)
			r.Get("/tv-show", s.tvShow)
			r.Get("/season", s.season)
			r.Get("/genre", s.genre)
			r.Get("/people", s.people)
			r.Get("/servers", s.servers)
			r.Post("/video", s.video)
			r.Get("/resolve", s.resolve)
		})
		r.Get("/search", s.globalSearch)
		r.Get("/search/ws", s.searchStream)
		r.Get("/preferences", s.getPreferences)
		r.Put("/preferences", s.putPreferences)
		r.Get("/backup", s.exportBackup)
		r.Post("/backup", s.importBackup)
	})
	return r
}

// NewHTTPServer wraps handler in a server listening on address:port.
func NewHTTPServer(address string, port int, handler http.Handler) *http.Server {
	if port == 0 {
		port = 8080
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", address, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
