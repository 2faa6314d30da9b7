package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/providers"
	"github.com/Belphemur/StreamScraper/internal/search"
)

type providerInfo struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	BaseURL  string `json:"baseUrl"`
	Logo     string `json:"logo,omitempty"`
	Movies   bool   `json:"movies"`
	TvShows  bool   `json:"tvShows"`
	Active   bool   `json:"active"`
}

type droppedSection struct {
	Section string `json:"section"`
	Error   string `json:"error"`
}

type homeResponse struct {
	Categories []models.Category `json:"categories"`
	Dropped    []droppedSection  `json:"dropped,omitempty"`
}

type itemsResponse struct {
	Items []models.ItemEnvelope `json:"items"`
}

func (s *server) provider(r *http.Request) (providers.Provider, error) {
	e, err := s.Registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		return nil, err
	}
	return e.Provider, nil
}

func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, badRequest("invalid page %q", raw)
	}
	return page, nil
}

func requiredParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", badRequest("missing %s", name)
	}
	return v, nil
}

func videoTypeParam(r *http.Request) (models.VideoType, error) {
	id, err := requiredParam(r, "id")
	if err != nil {
		return nil, err
	}
	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = string(models.KindMovie)
	}
	vt, err := models.NewVideoType(kind, id)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	return vt, nil
}

func (s *server) listProviders(w http.ResponseWriter, r *http.Request) {
	active := ""
	if s.Preferences != nil {
		name, err := s.Preferences.ActiveProvider(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		active = name
	}

	entries := s.Registry.All()
	out := make([]providerInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, providerInfo{
			Name:     e.Provider.Name(),
			Language: e.Provider.Language(),
			BaseURL:  e.Provider.BaseURL(),
			Logo:     e.Provider.Logo(),
			Movies:   e.SupportsMovies,
			TvShows:  e.SupportsTvShows,
			Active:   strings.EqualFold(active, e.Provider.Name()),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	partial, err := p.GetHome(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := homeResponse{Categories: partial.Value}
	if resp.Categories == nil {
		resp.Categories = []models.Category{}
	}
	for _, d := range partial.Dropped {
		resp.Dropped = append(resp.Dropped, droppedSection{Section: d.Section, Error: errString(d.Err)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *server) providerSearch(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := p.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: models.Envelope(items)})
}

func (s *server) movies(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	movies, err := p.GetMovies(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: models.Envelope(movies)})
}

func (s *server) tvShows(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	shows, err := p.GetTvShows(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: models.Envelope(shows)})
}

func (s *server) movie(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := requiredParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	movie, err := p.GetMovie(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Store != nil {
		if movie, err = s.Store.Movies(p.Name()).Merge(r.Context(), movie); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, movie)
}

func (s *server) tvShow(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := requiredParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	show, err := p.GetTvShow(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Store != nil {
		if show, err = s.Store.TvShows(p.Name()).Merge(r.Context(), show); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, show)
}

func (s *server) season(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := requiredParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	episodes, err := p.GetEpisodesBySeason(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Store != nil {
		repo := s.Store.Episodes(p.Name())
		for i, ep := range episodes {
			if episodes[i], err = repo.Merge(r.Context(), ep); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
	}
	if episodes == nil {
		episodes = []*models.Episode{}
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (s *server) genre(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := requiredParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	genre, err := p.GetGenre(r.Context(), id, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, genre)
}

func (s *server) people(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := requiredParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	people, err := p.GetPeople(r.Context(), id, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *server) servers(w http.ResponseWriter, r *http.Request) {
	vt, err := videoTypeParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	servers, err := s.Resolver.Servers(r.Context(), chi.URLParam(r, "provider"), vt.VideoID(), vt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (s *server) video(w http.ResponseWriter, r *http.Request) {
	var srv models.Server
	if err := json.NewDecoder(r.Body).Decode(&srv); err != nil {
		s.writeError(w, r, badRequest("invalid server: %v", err))
		return
	}
	if srv.Src == "" {
		s.writeError(w, r, badRequest("missing server src"))
		return
	}
	video, err := s.Resolver.Video(r.Context(), chi.URLParam(r, "provider"), srv)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (s *server) resolve(w http.ResponseWriter, r *http.Request) {
	vt, err := videoTypeParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Resolver.Resolve(r.Context(), chi.URLParam(r, "provider"), vt.VideoID(), vt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// searchQuery reads a global search query. The language defaults to the
// preferred one, then the configured one.
func (s *server) searchQuery(r *http.Request) (search.Query, error) {
	q := search.Query{Text: r.URL.Query().Get("q"), Language: r.URL.Query().Get("lang")}
	page, err := pageParam(r)
	if err != nil {
		return q, err
	}
	q.Page = page
	return s.withLanguage(r.Context(), q)
}

// withLanguage fills an empty query language from the preferences, else the server default.
func (s *server) withLanguage(ctx context.Context, q search.Query) (search.Query, error) {
	if q.Language != "" {
		return q, nil
	}
	q.Language = s.Language
	if s.Preferences != nil {
		lang, err := s.Preferences.Language(ctx)
		if err != nil {
			return q, err
		}
		q.Language = lang
	}
	return q, nil
}

func (s *server) globalSearch(w http.ResponseWriter, r *http.Request) {
	q, err := s.searchQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug().Str("query", q.Text).Str("language", q.Language).Msg("Global search called")
	snapshot := search.Collect(s.Search.Search(r.Context(), q))
	if err := r.Context().Err(); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type preferencesResponse struct {
	ActiveProvider string            `json:"activeProvider"`
	Language       string            `json:"language"`
	DoHURL         string            `json:"dohUrl"`
	Domains        map[string]string `json:"domains"`
}

type preferencesRequest struct {
	ActiveProvider *string            `json:"activeProvider"`
	Language       *string            `json:"language"`
	DoHURL         *string            `json:"dohUrl"`
	Domains        map[string]*string `json:"domains"`
}

func (s *server) getPreferences(w http.ResponseWriter, r *http.Request) {
	if s.Preferences == nil {
		s.writeError(w, r, apperrors.NewNotFoundError("preferences", nil))
		return
	}
	ctx := r.Context()
	var resp preferencesResponse
	var err error
	if resp.ActiveProvider, err = s.Preferences.ActiveProvider(ctx); err == nil {
		if resp.Language, err = s.Preferences.Language(ctx); err == nil {
			if resp.DoHURL, err = s.Preferences.DoHURL(ctx); err == nil {
				resp.Domains, err = s.Preferences.DomainOverrides(ctx)
			}
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) putPreferences(w http.ResponseWriter, r *http.Request) {
	if s.Preferences == nil {
		s.writeError(w, r, apperrors.NewNotFoundError("preferences", nil))
		return
	}
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, badRequest("invalid preferences: %v", err))
		return
	}
	ctx := r.Context()
	var errs []error
	if req.ActiveProvider != nil {
		if *req.ActiveProvider != "" {
			if _, err := s.Registry.Get(*req.ActiveProvider); err != nil {
				s.writeError(w, r, badRequest("unknown provider %q", *req.ActiveProvider))
				return
			}
		}
		errs = append(errs, s.Preferences.SetActiveProvider(ctx, *req.ActiveProvider))
	}
	if req.Language != nil {
		errs = append(errs, s.Preferences.SetLanguage(ctx, *req.Language))
	}
	if req.DoHURL != nil {
		errs = append(errs, s.Preferences.SetDoHURL(ctx, *req.DoHURL))
	}
	for provider, domain := range req.Domains {
		d := ""
		if domain != nil {
			d = *domain
		}
		errs = append(errs, s.Preferences.SetDomainOverride(ctx, provider, d))
	}
	if err := errors.Join(errs...); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.getPreferences(w, r)
}

func (s *server) exportBackup(w http.ResponseWriter, r *http.Request) {
	if s.Backup == nil {
		s.writeError(w, r, apperrors.NewNotFoundError("backup", nil))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="streamscraper-backup.json"`)
	if err := s.Backup.Export(r.Context(), w); err != nil {
		// Headers may already be sent; the error is only logged.
		s.logger.Error().Err(err).Msg("Failed to export backup")
	}
}

func (s *server) importBackup(w http.ResponseWriter, r *http.Request) {
	if s.Backup == nil {
		s.writeError(w, r, apperrors.NewNotFoundError("backup", nil))
		return
	}
	report, err := s.Backup.Import(r.Context(), http.MaxBytesReader(w, r.Body, 32<<20))
	if errors.Is(err, &apperrors.ParseError{}) {
		err = badRequest("invalid backup: %v", err)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
