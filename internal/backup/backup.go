// Package backup exports and restores user state as a versioned JSON document.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/storage"
)

// CurrentVersion is the document version written by Export.
const CurrentVersion = 3

// ErrUnsupportedVersion is returned for documents newer than CurrentVersion.
var ErrUnsupportedVersion = errors.New("unsupported backup version")

// Document is the backup root.
type Document struct {
	Version    int            `json:"version"`
	ExportedAt int64          `json:"exportedAt"` // unix millis
	Providers  []ProviderData `json:"providers"`
}

// ProviderData holds the records of one provider. Records are kept raw so a
// malformed one can be skipped on import.
type ProviderData struct {
	Name     string            `json:"name"`
	Movies   []json.RawMessage `json:"movies"`
	TvShows  []json.RawMessage `json:"tvShows"`
	Episodes []json.RawMessage `json:"episodes"`
}

type movieRecord struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Poster       *string              `json:"poster"`
	Banner       *string              `json:"banner"`
	IsFavorite   bool                 `json:"isFavorite"`
	IsWatched    bool                 `json:"isWatched"`
	WatchedDate  *int64               `json:"watchedDate"`
	WatchHistory *models.WatchHistory `json:"watchHistory"`
}

type tvShowRecord struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Poster     *string `json:"poster"`
	Banner     *string `json:"banner"`
	IsFavorite bool    `json:"isFavorite"`
	IsWatching *bool   `json:"isWatching"`
}

type episodeRecord struct {
	ID           string               `json:"id"`
	Number       int                  `json:"number"`
	Title        *string              `json:"title"`
	Poster       *string              `json:"poster"`
	TvShowID     *string              `json:"tvShowId"`
	SeasonID     *string              `json:"seasonId"`
	IsWatched    bool                 `json:"isWatched"`
	WatchedDate  *int64               `json:"watchedDate"`
	WatchHistory *models.WatchHistory `json:"watchHistory"`
}

// Report summarises an import.
type Report struct {
	Movies           int      `json:"movies"`
	TvShows          int      `json:"tvShows"`
	Episodes         int      `json:"episodes"`
	Skipped          int      `json:"skipped"`
	SkippedProviders []string `json:"skippedProviders,omitempty"`
}

// Manager exports and imports the user state held in a store.
type Manager struct {
	store *storage.Store
	known []string
}

// NewManager creates a manager. When known is not empty, Import skips the
// providers it does not name.
func NewManager(store *storage.Store, known ...string) *Manager {
	return &Manager{store: store, known: known}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func millis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

// Export writes every persisted provider's movies, TV shows and episodes to w.
func (m *Manager) Export(ctx context.Context, w io.Writer) error {
	names, err := m.store.Providers(ctx)
	if err != nil {
		return err
	}
	doc := Document{Version: CurrentVersion, ExportedAt: time.Now().UnixMilli(), Providers: make([]ProviderData, 0, len(names))}
	for _, name := range names {
		data, err := m.exportProvider(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
		doc.Providers = append(doc.Providers, data)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	logger := config.GetLogger()
	logger.Info().Int("providers", len(doc.Providers)).Msg("Exported backup")
	return nil
}

func (m *Manager) exportProvider(ctx context.Context, name string) (ProviderData, error) {
	data := ProviderData{Name: name, Movies: []json.RawMessage{}, TvShows: []json.RawMessage{}, Episodes: []json.RawMessage{}}

	movies, err := m.store.Movies(name).List(ctx, storage.ListOptions{})
	if err != nil {
		return data, err
	}
	for _, mv := range movies {
		raw, err := json.Marshal(movieRecord{
			ID: mv.ID, Title: mv.Title, Poster: optional(mv.Poster), Banner: optional(mv.Banner),
			IsFavorite: mv.IsFavorite, IsWatched: mv.IsWatched,
			WatchedDate: millis(mv.WatchedDate), WatchHistory: mv.WatchHistory,
		})
		if err != nil {
			return data, err
		}
		data.Movies = append(data.Movies, raw)
	}

	shows, err := m.store.TvShows(name).List(ctx, storage.ListOptions{})
	if err != nil {
		return data, err
	}
	for _, s := range shows {
		watching := s.IsWatching
		raw, err := json.Marshal(tvShowRecord{
			ID: s.ID, Title: s.Title, Poster: optional(s.Poster), Banner: optional(s.Banner),
			IsFavorite: s.IsFavorite, IsWatching: &watching,
		})
		if err != nil {
			return data, err
		}
		data.TvShows = append(data.TvShows, raw)
	}

	episodes, err := m.store.Episodes(name).List(ctx, storage.ListOptions{})
	if err != nil {
		return data, err
	}
	for _, e := range episodes {
		rec := episodeRecord{
			ID: e.ID, Number: e.Number, Title: optional(e.Title), Poster: optional(e.Poster),
			IsWatched: e.IsWatched, WatchedDate: millis(e.WatchedDate), WatchHistory: e.WatchHistory,
		}
		if e.Show != nil {
			rec.TvShowID = optional(e.Show.ID)
		}
		if e.Season != nil {
			rec.SeasonID = optional(e.Season.ID)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return data, err
		}
		data.Episodes = append(data.Episodes, raw)
	}
	return data, nil
}

// Import restores a document read from r. Records that are malformed or have
// no id are skipped and counted. Stored display metadata is kept and the
// backup's user state is applied over it.
func (m *Manager) Import(ctx context.Context, r io.Reader) (Report, error) {
	var report Report
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return report, apperrors.NewParseError("backup", "document")
	}
	if doc.Version > CurrentVersion {
		return report, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if doc.Providers == nil {
		return report, apperrors.NewParseError("backup", "providers")
	}

	logger := config.GetLogger()
	for _, p := range doc.Providers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if p.Name == "" || (len(m.known) > 0 && !slices.ContainsFunc(m.known, func(k string) bool { return strings.EqualFold(k, p.Name) })) {
			logger.Warn().Str("provider", p.Name).Msg("Skipping backup of unknown provider")
			report.SkippedProviders = append(report.SkippedProviders, p.Name)
			continue
		}
		if err := m.importProvider(ctx, p, &report); err != nil {
			return report, fmt.Errorf("failed to import %s: %w", p.Name, err)
		}
	}

	logger.Info().
		Int("movies", report.Movies).
		Int("tv_shows", report.TvShows).
		Int("episodes", report.Episodes).
		Int("skipped", report.Skipped).
		Msg("Imported backup")
	return report, nil
}

func (m *Manager) importProvider(ctx context.Context, p ProviderData, report *Report) error {
	movies := m.store.Movies(p.Name)
	for _, raw := range p.Movies {
		var rec movieRecord
		if json.Unmarshal(raw, &rec) != nil || rec.ID == "" {
			report.Skipped++
			continue
		}
		restored := &models.Movie{
			ShowDetails: models.ShowDetails{
				ID: rec.ID, Title: rec.Title, Poster: value(rec.Poster), Banner: value(rec.Banner),
				IsFavorite: rec.IsFavorite, IsWatched: rec.IsWatched, WatchHistory: rec.WatchHistory,
			},
			WatchedDate: fromMillis(rec.WatchedDate),
		}
		if err := restore(ctx, movies, restored); err != nil {
			return err
		}
		report.Movies++
	}

	shows := m.store.TvShows(p.Name)
	for _, raw := range p.TvShows {
		var rec tvShowRecord
		if json.Unmarshal(raw, &rec) != nil || rec.ID == "" {
			report.Skipped++
			continue
		}
		restored := &models.TvShow{
			ShowDetails: models.ShowDetails{
				ID: rec.ID, Title: rec.Title, Poster: value(rec.Poster), Banner: value(rec.Banner),
				IsFavorite: rec.IsFavorite,
			},
			IsWatching: rec.IsWatching == nil || *rec.IsWatching,
		}
		if err := restore(ctx, shows, restored); err != nil {
			return err
		}
		report.TvShows++
	}

	episodes := m.store.Episodes(p.Name)
	for _, raw := range p.Episodes {
		var rec episodeRecord
		if json.Unmarshal(raw, &rec) != nil || rec.ID == "" {
			report.Skipped++
			continue
		}
		restored := &models.Episode{
			ID: rec.ID, Number: rec.Number, Title: value(rec.Title), Poster: value(rec.Poster),
			IsWatched: rec.IsWatched, WatchedDate: fromMillis(rec.WatchedDate), WatchHistory: rec.WatchHistory,
		}
		if id := value(rec.TvShowID); id != "" {
			restored.Show = &models.ShowRef{ID: id}
		}
		if id := value(rec.SeasonID); id != "" {
			restored.Season = &models.SeasonRef{ID: id}
		}
		if err := restore(ctx, episodes.Repository, restored); err != nil {
			return err
		}
		report.Episodes++
	}
	return nil
}

// restore saves the user state of restored, keeping the stored entity's other fields.
func restore[T models.Item](ctx context.Context, repo *storage.Repository[T], restored T) error {
	stored, err := repo.GetByID(ctx, restored.ItemID())
	switch {
	case err == nil:
		merged, _ := models.MergeItem(stored, restored).(T)
		return repo.Save(ctx, merged)
	case errors.Is(err, &apperrors.ErrNotFound{}):
		return repo.Save(ctx, restored)
	default:
		return err
	}
}
