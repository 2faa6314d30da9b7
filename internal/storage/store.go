// Package storage persists catalog entities and user preferences in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store owns the database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the database at path, creating its directory, and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer, and an in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies every pending migration.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := config.GetLogger()
	for _, r := range results {
		logger.Debug().Str("migration", r.Source.Path).Dur("duration", r.Duration).Msg("Applied migration")
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Movies returns the movie repository of provider.
func (s *Store) Movies(provider string) *Repository[*models.Movie] {
	return newRepository(s.db, provider, "movies", func(m *models.Movie) record {
		return record{title: m.Title, favorite: m.IsFavorite, watched: m.IsWatched}
	})
}

// TvShows returns the TV show repository of provider.
func (s *Store) TvShows(provider string) *Repository[*models.TvShow] {
	return newRepository(s.db, provider, "tv_shows", func(t *models.TvShow) record {
		return record{title: t.Title, favorite: t.IsFavorite, watched: t.IsWatched}
	})
}

// Episodes returns the episode repository of provider.
func (s *Store) Episodes(provider string) *EpisodeRepository {
	return &EpisodeRepository{Repository: newRepository(s.db, provider, "episodes", func(e *models.Episode) record {
		r := record{title: e.Title, watched: e.IsWatched}
		if e.Show != nil {
			r.showID = e.Show.ID
		}
		return r
	})}
}

// Preferences returns the preference store. Unset values fall back to cfg.
func (s *Store) Preferences(cfg *config.Config) *Preferences {
	return &Preferences{db: s.db, cfg: cfg}
}

// Providers returns the names of every provider with persisted entities, sorted.
func (s *Store) Providers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider FROM movies
		UNION SELECT provider FROM tv_shows
		UNION SELECT provider FROM episodes`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}
