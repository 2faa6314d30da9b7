package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/models"
)

// record holds the columns indexed next to an entity's JSON document.
type record struct {
	title    string
	favorite bool
	watched  bool
	showID   string
}

// ListOptions filters List.
type ListOptions struct {
	FavoritesOnly bool
	WatchedOnly   bool
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

// Repository stores one kind of entity for one provider. Ids are only unique
// within a provider.
type Repository[T models.Item] struct {
	db       *sql.DB
	provider string
	table    string
	columns  func(T) record
}

func newRepository[T models.Item](db *sql.DB, provider, table string, columns func(T) record) *Repository[T] {
	return &Repository[T]{db: db, provider: provider, table: table, columns: columns}
}

func (r *Repository[T]) decode(data string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s row: %w", r.table, err)
	}
	return v, nil
}

// GetByID returns the entity id, or *apperrors.ErrNotFound.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	var data string
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE provider = ? AND id = ?`, r.table),
		r.provider, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, apperrors.NewNotFoundError(r.table, id)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s %s: %w", r.table, id, err)
	}
	return r.decode(data)
}

// GetByIDs streams the stored entities among ids. Unknown ids are skipped.
// The channel is closed when every row was sent, on the first error, or when ctx is done.
func (r *Repository[T]) GetByIDs(ctx context.Context, ids []string) <-chan models.StreamResult[T] {
	out := make(chan models.StreamResult[T])
	go func() {
		defer close(out)
		send := func(res models.StreamResult[T]) bool {
			select {
			case out <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if len(ids) == 0 {
			return
		}

		args := make([]any, 0, len(ids)+1)
		args = append(args, r.provider)
		for _, id := range ids {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		rows, err := r.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT data FROM %s WHERE provider = ? AND id IN (%s)`, r.table, placeholders),
			args...,
		)
		if err != nil {
			send(models.StreamResult[T]{Err: fmt.Errorf("failed to query %s: %w", r.table, err)})
			return
		}
		defer rows.Close()

		for rows.Next() {
			var data string
			if err := rows.Scan(&data); err != nil {
				send(models.StreamResult[T]{Err: fmt.Errorf("failed to scan %s: %w", r.table, err)})
				return
			}
			v, err := r.decode(data)
			if err != nil {
				send(models.StreamResult[T]{Err: err})
				return
			}
			if !send(models.StreamResult[T]{Value: v}) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			send(models.StreamResult[T]{Err: err})
		}
	}()
	return out
}

// Save inserts item or replaces the stored copy with the same id.
func (r *Repository[T]) Save(ctx context.Context, item T) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", r.table, item.ItemID(), err)
	}
	rec := r.columns(item)
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (provider, id, title, is_favorite, is_watched, %sdata, updated_at)
			VALUES (?, ?, ?, ?, ?, %s?, ?)
			ON CONFLICT (provider, id) DO UPDATE SET
				title = excluded.title,
				is_favorite = excluded.is_favorite,
				is_watched = excluded.is_watched,
				%sdata = excluded.data,
				updated_at = excluded.updated_at`,
			r.table, r.extraColumn(), r.extraPlaceholder(), r.extraUpdate()),
		r.args(item.ItemID(), rec, string(data))...,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", r.table, item.ItemID(), err)
	}
	return nil
}

func (r *Repository[T]) hasShowID() bool { return r.table == "episodes" }

func (r *Repository[T]) extraColumn() string {
	if r.hasShowID() {
		return "show_id, "
	}
	return ""
}

func (r *Repository[T]) extraPlaceholder() string {
	if r.hasShowID() {
		return "?, "
	}
	return ""
}

func (r *Repository[T]) extraUpdate() string {
	if r.hasShowID() {
		return "show_id = excluded.show_id,\n\t\t\t\t"
	}
	return ""
}

func (r *Repository[T]) args(id string, rec record, data string) []any {
	args := []any{r.provider, id, rec.title, rec.favorite, rec.watched}
	if r.hasShowID() {
		args = append(args, rec.showID)
	}
	return append(args, data, time.Now().UnixMilli())
}

// Delete removes the entity id. Deleting an unknown id is not an error.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE provider = ? AND id = ?`, r.table), r.provider, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", r.table, id, err)
	}
	return nil
}

// List returns the stored entities, most recently saved first.
func (r *Repository[T]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	return r.query(ctx, "", nil, opts)
}

func (r *Repository[T]) query(ctx context.Context, where string, args []any, opts ListOptions) ([]T, error) {
	q := fmt.Sprintf(`SELECT data FROM %s WHERE provider = ?`, r.table)
	params := append([]any{r.provider}, args...)
	if where != "" {
		q += " AND " + where
	}
	if opts.FavoritesOnly {
		q += " AND is_favorite = 1"
	}
	if opts.WatchedOnly {
		q += " AND is_watched = 1"
	}
	q += " ORDER BY updated_at DESC, id"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		params = append(params, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.table, err)
		}
		v, err := r.decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Merge returns fresh carrying the user state stored under its id. fresh is
// returned as a copy when nothing is stored.
func (r *Repository[T]) Merge(ctx context.Context, fresh T) (T, error) {
	persisted, err := r.GetByID(ctx, fresh.ItemID())
	if err != nil && !errors.Is(err, &apperrors.ErrNotFound{}) {
		var zero T
		return zero, err
	}
	var merged models.Item
	if err != nil {
		merged = models.CloneItem(fresh)
	} else {
		merged = models.MergeItem(fresh, persisted)
	}
	out, _ := merged.(T)
	return out, nil
}

// EpisodeRepository adds show lookups to the episode repository.
type EpisodeRepository struct {
	*Repository[*models.Episode]
}

// ByShow returns the stored episodes of showID, most recently saved first.
func (r *EpisodeRepository) ByShow(ctx context.Context, showID string, opts ListOptions) ([]*models.Episode, error) {
	return r.query(ctx, "show_id = ?", []any{showID}, opts)
}
