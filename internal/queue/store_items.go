package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MovieSpec carries the catalog identity a movie disc is queued under.
type MovieSpec struct {
	Title       string
	Year        int
	IMDBID      string
	PkgIndex    int
	Barcode     string
	SourceLabel string
}

// NewMovie inserts a pending movie job.
func (s *Store) NewMovie(ctx context.Context, spec MovieSpec) (*Item, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            kind, source_label, title, year, imdb_id, pkg_index, barcode,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		KindMovie,
		nullableString(spec.SourceLabel),
		spec.Title,
		nullableInt(spec.Year),
		nullableString(spec.IMDBID),
		nullableInt(spec.PkgIndex),
		nullableString(spec.Barcode),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert movie: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// NewTVDisc inserts a pending TV disc job keyed to a manifest disc.
func (s *Store) NewTVDisc(ctx context.Context, discKey, series string, season, disc int, sourceLabel string) (*Item, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            kind, disc_key, source_label, series, season, disc, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		KindTVDisc,
		discKey,
		nullableString(sourceLabel),
		series,
		season,
		disc,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tv disc: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindByDiscKey returns the first item for a manifest disc key.
func (s *Store) FindByDiscKey(ctx context.Context, discKey string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE disc_key = ? ORDER BY id LIMIT 1`,
		discKey,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by disc key: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET kind = ?, disc_key = ?, source_label = ?, title = ?, year = ?,
             imdb_id = ?, pkg_index = ?, barcode = ?,
             series = ?, season = ?, disc = ?, status = ?, error_kind = ?,
             error_message = ?, progress_phase = ?, progress_message = ?,
             review_json = ?, run_id = ?, updated_at = ?
         WHERE id = ?`,
		item.Kind,
		nullableString(item.DiscKey),
		nullableString(item.SourceLabel),
		nullableString(item.Title),
		nullableInt(item.Year),
		nullableString(item.IMDBID),
		nullableInt(item.PkgIndex),
		nullableString(item.Barcode),
		nullableString(item.Series),
		item.Season,
		item.Disc,
		item.Status,
		nullableString(item.ErrorKind),
		nullableString(item.ErrorMessage),
		nullableString(item.ProgressPhase),
		nullableString(item.ProgressMessage),
		nullableString(item.ReviewJSON),
		nullableString(item.RunID),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Transition moves an item to a new status, enforcing the lifecycle rules.
// A transition to failed records the failure kind and message; a transition
// back to pending clears them.
func (s *Store) Transition(ctx context.Context, id int64, to Status, errorKind, errorMessage string) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d not found", id)
	}
	if !CanTransition(item.Status, to) {
		return nil, fmt.Errorf("illegal status transition %s -> %s for item %d", item.Status, to, id)
	}

	item.Status = to
	switch to {
	case StatusFailed:
		item.ErrorKind = errorKind
		item.ErrorMessage = errorMessage
	case StatusPending:
		item.ErrorKind = ""
		item.ErrorMessage = ""
		item.ProgressPhase = ""
		item.ProgressMessage = ""
	}
	if err := s.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextPending returns the oldest pending item, or nil when the queue is drained.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearDone removes only finished items from the queue.
func (s *Store) ClearDone(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusDone)
	if err != nil {
		return 0, fmt.Errorf("clear done: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
