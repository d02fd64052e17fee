package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tsp-cloud/internal/priority/domain/event"
)

const defaultEventTable = "signal_events"

// EventRepository is a Postgres implementation for signal events.
type EventRepository struct {
	db    *sql.DB
	table string
}

// NewEventRepository constructs a repository with default table name.
func NewEventRepository(db *sql.DB, opts ...RepositoryOption) *EventRepository {
	repo := &EventRepository{db: db, table: defaultEventTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*EventRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *EventRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertEvents stores events. Replayed events are ignored.
func (r *EventRepository) InsertEvents(ctx context.Context, events []event.Event) error {
	if r == nil || r.db == nil {
		return errors.New("event repo: nil db")
	}
	if len(events) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	location_id,
	request_key,
	event_code,
	ts
) VALUES (
	$1, $2, $3, $4
)
ON CONFLICT (location_id, request_key, event_code, ts)
DO NOTHING`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range events {
		if evt.Location == "" || evt.Key == "" || evt.Timestamp.IsZero() {
			_ = tx.Rollback()
			return fmt.Errorf("event repo: %w", event.ErrInvalidEvent)
		}
		if _, err := stmt.ExecContext(ctx, evt.Location, evt.Key, int(evt.Code), evt.Timestamp); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
