package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tsp-cloud/internal/priority/domain/event"
)

// EventQuery is a Postgres query implementation.
type EventQuery struct {
	db    *sql.DB
	table string
}

// NewEventQuery constructs a query with default table name.
func NewEventQuery(db *sql.DB, opts ...QueryOption) *EventQuery {
	query := &EventQuery{db: db, table: defaultEventTable}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryEvents returns events of a location within [start, end].
// Timestamps are returned in UTC; callers convert to the location's zone.
func (q *EventQuery) QueryEvents(ctx context.Context, location string, start, end time.Time) ([]event.Event, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("event query: nil db")
	}
	if location == "" || start.IsZero() || end.IsZero() {
		return nil, errors.New("event query: invalid arguments")
	}

	query := fmt.Sprintf(`
SELECT request_key, event_code, ts
FROM %s
WHERE location_id = $1
	AND ts >= $2
	AND ts <= $3
ORDER BY ts ASC, event_code ASC`, q.table)

	rows, err := q.db.QueryContext(ctx, query, location, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]event.Event, 0)
	for rows.Next() {
		var (
			key  string
			code int
			ts   time.Time
		)
		if err := rows.Scan(&key, &code, &ts); err != nil {
			return nil, err
		}
		events = append(events, event.Event{
			Code:      event.Code(code),
			Key:       key,
			Timestamp: ts.UTC(),
			Location:  location,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// QueryOption configures the event query.
type QueryOption func(*EventQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(query *EventQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}
