package application

import (
	"context"
	"errors"
	"time"

	"tsp-cloud/internal/priority/domain/event"
)

// EventRepository persists parsed signal events.
type EventRepository interface {
	InsertEvents(ctx context.Context, events []event.Event) error
}

// EventQuery fetches stored events of one location within [start, end].
type EventQuery interface {
	QueryEvents(ctx context.Context, location string, start, end time.Time) ([]event.Event, error)
}

// ZoneResolver maps a location to the time zone its controller logs in.
type ZoneResolver interface {
	TimeZone(location string) *time.Location
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

var (
	// ErrInvalidReportRequest is returned for a missing location or an invalid window.
	ErrInvalidReportRequest = errors.New("priority: invalid report request")
)

type utcZones struct{}

func (utcZones) TimeZone(string) *time.Location { return time.UTC }
