package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tsp-cloud/internal/priority/domain/event"
)

type eventID struct {
	location string
	key      string
	code     event.Code
	unixNano int64
}

// EventStore is an in-memory event store for demo/testing.
// It implements both the repository and the query side.
type EventStore struct {
	mu     sync.RWMutex
	seen   map[eventID]struct{}
	events map[string][]event.Event
}

// NewEventStore constructs a store.
func NewEventStore() *EventStore {
	return &EventStore{
		seen:   make(map[eventID]struct{}),
		events: make(map[string][]event.Event),
	}
}

// InsertEvents stores events. Replayed events are ignored.
// Events are identified by location, key, code and timestamp, so two identical
// records in one batch are stored once.
func (s *EventStore) InsertEvents(ctx context.Context, events []event.Event) error {
	_ = ctx
	for _, evt := range events {
		if evt.Location == "" || evt.Key == "" || evt.Timestamp.IsZero() {
			return event.ErrInvalidEvent
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range events {
		id := eventID{location: evt.Location, key: evt.Key, code: evt.Code, unixNano: evt.Timestamp.UnixNano()}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.events[evt.Location] = append(s.events[evt.Location], evt)
	}
	return nil
}

// QueryEvents returns events of a location within [start, end] in time order.
func (s *EventStore) QueryEvents(ctx context.Context, location string, start, end time.Time) ([]event.Event, error) {
	_ = ctx
	if location == "" || start.IsZero() || end.IsZero() {
		return nil, errors.New("event store: invalid arguments")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]event.Event, 0)
	for _, evt := range s.events[location] {
		if evt.Timestamp.Before(start) || evt.Timestamp.After(end) {
			continue
		}
		result = append(result, evt)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
