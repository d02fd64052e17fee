package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Code is a signal-controller event code (e.g. 112 = priority check-in).
type Code int

// Event is a single coded priority event, validated at ingestion.
// Key identifies the request within a location (request number).
type Event struct {
	Code      Code
	Key       string
	Timestamp time.Time
	Location  string
}

// Before reports whether e happened before other.
func (e Event) Before(other Event) bool {
	return e.Timestamp.Before(other.Timestamp)
}

// Raw is an event record as delivered by an upstream source, before validation.
type Raw struct {
	Code      int    `json:"code"`
	Key       string `json:"key"`
	Timestamp string `json:"timestamp"`
	Location  string `json:"location"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// Parse converts a raw record into an Event.
// Zone-less timestamps are read in loc; nil loc means UTC.
func Parse(raw Raw, loc *time.Location) (Event, error) {
	location := strings.TrimSpace(raw.Location)
	key := strings.TrimSpace(raw.Key)
	if location == "" {
		return Event{}, fmt.Errorf("%w: missing location", ErrInvalidEvent)
	}
	if key == "" {
		return Event{}, fmt.Errorf("%w: missing key", ErrInvalidEvent)
	}
	ts, err := ParseTimestamp(raw.Timestamp, loc)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Code:      Code(raw.Code),
		Key:       key,
		Timestamp: ts,
		Location:  location,
	}, nil
}

// ParseAll parses every record, dropping the invalid ones.
// The returned errors describe the dropped records in input order.
func ParseAll(raws []Raw, loc *time.Location) ([]Event, []error) {
	events := make([]Event, 0, len(raws))
	var rejected []error
	for i, raw := range raws {
		evt, err := Parse(raw, loc)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		events = append(events, evt)
	}
	return events, rejected
}

// ParseTimestamp accepts RFC3339, controller log layouts and unix seconds/milliseconds.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidEvent)
	}
	if loc == nil {
		loc = time.UTC
	}
	if isDigits(value) {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidEvent, value)
		}
		// Accept milliseconds or seconds.
		if n > 1_000_000_000_000 {
			return time.UnixMilli(n).In(loc), nil
		}
		return time.Unix(n, 0).In(loc), nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidEvent, value)
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
