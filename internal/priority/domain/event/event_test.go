package event

import (
	"errors"
	"testing"
	"time"
)

func TestParse_Layouts(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cases := []struct {
		name  string
		value string
		loc   *time.Location
		want  time.Time
	}{
		{"rfc3339", "2026-03-02T07:00:05Z", nil, time.Date(2026, 3, 2, 7, 0, 5, 0, time.UTC)},
		{"rfc3339 offset", "2026-03-02T07:00:05-06:00", nil, time.Date(2026, 3, 2, 13, 0, 5, 0, time.UTC)},
		{"controller millis", "2026-03-02 07:00:05.300", chicago, time.Date(2026, 3, 2, 7, 0, 5, 300_000_000, chicago)},
		{"controller seconds", "2026-03-02 07:00:05", nil, time.Date(2026, 3, 2, 7, 0, 5, 0, time.UTC)},
		{"unix seconds", "1772434805", nil, time.Unix(1772434805, 0)},
		{"unix millis", "1772434805300", nil, time.UnixMilli(1772434805300)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt, err := Parse(Raw{Code: 112, Key: "7", Timestamp: tc.value, Location: "1001"}, tc.loc)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !evt.Timestamp.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, evt.Timestamp)
			}
			if evt.Code != CodeCheckIn || evt.Key != "7" || evt.Location != "1001" {
				t.Fatalf("unexpected event: %+v", evt)
			}
		})
	}
}

func TestParse_KeepsLocalWallClock(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	evt, err := Parse(Raw{Code: 112, Key: "1", Timestamp: "2026-03-02 07:15:00", Location: "1001"}, chicago)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if evt.Timestamp.Hour() != 7 || evt.Timestamp.Location() != chicago {
		t.Fatalf("expected wall clock 07:xx in Chicago, got %s", evt.Timestamp)
	}
}

func TestParse_RejectsInvalidRecords(t *testing.T) {
	cases := []Raw{
		{Code: 112, Key: "1", Timestamp: "not-a-time", Location: "1001"},
		{Code: 112, Key: "1", Timestamp: "", Location: "1001"},
		{Code: 112, Key: "1", Timestamp: "0", Location: "1001"},
		{Code: 112, Key: "", Timestamp: "2026-03-02T07:00:05Z", Location: "1001"},
		{Code: 112, Key: "1", Timestamp: "2026-03-02T07:00:05Z", Location: " "},
	}
	for _, raw := range cases {
		if _, err := Parse(raw, nil); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("expected ErrInvalidEvent for %+v, got %v", raw, err)
		}
	}
}

func TestParseAll_DropsInvalidAndContinues(t *testing.T) {
	raws := []Raw{
		{Code: 112, Key: "1", Timestamp: "2026-03-02T07:00:00Z", Location: "1001"},
		{Code: 118, Key: "1", Timestamp: "garbage", Location: "1001"},
		{Code: 115, Key: "1", Timestamp: "2026-03-02T07:00:30Z", Location: "1001"},
	}
	events, rejected := ParseAll(raws, nil)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if len(rejected) != 1 || !errors.Is(rejected[0], ErrInvalidEvent) {
		t.Fatalf("expected one ErrInvalidEvent, got %v", rejected)
	}
	if !events[0].Before(events[1]) {
		t.Fatalf("expected check-in before check-out")
	}
}

func TestVocabulary(t *testing.T) {
	vocab := DefaultVocabulary()
	if vocab.Role(CodeCheckIn) != RoleOpen || vocab.Role(CodeCheckOut) != RoleClose {
		t.Fatalf("unexpected default roles")
	}
	if entry, ok := vocab.Lookup(CodeExtendGreen); !ok || entry.Kind != "extend_green" {
		t.Fatalf("unexpected marker entry: %+v", entry)
	}
	if _, ok := vocab.Lookup(7); ok {
		t.Fatalf("code 7 must be outside the vocabulary")
	}
	if RoleOpen.Priority() >= RoleMarker.Priority() || RoleMarker.Priority() >= RoleClose.Priority() {
		t.Fatalf("open must sort before marker and marker before close")
	}
	if RoleUnknown.Priority() <= RoleClose.Priority() {
		t.Fatalf("unknown codes must sort last")
	}

	if _, err := NewVocabulary(map[Code]Entry{1: {Role: RoleOpen}}); !errors.Is(err, ErrIncompleteVocabulary) {
		t.Fatalf("expected ErrIncompleteVocabulary, got %v", err)
	}
	if _, err := NewVocabulary(map[Code]Entry{1: {Role: RoleUnknown}}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	custom, err := NewVocabulary(map[Code]Entry{1: {Role: RoleOpen}, 2: {Role: RoleClose}})
	if err != nil {
		t.Fatalf("new vocabulary: %v", err)
	}
	if entry, _ := custom.Lookup(1); entry.Kind != "open" {
		t.Fatalf("expected kind to default to role name, got %q", entry.Kind)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Service_Start ")
	if err != nil || role != RoleServiceStart {
		t.Fatalf("expected service_start, got %v (%v)", role, err)
	}
	if _, err := ParseRole("unknown"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}
