package cycle

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"tsp-cloud/internal/priority/domain/event"
)

var base = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func evt(code event.Code, key string, sec int) event.Event {
	return event.Event{Code: code, Key: key, Timestamp: at(sec), Location: "1001"}
}

func mustReconstruct(t *testing.T, events []event.Event, start, end time.Time) []Cycle {
	t.Helper()
	cycles, err := Reconstruct(events, start, end)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	return cycles
}

func TestReconstruct_CompleteCycleWithService(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeServiceStart, "A", 5),
		evt(event.CodeServiceEnd, "A", 15),
		evt(event.CodeCheckOut, "A", 20),
	}
	cycles := mustReconstruct(t, events, at(0), at(20))
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	c := cycles[0]
	if !c.CheckIn.Equal(at(0)) || !c.CheckOut.Equal(at(20)) {
		t.Fatalf("unexpected bounds: %s - %s", c.CheckIn, c.CheckOut)
	}
	if c.ServiceStart == nil || !c.ServiceStart.Equal(at(5)) {
		t.Fatalf("expected service start at 5s, got %v", c.ServiceStart)
	}
	if c.ServiceEnd == nil || !c.ServiceEnd.Equal(at(15)) {
		t.Fatalf("expected service end at 15s, got %v", c.ServiceEnd)
	}
	if c.ForcedClosed || c.Incomplete {
		t.Fatalf("expected clean close, got forced=%v incomplete=%v", c.ForcedClosed, c.Incomplete)
	}

	m := Derive(c)
	if m.TimeToServiceSeconds == nil || *m.TimeToServiceSeconds != 5 {
		t.Fatalf("expected time to service 5, got %v", m.TimeToServiceSeconds)
	}
	if m.ServiceDurationSeconds == nil || *m.ServiceDurationSeconds != 10 {
		t.Fatalf("expected service duration 10, got %v", m.ServiceDurationSeconds)
	}
	if m.TailSeconds == nil || *m.TailSeconds != 5 {
		t.Fatalf("expected tail 5, got %v", m.TailSeconds)
	}
	if m.RequestNoServiceSeconds != nil {
		t.Fatalf("expected nil no-service duration, got %v", *m.RequestNoServiceSeconds)
	}
}

func TestReconstruct_OverlappingOpenForcesClose(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeCheckIn, "A", 10),
	}
	cycles := mustReconstruct(t, events, at(0), at(10))
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	first, second := cycles[0], cycles[1]
	if !first.CheckIn.Equal(at(0)) || !first.CheckOut.Equal(at(10)) || !first.ForcedClosed || first.Incomplete {
		t.Fatalf("unexpected first cycle: %+v", first)
	}
	if !second.CheckIn.Equal(at(10)) || !second.CheckOut.Equal(at(10)) || !second.Incomplete || second.ForcedClosed {
		t.Fatalf("unexpected second cycle: %+v", second)
	}
}

func TestReconstruct_IdenticalOpensStillForceClose(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 3),
		evt(event.CodeCheckIn, "A", 3),
		evt(event.CodeCheckOut, "A", 8),
	}
	cycles := mustReconstruct(t, events, at(0), at(10))
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	if !cycles[0].ForcedClosed || !cycles[0].CheckOut.Equal(at(3)) {
		t.Fatalf("expected zero-length forced cycle, got %+v", cycles[0])
	}
	if cycles[1].ForcedClosed || !cycles[1].CheckOut.Equal(at(8)) {
		t.Fatalf("expected closed cycle at 8s, got %+v", cycles[1])
	}
}

func TestReconstruct_BackToBackRequestsShareBoundary(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeCheckOut, "A", 10),
		evt(event.CodeCheckIn, "A", 10),
		evt(event.CodeCheckOut, "A", 30),
	}
	for _, ordering := range [][]event.Event{events, {events[3], events[2], events[1], events[0]}} {
		result, err := NewReconstructor(event.DefaultVocabulary()).Run(ordering, at(0), at(40))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if result.Ignored != 0 {
			t.Fatalf("expected no ignored events, got %d", result.Ignored)
		}
		if len(result.Cycles) != 2 {
			t.Fatalf("expected 2 cycles, got %+v", result.Cycles)
		}
		first, second := result.Cycles[0], result.Cycles[1]
		if !first.CheckIn.Equal(at(0)) || !first.CheckOut.Equal(at(10)) || first.ForcedClosed || first.Incomplete {
			t.Fatalf("unexpected first cycle: %+v", first)
		}
		if !second.CheckIn.Equal(at(10)) || !second.CheckOut.Equal(at(30)) || second.ForcedClosed || second.Incomplete {
			t.Fatalf("unexpected second cycle: %+v", second)
		}
	}
}

func TestReconstruct_ZeroLengthCycleWithoutPriorOpen(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckOut, "A", 10),
		evt(event.CodeCheckIn, "A", 10),
	}
	result, err := NewReconstructor(event.DefaultVocabulary()).Run(events, at(0), at(20))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Cycles) != 1 || result.Ignored != 0 {
		t.Fatalf("expected one zero-length cycle, got %+v (ignored %d)", result.Cycles, result.Ignored)
	}
	c := result.Cycles[0]
	if !c.CheckIn.Equal(at(10)) || !c.CheckOut.Equal(at(10)) || c.ForcedClosed || c.Incomplete {
		t.Fatalf("unexpected cycle: %+v", c)
	}
}

func TestReconstruct_ServiceStartWithoutEndFallsBackToCheckOut(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeServiceStart, "A", 4),
		evt(event.CodeCheckOut, "A", 12),
	}
	cycles := mustReconstruct(t, events, at(0), at(60))
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].ServiceEnd == nil || !cycles[0].ServiceEnd.Equal(at(12)) {
		t.Fatalf("expected service end to fall back to check-out, got %v", cycles[0].ServiceEnd)
	}
	m := Derive(cycles[0])
	if m.TailSeconds == nil || *m.TailSeconds != 0 {
		t.Fatalf("expected zero tail, got %v", m.TailSeconds)
	}
}

func TestReconstruct_ServiceEndWithoutStartIsNoService(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeServiceEnd, "A", 6),
		evt(event.CodeCheckOut, "A", 9),
	}
	cycles := mustReconstruct(t, events, at(0), at(60))
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].HasService() || cycles[0].ServiceEnd != nil {
		t.Fatalf("expected no inner interval, got %+v", cycles[0])
	}
	m := Derive(cycles[0])
	if m.RequestNoServiceSeconds == nil || *m.RequestNoServiceSeconds != 9 {
		t.Fatalf("expected no-service duration 9, got %v", m.RequestNoServiceSeconds)
	}
	if m.TimeToServiceSeconds != nil {
		t.Fatalf("expected nil time to service")
	}
}

func TestReconstruct_FirstServiceEventWins(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeServiceStart, "A", 2),
		evt(event.CodeServiceStart, "A", 4),
		evt(event.CodeServiceEnd, "A", 6),
		evt(event.CodeServiceEnd, "A", 8),
		evt(event.CodeCheckOut, "A", 10),
	}
	cycles := mustReconstruct(t, events, at(0), at(10))
	if !cycles[0].ServiceStart.Equal(at(2)) || !cycles[0].ServiceEnd.Equal(at(6)) {
		t.Fatalf("expected first occurrences to win, got %s - %s", cycles[0].ServiceStart, cycles[0].ServiceEnd)
	}
}

func TestReconstruct_MarkersAndTieBreak(t *testing.T) {
	// Marker listed before the check-in at the same timestamp must still land in the cycle.
	events := []event.Event{
		evt(event.CodeEarlyGreen, "A", 0),
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeExtendGreen, "A", 7),
		evt(event.CodeCheckOut, "A", 10),
		evt(event.CodeForceOff, "A", 11),
	}
	cycles := mustReconstruct(t, events, at(0), at(20))
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	want := []MarkerOffset{{Kind: "early_green", Seconds: 0}, {Kind: "extend_green", Seconds: 7}}
	if !reflect.DeepEqual(cycles[0].Markers, want) {
		t.Fatalf("unexpected markers: %+v", cycles[0].Markers)
	}
}

func TestReconstruct_KeysAreIndependent(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeCheckIn, "B", 1),
		evt(event.CodeCheckOut, "A", 5),
		evt(event.CodeCheckOut, "B", 9),
		{Code: event.CodeCheckIn, Key: "A", Timestamp: at(2), Location: "2002"},
	}
	cycles := mustReconstruct(t, events, at(0), at(30))
	if len(cycles) != 3 {
		t.Fatalf("expected 3 cycles, got %d", len(cycles))
	}
	for _, c := range cycles {
		if c.ForcedClosed {
			t.Fatalf("unexpected forced close across keys: %+v", c)
		}
	}
	if cycles[2].Location != "2002" || !cycles[2].Incomplete {
		t.Fatalf("expected open cycle at other location to be incomplete, got %+v", cycles[2])
	}
}

func TestReconstruct_UnknownCodesAndOrphansIgnored(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckOut, "A", 0),
		evt(event.CodeServiceStart, "A", 1),
		evt(event.Code(7), "A", 2),
		evt(event.CodeCheckIn, "A", 3),
		evt(event.CodeCheckOut, "A", 4),
	}
	result, err := NewReconstructor(event.DefaultVocabulary()).Run(events, at(0), at(10))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(result.Cycles))
	}
	if result.Ignored != 3 {
		t.Fatalf("expected 3 ignored events, got %d", result.Ignored)
	}
	if result.Cycles[0].HasService() {
		t.Fatalf("orphan service start must not attach to a later cycle")
	}
}

func TestReconstruct_WindowClipping(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeCheckOut, "A", 5),
		evt(event.CodeCheckIn, "A", 8),
		evt(event.CodeCheckOut, "A", 14),
		evt(event.CodeCheckIn, "B", 30),
	}
	result, err := NewReconstructor(event.DefaultVocabulary()).Run(events, at(10), at(20))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Cycles) != 1 {
		t.Fatalf("expected 1 cycle in window, got %d", len(result.Cycles))
	}
	if !result.Cycles[0].CheckIn.Equal(at(8)) {
		t.Fatalf("expected cycle starting before the window to be kept, got %+v", result.Cycles[0])
	}
	if result.OutOfWindow != 1 {
		t.Fatalf("expected 1 out-of-window cycle, got %d", result.OutOfWindow)
	}
	// The check-in after reportEnd is closed at reportEnd and therefore inverted.
	if result.Inverted != 1 {
		t.Fatalf("expected 1 inverted cycle, got %d", result.Inverted)
	}
	for _, c := range result.Cycles {
		if c.CheckOut.Before(c.CheckIn) {
			t.Fatalf("inverted cycle emitted: %+v", c)
		}
		inStart := !c.CheckIn.Before(at(10)) && !c.CheckIn.After(at(20))
		inEnd := !c.CheckOut.Before(at(10)) && !c.CheckOut.After(at(20))
		if !inStart && !inEnd {
			t.Fatalf("cycle has no endpoint in window: %+v", c)
		}
	}
}

func TestReconstruct_IdempotentAndOrderInsensitive(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckIn, "A", 0),
		evt(event.CodeServiceStart, "A", 3),
		evt(event.CodeEarlyGreen, "A", 3),
		evt(event.CodeExtendGreen, "A", 3),
		evt(event.CodeServiceEnd, "A", 9),
		evt(event.CodeCheckOut, "A", 12),
		evt(event.CodeCheckIn, "B", 4),
		evt(event.CodeCheckIn, "B", 20),
		evt(event.CodeServiceStart, "B", 22),
		evt(event.CodeCheckIn, "C", 40),
		evt(event.CodeCheckOut, "C", 41),
	}
	first := mustReconstruct(t, events, at(0), at(60))
	second := mustReconstruct(t, events, at(0), at(60))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reconstruct is not idempotent")
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]event.Event(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := mustReconstruct(t, shuffled, at(0), at(60))
		if !reflect.DeepEqual(first, got) {
			t.Fatalf("shuffle %d changed result:\nwant %+v\ngot  %+v", i, first, got)
		}
	}
}

func TestReconstruct_DoesNotMutateInput(t *testing.T) {
	events := []event.Event{
		evt(event.CodeCheckOut, "A", 9),
		evt(event.CodeCheckIn, "A", 1),
	}
	mustReconstruct(t, events, at(0), at(10))
	if events[0].Code != event.CodeCheckOut {
		t.Fatalf("input slice was reordered")
	}
}

func TestReconstruct_EmptyInput(t *testing.T) {
	cycles := mustReconstruct(t, nil, at(0), at(10))
	if cycles == nil || len(cycles) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", cycles)
	}
}

func TestReconstruct_InvalidWindow(t *testing.T) {
	if _, err := Reconstruct(nil, at(10), at(0)); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if _, err := Reconstruct(nil, time.Time{}, at(0)); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for zero start, got %v", err)
	}
}

func TestReconstruct_CustomVocabulary(t *testing.T) {
	vocab, err := event.NewVocabulary(map[event.Code]event.Entry{
		1: {Role: event.RoleOpen},
		2: {Role: event.RoleClose},
		3: {Role: event.RoleMarker, Kind: "ped_call"},
	})
	if err != nil {
		t.Fatalf("new vocabulary: %v", err)
	}
	events := []event.Event{evt(1, "A", 0), evt(3, "A", 2), evt(2, "A", 4), evt(event.CodeCheckIn, "A", 5)}
	cycles, err := NewReconstructor(vocab).Reconstruct(events, at(0), at(10))
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(cycles) != 1 || len(cycles[0].Markers) != 1 || cycles[0].Markers[0].Kind != "ped_call" {
		t.Fatalf("unexpected cycles: %+v", cycles)
	}
}
