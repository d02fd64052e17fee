package cycle

import (
	"sort"
	"time"

	"tsp-cloud/internal/priority/domain/event"
)

// Result is the outcome of one reconstruction pass.
type Result struct {
	Cycles []Cycle
	// Ignored counts events outside the vocabulary or without an open cycle.
	Ignored int
	// Inverted counts finalized cycles dropped because CheckOut < CheckIn.
	Inverted int
	// OutOfWindow counts finalized cycles outside the report window.
	OutOfWindow int
}

// Reconstructor rolls coded events into cycles using a code vocabulary.
// It holds no per-call state and is safe for concurrent use.
type Reconstructor struct {
	vocab event.Vocabulary
}

// NewReconstructor constructs a Reconstructor.
func NewReconstructor(vocab event.Vocabulary) *Reconstructor {
	return &Reconstructor{vocab: vocab}
}

// Reconstruct uses the default vocabulary.
func Reconstruct(events []event.Event, reportStart, reportEnd time.Time) ([]Cycle, error) {
	return NewReconstructor(event.DefaultVocabulary()).Reconstruct(events, reportStart, reportEnd)
}

// Reconstruct returns the cycles intersecting [reportStart, reportEnd].
func (r *Reconstructor) Reconstruct(events []event.Event, reportStart, reportEnd time.Time) ([]Cycle, error) {
	result, err := r.Run(events, reportStart, reportEnd)
	if err != nil {
		return nil, err
	}
	return result.Cycles, nil
}

type slotKey struct {
	location string
	key      string
}

// Run reconstructs cycles and reports what was dropped along the way.
// The input slice is not modified.
func (r *Reconstructor) Run(events []event.Event, reportStart, reportEnd time.Time) (Result, error) {
	if reportStart.IsZero() || reportEnd.IsZero() || reportEnd.Before(reportStart) {
		return Result{}, ErrInvalidWindow
	}

	ordered := r.sorted(events)
	slots := make(map[slotKey]*tracker)
	var result Result
	finalized := make([]Cycle, 0)

	for i := 0; i < len(ordered); {
		j := i + 1
		for j < len(ordered) && ordered[j].Timestamp.Equal(ordered[i].Timestamp) {
			j++
		}
		r.closeBeforeReopen(ordered[i:j], slots)
		for _, evt := range ordered[i:j] {
			if closed, ok := r.apply(evt, slots, &result); ok {
				finalized = append(finalized, closed)
			}
		}
		i = j
	}

	for _, slot := range slots {
		if closed, ok := slot.exhaust(reportEnd); ok {
			finalized = append(finalized, closed)
		}
	}

	result.Cycles = make([]Cycle, 0, len(finalized))
	for _, c := range finalized {
		if err := c.Validate(); err != nil {
			result.Inverted++
			continue
		}
		if !c.Intersects(reportStart, reportEnd) {
			result.OutOfWindow++
			continue
		}
		result.Cycles = append(result.Cycles, c)
	}

	sort.SliceStable(result.Cycles, func(i, j int) bool {
		a, b := result.Cycles[i], result.Cycles[j]
		if !a.CheckIn.Equal(b.CheckIn) {
			return a.CheckIn.Before(b.CheckIn)
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.CheckOut.Before(b.CheckOut)
	})
	return result, nil
}

// apply feeds one event to its slot and returns a cycle if one was finalized.
func (r *Reconstructor) apply(evt event.Event, slots map[slotKey]*tracker, result *Result) (Cycle, bool) {
	entry, ok := r.vocab.Lookup(evt.Code)
	if !ok {
		result.Ignored++
		return Cycle{}, false
	}
	id := slotKey{location: evt.Location, key: evt.Key}
	slot := slots[id]
	if slot == nil {
		slot = &tracker{}
		slots[id] = slot
	}

	switch entry.Role {
	case event.RoleOpen:
		return slot.checkIn(evt.Key, evt.Location, evt.Timestamp)
	case event.RoleClose:
		closed, ok := slot.checkOut(evt.Timestamp)
		if !ok {
			result.Ignored++
		}
		return closed, ok
	case event.RoleServiceStart, event.RoleServiceEnd, event.RoleMarker:
		open, ok := slot.current()
		if !ok {
			result.Ignored++
			return Cycle{}, false
		}
		switch entry.Role {
		case event.RoleServiceStart:
			open.setServiceStart(evt.Timestamp)
		case event.RoleServiceEnd:
			open.setServiceEnd(evt.Timestamp)
		default:
			open.addMarker(entry.Kind, evt.Timestamp)
		}
		return Cycle{}, false
	default:
		result.Ignored++
		return Cycle{}, false
	}
}

// closeBeforeReopen reorders one timestamp's events so that, for a slot with
// an open cycle that is both closed and reopened at that instant, the close
// is applied first. Other slots keep the role-priority order.
func (r *Reconstructor) closeBeforeReopen(run []event.Event, slots map[slotKey]*tracker) {
	if len(run) < 2 {
		return
	}
	type roles struct {
		open  bool
		close bool
	}
	seen := make(map[slotKey]*roles)
	for _, evt := range run {
		id := slotKey{location: evt.Location, key: evt.Key}
		flags := seen[id]
		if flags == nil {
			flags = &roles{}
			seen[id] = flags
		}
		switch r.vocab.Role(evt.Code) {
		case event.RoleOpen:
			flags.open = true
		case event.RoleClose:
			flags.close = true
		}
	}

	rank := func(evt event.Event) int {
		if r.vocab.Role(evt.Code) != event.RoleClose {
			return 1
		}
		id := slotKey{location: evt.Location, key: evt.Key}
		flags := seen[id]
		if !flags.open || !flags.close {
			return 1
		}
		if slot := slots[id]; slot == nil || slot.state != stateOpen {
			return 1
		}
		return 0
	}
	sort.SliceStable(run, func(i, j int) bool { return rank(run[i]) < rank(run[j]) })
}

// sorted copies events and orders them by timestamp, code priority, location, key and code.
func (r *Reconstructor) sorted(events []event.Event) []event.Event {
	ordered := make([]event.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		pa, pb := r.vocab.Role(a.Code).Priority(), r.vocab.Role(b.Code).Priority()
		if pa != pb {
			return pa < pb
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Code < b.Code
	})
	return ordered
}
