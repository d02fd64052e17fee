package cycle

import "time"

// MarkerOffset is a point event inside a cycle, as seconds since check-in.
type MarkerOffset struct {
	Kind    string  `json:"kind"`
	Seconds float64 `json:"seconds"`
}

// Cycle is one reconstructed priority request, from check-in to check-out.
// Invariants:
// 1) CheckOut is never before CheckIn.
// 2) ServiceEnd is only set together with ServiceStart.
// 3) ForcedClosed and Incomplete record how the cycle was finalized.
type Cycle struct {
	Key          string         `json:"key"`
	Location     string         `json:"location"`
	CheckIn      time.Time      `json:"check_in"`
	CheckOut     time.Time      `json:"check_out"`
	ServiceStart *time.Time     `json:"service_start,omitempty"`
	ServiceEnd   *time.Time     `json:"service_end,omitempty"`
	Markers      []MarkerOffset `json:"markers"`
	ForcedClosed bool           `json:"forced_closed"`
	Incomplete   bool           `json:"incomplete"`
}

// HasService tells if the cycle resolved an inner service interval.
func (c Cycle) HasService() bool {
	return c.ServiceStart != nil && c.ServiceEnd != nil
}

// Validate checks the interval invariant.
func (c Cycle) Validate() error {
	if c.CheckOut.Before(c.CheckIn) {
		return ErrInvertedInterval
	}
	return nil
}

// Intersects reports whether the cycle overlaps [start, end].
func (c Cycle) Intersects(start, end time.Time) bool {
	return !c.CheckOut.Before(start) && !c.CheckIn.After(end)
}

type marker struct {
	kind string
	at   time.Time
}

// openCycle is a cycle still receiving events for its key.
type openCycle struct {
	key          string
	location     string
	checkIn      time.Time
	serviceStart *time.Time
	serviceEnd   *time.Time
	markers      []marker
}

func (o *openCycle) setServiceStart(at time.Time) {
	if o.serviceStart == nil {
		o.serviceStart = &at
	}
}

func (o *openCycle) setServiceEnd(at time.Time) {
	if o.serviceEnd == nil {
		o.serviceEnd = &at
	}
}

func (o *openCycle) addMarker(kind string, at time.Time) {
	o.markers = append(o.markers, marker{kind: kind, at: at})
}

// finalize freezes the open cycle into an emitted Cycle.
func (o *openCycle) finalize(checkOut time.Time, forced, incomplete bool) Cycle {
	c := Cycle{
		Key:          o.key,
		Location:     o.location,
		CheckIn:      o.checkIn,
		CheckOut:     checkOut,
		Markers:      make([]MarkerOffset, 0, len(o.markers)),
		ForcedClosed: forced,
		Incomplete:   incomplete,
	}

	// A service end without a start is not an inner interval.
	if o.serviceStart != nil && !o.serviceStart.After(checkOut) {
		start := *o.serviceStart
		end := checkOut
		if o.serviceEnd != nil && o.serviceEnd.Before(checkOut) {
			end = *o.serviceEnd
		}
		c.ServiceStart = &start
		c.ServiceEnd = &end
	}

	for _, m := range o.markers {
		offset := m.at.Sub(o.checkIn).Seconds()
		if offset < 0 {
			continue
		}
		c.Markers = append(c.Markers, MarkerOffset{Kind: m.kind, Seconds: offset})
	}
	return c
}

type state uint8

const (
	stateNoCycle state = iota
	stateOpen
)

// tracker is the per-key state machine: NoCycle -> Open -> (emitted) Closed.
type tracker struct {
	state state
	open  openCycle
}

// checkIn opens a new cycle, force-closing the current one if any.
func (t *tracker) checkIn(key, location string, at time.Time) (Cycle, bool) {
	var (
		closed Cycle
		forced bool
	)
	if t.state == stateOpen {
		closed = t.open.finalize(at, true, false)
		forced = true
	}
	t.state = stateOpen
	t.open = openCycle{key: key, location: location, checkIn: at}
	return closed, forced
}

// checkOut closes the open cycle. A close without an open cycle is ignored.
func (t *tracker) checkOut(at time.Time) (Cycle, bool) {
	if t.state != stateOpen {
		return Cycle{}, false
	}
	closed := t.open.finalize(at, false, false)
	t.reset()
	return closed, true
}

// exhaust closes the open cycle at the report boundary.
func (t *tracker) exhaust(reportEnd time.Time) (Cycle, bool) {
	if t.state != stateOpen {
		return Cycle{}, false
	}
	closed := t.open.finalize(reportEnd, false, true)
	t.reset()
	return closed, true
}

func (t *tracker) current() (*openCycle, bool) {
	if t.state != stateOpen {
		return nil, false
	}
	return &t.open, true
}

func (t *tracker) reset() {
	t.state = stateNoCycle
	t.open = openCycle{}
}
