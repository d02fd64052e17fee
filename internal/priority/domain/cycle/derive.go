package cycle

import (
	"math"
	"time"
)

// DerivedMetrics are the chart-ready timings of one cycle.
// Nil fields mean "not applicable", which differs from a zero duration.
type DerivedMetrics struct {
	RequestDurationSeconds  float64        `json:"request_duration_seconds"`
	TimeToServiceSeconds    *float64       `json:"time_to_service_seconds"`
	ServiceDurationSeconds  *float64       `json:"service_duration_seconds"`
	TailSeconds             *float64       `json:"tail_seconds"`
	RequestNoServiceSeconds *float64       `json:"request_no_service_seconds"`
	Markers                 []MarkerOffset `json:"markers"`
}

// Serviced tells if the cycle had a resolved inner interval.
func (m DerivedMetrics) Serviced() bool {
	return m.ServiceDurationSeconds != nil
}

// Derive computes segment durations and marker offsets for a cycle.
func Derive(c Cycle) DerivedMetrics {
	metrics := DerivedMetrics{
		RequestDurationSeconds: seconds(c.CheckIn, c.CheckOut),
		Markers:                make([]MarkerOffset, 0, len(c.Markers)),
	}

	if c.ServiceStart != nil {
		start := *c.ServiceStart
		end := c.CheckOut
		if c.ServiceEnd != nil {
			end = *c.ServiceEnd
		}
		toService := seconds(c.CheckIn, start)
		service := seconds(start, end)
		tail := seconds(end, c.CheckOut)
		metrics.TimeToServiceSeconds = &toService
		metrics.ServiceDurationSeconds = &service
		metrics.TailSeconds = &tail
	} else {
		noService := metrics.RequestDurationSeconds
		metrics.RequestNoServiceSeconds = &noService
	}

	for _, m := range c.Markers {
		if m.Seconds < 0 || math.IsNaN(m.Seconds) || math.IsInf(m.Seconds, 0) {
			continue
		}
		metrics.Markers = append(metrics.Markers, m)
	}
	return metrics
}

// seconds returns the non-negative span from start to end.
func seconds(start, end time.Time) float64 {
	value := end.Sub(start).Seconds()
	if value < 0 || math.IsNaN(value) {
		return 0
	}
	return value
}
