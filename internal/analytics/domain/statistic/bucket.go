package statistic

import (
	"math"
	"sort"
	"time"
)

// Sample is one raw count observation for a group at a timestamp.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	GroupKey  string    `json:"group_key"`
	Value     float64   `json:"value"`
}

// Bucket sums sample values per group within one time period.
type Bucket struct {
	Key    TimeKey            `json:"key"`
	Start  time.Time          `json:"start"`
	Values map[string]float64 `json:"values"`
}

// Aggregate groups samples into buckets of the given granularity.
// Buckets are labeled by the samples' wall-clock fields, returned in
// chronological order, and never zero-filled. Non-finite values count as 0.
func Aggregate(samples []Sample, granularity Granularity) ([]Bucket, error) {
	if !granularity.IsValid() {
		return nil, ErrInvalidGranularity
	}

	byKey := make(map[TimeKey]*Bucket)
	for _, sample := range samples {
		if sample.Timestamp.IsZero() {
			continue
		}
		start, err := Truncate(sample.Timestamp, granularity)
		if err != nil {
			return nil, err
		}
		key, err := NewTimeKey(granularity, start)
		if err != nil {
			return nil, err
		}
		bucket := byKey[key]
		if bucket == nil {
			bucket = &Bucket{Key: key, Start: start, Values: make(map[string]float64)}
			byKey[key] = bucket
		}
		value := sample.Value
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = 0
		}
		bucket.Values[sample.GroupKey] += value
	}

	buckets := make([]Bucket, 0, len(byKey))
	for _, bucket := range byKey {
		buckets = append(buckets, *bucket)
	}
	// Labels are zero-padded wall-clock layouts, so lexical order is chronological.
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets, nil
}

// ValuesByGroup collects each group's per-timestamp totals in time order,
// the raw series Summarize reduces when no precomputed summary exists.
// Samples sharing a group and timestamp are summed; non-finite values count as 0.
func ValuesByGroup(samples []Sample) map[string][]float64 {
	type point struct {
		at    time.Time
		total float64
	}
	byGroup := make(map[string][]*point)
	index := make(map[string]map[int64]*point)
	for _, sample := range samples {
		if sample.Timestamp.IsZero() {
			continue
		}
		value := sample.Value
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = 0
		}
		points := index[sample.GroupKey]
		if points == nil {
			points = make(map[int64]*point)
			index[sample.GroupKey] = points
		}
		ts := sample.Timestamp.UnixNano()
		p := points[ts]
		if p == nil {
			p = &point{at: sample.Timestamp}
			points[ts] = p
			byGroup[sample.GroupKey] = append(byGroup[sample.GroupKey], p)
		}
		p.total += value
	}

	result := make(map[string][]float64, len(byGroup))
	for group, points := range byGroup {
		sort.SliceStable(points, func(i, j int) bool { return points[i].at.Before(points[j].at) })
		values := make([]float64, 0, len(points))
		for _, p := range points {
			values = append(values, p.total)
		}
		result[group] = values
	}
	return result
}
