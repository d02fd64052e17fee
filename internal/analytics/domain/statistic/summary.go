package statistic

import (
	"math"
	"sort"
)

// StatSummary describes one grouping key (typically a location).
// Count is the total of the observed quantity, not the sample size.
type StatSummary struct {
	GroupKey     string  `json:"group_key"`
	Count        float64 `json:"count"`
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	P25          float64 `json:"p25"`
	P50          float64 `json:"p50"`
	P75          float64 `json:"p75"`
	Max          float64 `json:"max"`
	MissingCount int     `json:"missing_count"`
	// IsEmpty separates "no observations" from observations that are all zero.
	IsEmpty bool `json:"is_empty"`
}

// Summarize returns the summary for a group. A precomputed summary is
// authoritative and passed through; otherwise samples are reduced.
// Non-finite samples are ignored; an empty series yields a zeroed summary.
func Summarize(groupKey string, samples []float64, precomputed *StatSummary) StatSummary {
	if precomputed != nil {
		summary := *precomputed
		if summary.GroupKey == "" {
			summary.GroupKey = groupKey
		}
		return summary
	}

	values := make([]float64, 0, len(samples))
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return StatSummary{GroupKey: groupKey, IsEmpty: true}
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	n := float64(len(values))
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return StatSummary{
		GroupKey: groupKey,
		Count:    sum,
		Mean:     mean,
		Std:      math.Sqrt(sq / n),
		Min:      values[0],
		P25:      percentile(values, 0.25),
		P50:      percentile(values, 0.50),
		P75:      percentile(values, 0.75),
		Max:      values[len(values)-1],
	}
}

// SummarizeGroups reduces samples per group, preferring precomputed summaries.
// The result is ordered by group key.
func SummarizeGroups(samples map[string][]float64, precomputed map[string]StatSummary) []StatSummary {
	keys := make(map[string]struct{}, len(samples)+len(precomputed))
	for key := range samples {
		keys[key] = struct{}{}
	}
	for key := range precomputed {
		keys[key] = struct{}{}
	}
	ordered := make([]string, 0, len(keys))
	for key := range keys {
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	result := make([]StatSummary, 0, len(ordered))
	for _, key := range ordered {
		var pre *StatSummary
		if summary, ok := precomputed[key]; ok {
			pre = &summary
		}
		result = append(result, Summarize(key, samples[key], pre))
	}
	return result
}

// percentile interpolates linearly between order statistics of sorted values.
// p is a fraction in [0, 1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if upper >= len(sorted) {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}
