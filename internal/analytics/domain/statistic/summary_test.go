package statistic

import (
	"math"
	"testing"
)

func TestSummarize_EmptySamplesAreZeroed(t *testing.T) {
	for _, samples := range [][]float64{nil, {}, {math.NaN(), math.Inf(1)}} {
		got := Summarize("1001", samples, nil)
		want := StatSummary{GroupKey: "1001", IsEmpty: true}
		if got != want {
			t.Fatalf("expected zeroed summary, got %+v", got)
		}
	}
}

func TestSummarize_PercentileInterpolation(t *testing.T) {
	got := Summarize("1001", []float64{4, 1, 3, 2}, nil)
	if got.P50 != 2.5 {
		t.Fatalf("expected p50 2.5, got %v", got.P50)
	}
	if got.P25 != 1.75 || got.P75 != 3.25 {
		t.Fatalf("expected p25 1.75 and p75 3.25, got %v and %v", got.P25, got.P75)
	}
	if got.Count != 10 {
		t.Fatalf("expected count to be the total 10, got %v", got.Count)
	}
	if got.Mean != 2.5 || got.Min != 1 || got.Max != 4 {
		t.Fatalf("unexpected mean/min/max: %+v", got)
	}
	if math.Abs(got.Std-math.Sqrt(1.25)) > 1e-12 {
		t.Fatalf("expected population std %v, got %v", math.Sqrt(1.25), got.Std)
	}
	if got.MissingCount != 0 || got.IsEmpty {
		t.Fatalf("raw path must report no missing samples, got %+v", got)
	}
}

func TestSummarize_SingleSample(t *testing.T) {
	got := Summarize("1001", []float64{7}, nil)
	if got.P25 != 7 || got.P50 != 7 || got.P75 != 7 || got.Std != 0 {
		t.Fatalf("unexpected single-sample summary: %+v", got)
	}
}

func TestSummarize_PrecomputedIsAuthoritative(t *testing.T) {
	pre := &StatSummary{Count: 120, Mean: 3, Std: 1, Min: 0, P25: 2, P50: 3, P75: 4, Max: 9, MissingCount: 6}
	got := Summarize("1001", []float64{100, 200}, pre)
	if got.Count != 120 || got.MissingCount != 6 || got.Max != 9 {
		t.Fatalf("expected precomputed fields, got %+v", got)
	}
	if got.GroupKey != "1001" {
		t.Fatalf("expected group key to be filled, got %q", got.GroupKey)
	}
	if pre.GroupKey != "" {
		t.Fatalf("precomputed input must not be modified")
	}
}

func TestSummarizeGroups(t *testing.T) {
	samples := map[string][]float64{
		"1002": {1, 2, 3},
		"1001": {5},
	}
	precomputed := map[string]StatSummary{
		"1003": {Count: 9, MissingCount: 2},
	}
	got := SummarizeGroups(samples, precomputed)
	if len(got) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(got))
	}
	if got[0].GroupKey != "1001" || got[1].GroupKey != "1002" || got[2].GroupKey != "1003" {
		t.Fatalf("expected summaries ordered by group key, got %+v", got)
	}
	if got[1].Count != 6 || got[2].MissingCount != 2 {
		t.Fatalf("unexpected summaries: %+v", got)
	}
}
