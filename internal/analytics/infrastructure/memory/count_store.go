package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"tsp-cloud/internal/analytics/domain/statistic"
)

type sampleID struct {
	group    string
	unixNano int64
}

type summaryID struct {
	group string
	start int64
	end   int64
}

// CountStore is an in-memory store for demo/testing.
// It implements both sample and precomputed summary access.
type CountStore struct {
	mu        sync.RWMutex
	samples   map[sampleID]statistic.Sample
	summaries map[summaryID]statistic.StatSummary
}

// NewCountStore constructs a store.
func NewCountStore() *CountStore {
	return &CountStore{
		samples:   make(map[sampleID]statistic.Sample),
		summaries: make(map[summaryID]statistic.StatSummary),
	}
}

// InsertSamples upserts samples keyed by group and timestamp.
func (s *CountStore) InsertSamples(ctx context.Context, samples []statistic.Sample) error {
	_ = ctx
	for _, sample := range samples {
		if sample.GroupKey == "" || sample.Timestamp.IsZero() || math.IsNaN(sample.Value) || math.IsInf(sample.Value, 0) {
			return errors.New("count store: invalid sample")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		s.samples[sampleID{group: sample.GroupKey, unixNano: sample.Timestamp.UnixNano()}] = sample
	}
	return nil
}

// QuerySamples returns samples within [start, end). An empty group list selects all groups.
func (s *CountStore) QuerySamples(ctx context.Context, groups []string, start, end time.Time) ([]statistic.Sample, error) {
	_ = ctx
	if start.IsZero() || end.IsZero() {
		return nil, statistic.ErrInvalidPeriodStart
	}
	allowed := groupSet(groups)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]statistic.Sample, 0)
	for _, sample := range s.samples {
		if sample.Timestamp.Before(start) || !sample.Timestamp.Before(end) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[sample.GroupKey]; !ok {
				continue
			}
		}
		result = append(result, sample)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].GroupKey < result[j].GroupKey
	})
	return result, nil
}

// SaveSummary stores a precomputed summary for [start, end).
func (s *CountStore) SaveSummary(ctx context.Context, start, end time.Time, summary statistic.StatSummary) error {
	_ = ctx
	if summary.GroupKey == "" {
		return errors.New("count store: empty group key")
	}
	if start.IsZero() || end.IsZero() {
		return statistic.ErrInvalidPeriodStart
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summaryID{group: summary.GroupKey, start: start.UnixNano(), end: end.UnixNano()}] = summary
	return nil
}

// FindSummaries returns the summaries stored for exactly [start, end), keyed by group.
func (s *CountStore) FindSummaries(ctx context.Context, groups []string, start, end time.Time) (map[string]statistic.StatSummary, error) {
	_ = ctx
	if start.IsZero() || end.IsZero() {
		return nil, statistic.ErrInvalidPeriodStart
	}
	allowed := groupSet(groups)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]statistic.StatSummary)
	for id, summary := range s.summaries {
		if id.start != start.UnixNano() || id.end != end.UnixNano() {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[id.group]; !ok {
				continue
			}
		}
		result[id.group] = summary
	}
	return result, nil
}

func groupSet(groups []string) map[string]struct{} {
	if len(groups) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return set
}
