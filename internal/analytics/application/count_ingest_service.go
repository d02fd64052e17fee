package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tsp-cloud/internal/analytics/domain/statistic"
)

// SummaryRepository stores summaries precomputed upstream for a window.
type SummaryRepository interface {
	SaveSummary(ctx context.Context, start, end time.Time, summary statistic.StatSummary) error
}

// CountIngestService stores raw count samples and precomputed summaries.
type CountIngestService struct {
	repo      SampleRepository
	summaries SummaryRepository
}

// NewCountIngestService constructs a CountIngestService.
// summaries may be nil when precomputed summaries are not accepted.
func NewCountIngestService(repo SampleRepository, summaries SummaryRepository) (*CountIngestService, error) {
	if repo == nil {
		return nil, errors.New("count ingest service: nil repository")
	}
	return &CountIngestService{repo: repo, summaries: summaries}, nil
}

// RecordSamples validates and stores samples.
func (s *CountIngestService) RecordSamples(ctx context.Context, samples []statistic.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	for i, sample := range samples {
		if sample.GroupKey == "" || sample.Timestamp.IsZero() {
			return fmt.Errorf("sample %d: %w", i, ErrInvalidSample)
		}
	}
	return s.repo.InsertSamples(ctx, samples)
}

// RecordSummaries stores summaries that are authoritative for [start, end).
func (s *CountIngestService) RecordSummaries(ctx context.Context, start, end time.Time, summaries []statistic.StatSummary) error {
	if s.summaries == nil {
		return ErrSummariesDisabled
	}
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return ErrInvalidSummary
	}
	for i, summary := range summaries {
		if summary.GroupKey == "" {
			return fmt.Errorf("summary %d: %w", i, ErrInvalidSummary)
		}
	}
	for _, summary := range summaries {
		if err := s.summaries.SaveSummary(ctx, start.UTC(), end.UTC(), summary); err != nil {
			return err
		}
	}
	return nil
}
