package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tsp-cloud/internal/analytics/domain/statistic"
	"tsp-cloud/internal/observability/metrics"
)

// SampleRepository persists raw count samples.
type SampleRepository interface {
	InsertSamples(ctx context.Context, samples []statistic.Sample) error
}

// SampleQuery fetches raw count samples within [start, end).
type SampleQuery interface {
	QuerySamples(ctx context.Context, groups []string, start, end time.Time) ([]statistic.Sample, error)
}

// SummaryQuery fetches summaries precomputed upstream for exactly [start, end).
type SummaryQuery interface {
	FindSummaries(ctx context.Context, groups []string, start, end time.Time) (map[string]statistic.StatSummary, error)
}

// ZoneResolver maps a group (location) to the time zone of its wall clock.
type ZoneResolver interface {
	TimeZone(group string) *time.Location
}

type utcZones struct{}

func (utcZones) TimeZone(string) *time.Location { return time.UTC }

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

var (
	// ErrInvalidCountRequest is returned for an invalid report window.
	ErrInvalidCountRequest = errors.New("analytics: invalid count report request")
	// ErrInvalidSample is returned for a sample without group or timestamp.
	ErrInvalidSample = errors.New("analytics: invalid sample")
	// ErrInvalidSummary is returned for a precomputed summary without group or window.
	ErrInvalidSummary = errors.New("analytics: invalid summary")
	// ErrSummariesDisabled is returned when no summary store is configured.
	ErrSummariesDisabled = errors.New("analytics: summary store not configured")
)

// CountReportRequest selects groups, a window and a bucket granularity.
// An empty Groups list selects every group with samples.
type CountReportRequest struct {
	Groups      []string
	From        time.Time
	To          time.Time
	Granularity statistic.Granularity
}

// CountReport is the bucketed count report with per-group summaries.
type CountReport struct {
	ReportID    string                  `json:"report_id"`
	From        time.Time               `json:"from"`
	To          time.Time               `json:"to"`
	Granularity statistic.Granularity   `json:"granularity"`
	GeneratedAt time.Time               `json:"generated_at"`
	Buckets     []statistic.Bucket      `json:"buckets"`
	Summaries   []statistic.StatSummary `json:"summaries"`
}

// CountReportService builds count reports.
type CountReportService struct {
	samples   SampleQuery
	summaries SummaryQuery
	zones     ZoneResolver
	clock     Clock
	logger    *log.Logger
}

// NewCountReportService constructs a CountReportService.
// summaries may be nil when no precomputed summaries exist.
func NewCountReportService(samples SampleQuery, summaries SummaryQuery, zones ZoneResolver, clock Clock, logger *log.Logger) (*CountReportService, error) {
	if samples == nil {
		return nil, errors.New("count report service: nil sample query")
	}
	if zones == nil {
		zones = utcZones{}
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CountReportService{samples: samples, summaries: summaries, zones: zones, clock: clock, logger: logger}, nil
}

// BuildReport buckets samples by each group's wall-clock period and summarizes each group.
func (s *CountReportService) BuildReport(ctx context.Context, req CountReportRequest) (*CountReport, error) {
	started := s.clock.Now()
	report, err := s.buildReport(ctx, req)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveReport(metrics.ReportCounts, result, s.clock.Now().Sub(started))
	return report, err
}

func (s *CountReportService) buildReport(ctx context.Context, req CountReportRequest) (*CountReport, error) {
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return nil, ErrInvalidCountRequest
	}
	granularity := req.Granularity
	if granularity == "" {
		granularity = statistic.GranularityHour
	}
	if !granularity.IsValid() {
		return nil, statistic.ErrInvalidGranularity
	}

	from := req.From.UTC()
	to := req.To.UTC()

	samples, err := s.samples.QuerySamples(ctx, req.Groups, from, to)
	if err != nil {
		s.logger.Printf("count report: query samples error: %v", err)
		return nil, fmt.Errorf("count report: %w", err)
	}
	// Buckets use each group's local wall clock.
	for i := range samples {
		zone := s.zones.TimeZone(samples[i].GroupKey)
		if zone == nil {
			zone = time.UTC
		}
		samples[i].Timestamp = samples[i].Timestamp.In(zone)
	}

	buckets, err := statistic.Aggregate(samples, granularity)
	if err != nil {
		return nil, err
	}

	var precomputed map[string]statistic.StatSummary
	if s.summaries != nil {
		precomputed, err = s.summaries.FindSummaries(ctx, req.Groups, from, to)
		if err != nil {
			s.logger.Printf("count report: find summaries error: %v", err)
			return nil, fmt.Errorf("count report: %w", err)
		}
	}

	values := statistic.ValuesByGroup(samples)
	for _, group := range req.Groups {
		if _, ok := values[group]; !ok {
			values[group] = nil
		}
	}

	return &CountReport{
		ReportID:    uuid.NewString(),
		From:        from,
		To:          to,
		Granularity: granularity,
		GeneratedAt: s.clock.Now(),
		Buckets:     buckets,
		Summaries:   statistic.SummarizeGroups(values, precomputed),
	}, nil
}
