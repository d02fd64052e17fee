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
	"tsp-cloud/internal/priority/domain/cycle"
	"tsp-cloud/internal/priority/domain/event"
)

// DefaultLookback is how far before the report start events are loaded,
// so that cycles opened before the window are still reconstructed.
const DefaultLookback = 30 * time.Minute

// Derived metric names used as summary keys.
const (
	MetricRequestDuration  = "request_duration"
	MetricTimeToService    = "time_to_service"
	MetricServiceDuration  = "service_duration"
	MetricTail             = "tail"
	MetricRequestNoService = "request_no_service"
)

// CycleReportRequest selects one location and report window.
type CycleReportRequest struct {
	Location string
	From     time.Time
	To       time.Time
}

// CycleEntry pairs a cycle with its derived metrics.
type CycleEntry struct {
	Cycle   cycle.Cycle          `json:"cycle"`
	Metrics cycle.DerivedMetrics `json:"metrics"`
}

// CycleCounts summarizes reconstruction provenance.
type CycleCounts struct {
	Total        int            `json:"total"`
	Serviced     int            `json:"serviced"`
	ForcedClosed int            `json:"forced_closed"`
	Incomplete   int            `json:"incomplete"`
	Ignored      int            `json:"ignored_events"`
	Markers      map[string]int `json:"markers"`
}

// CycleReport is the per-location cycle report.
type CycleReport struct {
	ReportID    string                           `json:"report_id"`
	Location    string                           `json:"location"`
	From        time.Time                        `json:"from"`
	To          time.Time                        `json:"to"`
	GeneratedAt time.Time                        `json:"generated_at"`
	Cycles      []CycleEntry                     `json:"cycles"`
	Counts      CycleCounts                      `json:"counts"`
	Summaries   map[string]statistic.StatSummary `json:"summaries"`
}

// CycleReportService builds cycle reports from stored events.
type CycleReportService struct {
	query         EventQuery
	reconstructor *cycle.Reconstructor
	zones         ZoneResolver
	lookback      time.Duration
	clock         Clock
	logger        *log.Logger
}

// CycleReportOption configures the service.
type CycleReportOption func(*CycleReportService)

// WithLookback overrides DefaultLookback. Negative values are ignored.
func WithLookback(lookback time.Duration) CycleReportOption {
	return func(s *CycleReportService) {
		if lookback >= 0 {
			s.lookback = lookback
		}
	}
}

// WithZones sets the per-location time zone resolver.
func WithZones(zones ZoneResolver) CycleReportOption {
	return func(s *CycleReportService) {
		if zones != nil {
			s.zones = zones
		}
	}
}

// WithClock overrides the system clock.
func WithClock(clock Clock) CycleReportOption {
	return func(s *CycleReportService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) CycleReportOption {
	return func(s *CycleReportService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCycleReportService constructs a CycleReportService.
func NewCycleReportService(query EventQuery, vocab event.Vocabulary, opts ...CycleReportOption) (*CycleReportService, error) {
	if query == nil {
		return nil, errors.New("cycle report service: nil event query")
	}
	if vocab.Codes() == 0 {
		vocab = event.DefaultVocabulary()
	}
	s := &CycleReportService{
		query:         query,
		reconstructor: cycle.NewReconstructor(vocab),
		zones:         utcZones{},
		lookback:      DefaultLookback,
		clock:         SystemClock{},
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BuildReport reconstructs and summarizes the cycles of one location.
func (s *CycleReportService) BuildReport(ctx context.Context, req CycleReportRequest) (*CycleReport, error) {
	started := s.clock.Now()
	report, err := s.buildReport(ctx, req)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveReport(metrics.ReportCycles, result, s.clock.Now().Sub(started))
	return report, err
}

func (s *CycleReportService) buildReport(ctx context.Context, req CycleReportRequest) (*CycleReport, error) {
	if req.Location == "" || req.From.IsZero() || req.To.IsZero() || req.To.Before(req.From) {
		return nil, ErrInvalidReportRequest
	}

	zone := s.zones.TimeZone(req.Location)
	if zone == nil {
		zone = time.UTC
	}
	from := req.From.In(zone)
	to := req.To.In(zone)

	events, err := s.query.QueryEvents(ctx, req.Location, from.Add(-s.lookback), to)
	if err != nil {
		s.logger.Printf("cycle report: query events error: location=%s err=%v", req.Location, err)
		return nil, fmt.Errorf("cycle report: %w", err)
	}
	for i := range events {
		events[i].Timestamp = events[i].Timestamp.In(zone)
	}

	run, err := s.reconstructor.Run(events, from, to)
	if err != nil {
		return nil, err
	}

	report := &CycleReport{
		ReportID:    uuid.NewString(),
		Location:    req.Location,
		From:        from,
		To:          to,
		GeneratedAt: s.clock.Now(),
		Cycles:      make([]CycleEntry, 0, len(run.Cycles)),
		Counts:      CycleCounts{Ignored: run.Ignored, Markers: make(map[string]int)},
	}

	series := map[string][]float64{
		MetricRequestDuration:  nil,
		MetricTimeToService:    nil,
		MetricServiceDuration:  nil,
		MetricTail:             nil,
		MetricRequestNoService: nil,
	}
	observed := metrics.ReconstructionCounts{
		Ignored:     run.Ignored,
		Inverted:    run.Inverted,
		OutOfWindow: run.OutOfWindow,
	}

	for _, c := range run.Cycles {
		derived := cycle.Derive(c)
		report.Cycles = append(report.Cycles, CycleEntry{Cycle: c, Metrics: derived})

		report.Counts.Total++
		switch {
		case c.ForcedClosed:
			report.Counts.ForcedClosed++
			observed.ForcedClosed++
		case c.Incomplete:
			report.Counts.Incomplete++
			observed.Incomplete++
		default:
			observed.Closed++
		}
		if derived.Serviced() {
			report.Counts.Serviced++
		}
		for _, m := range derived.Markers {
			report.Counts.Markers[m.Kind]++
		}

		series[MetricRequestDuration] = append(series[MetricRequestDuration], derived.RequestDurationSeconds)
		appendOptional(series, MetricTimeToService, derived.TimeToServiceSeconds)
		appendOptional(series, MetricServiceDuration, derived.ServiceDurationSeconds)
		appendOptional(series, MetricTail, derived.TailSeconds)
		appendOptional(series, MetricRequestNoService, derived.RequestNoServiceSeconds)
	}
	metrics.ObserveReconstruction(observed)

	report.Summaries = make(map[string]statistic.StatSummary, len(series))
	for name, values := range series {
		report.Summaries[name] = statistic.Summarize(req.Location, values, nil)
	}
	return report, nil
}

func appendOptional(series map[string][]float64, name string, value *float64) {
	if value == nil {
		return
	}
	series[name] = append(series[name], *value)
}
