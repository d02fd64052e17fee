package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tsp-cloud/internal/observability/metrics"
	"tsp-cloud/internal/priority/domain/event"
)

// IngestResult reports how many records of a batch were stored or dropped.
type IngestResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// IngestService parses raw controller records and stores the valid ones.
type IngestService struct {
	repo   EventRepository
	zones  ZoneResolver
	clock  Clock
	logger *log.Logger
}

// NewIngestService constructs an IngestService.
func NewIngestService(repo EventRepository, zones ZoneResolver, clock Clock, logger *log.Logger) (*IngestService, error) {
	if repo == nil {
		return nil, errors.New("ingest service: nil repository")
	}
	if zones == nil {
		zones = utcZones{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestService{repo: repo, zones: zones, clock: clock, logger: logger}, nil
}

// Ingest parses each record in its location's zone. Invalid records are
// dropped and counted; the rest are stored in one batch.
func (s *IngestService) Ingest(ctx context.Context, raws []event.Raw) (IngestResult, error) {
	started := s.clock.Now()
	result, err := s.ingest(ctx, raws)
	outcome := metrics.IngestResultSuccess
	if err != nil {
		outcome = metrics.IngestResultError
	}
	metrics.ObserveIngest(outcome, s.clock.Now().Sub(started))
	return result, err
}

func (s *IngestService) ingest(ctx context.Context, raws []event.Raw) (IngestResult, error) {
	if len(raws) == 0 {
		return IngestResult{}, nil
	}

	var result IngestResult
	events := make([]event.Event, 0, len(raws))
	for i, raw := range raws {
		evt, err := event.Parse(raw, s.zones.TimeZone(raw.Location))
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		events = append(events, evt)
	}

	if result.Rejected > 0 {
		metrics.AddEventsDropped(metrics.DropInvalidEvent, result.Rejected)
		s.logger.Printf("priority ingest: dropped %d of %d records", result.Rejected, len(raws))
	}
	if len(events) == 0 {
		return result, nil
	}

	if err := s.repo.InsertEvents(ctx, events); err != nil {
		return result, fmt.Errorf("priority ingest: %w", err)
	}
	result.Accepted = len(events)
	metrics.AddEventsAccepted(result.Accepted)
	return result, nil
}

