package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "tsp_"

	resultSuccess = "success"
	resultError   = "error"

	cycleClosed       = "complete"
	cycleForcedClosed = "forced_closed"
	cycleIncomplete   = "incomplete"

	discardInverted    = "inverted"
	discardOutOfWindow = "out_of_window"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec
	eventsAccepted prometheus.Counter
	eventsDropped  *prometheus.CounterVec

	reportTotal   *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec

	cyclesTotal     *prometheus.CounterVec
	cyclesDiscarded *prometheus.CounterVec
	eventsIgnored   prometheus.Counter
)

// Init registers engine metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total event ingest requests by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Event ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		eventsAccepted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_accepted_total",
				Help: "Total signal events accepted at ingestion",
			},
		)
		eventsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_dropped_total",
				Help: "Total signal events dropped by reason",
			},
			[]string{"reason"},
		)

		reportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_total",
				Help: "Total report builds by kind and result",
			},
			[]string{"kind", "result"},
		)
		reportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_latency_seconds",
				Help:    "Report build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		cyclesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_reconstructed_total",
				Help: "Total reconstructed cycles by how they were finalized",
			},
			[]string{"outcome"},
		)
		cyclesDiscarded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_discarded_total",
				Help: "Total finalized cycles discarded by reason",
			},
			[]string{"reason"},
		)
		eventsIgnored = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_ignored_total",
				Help: "Total events skipped during reconstruction",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			eventsAccepted,
			eventsDropped,
			reportTotal,
			reportLatency,
			cyclesTotal,
			cyclesDiscarded,
			eventsIgnored,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddEventsAccepted increments the accepted event counter.
func AddEventsAccepted(count int) {
	if count <= 0 {
		return
	}
	if eventsAccepted != nil {
		eventsAccepted.Add(float64(count))
	}
}

// AddEventsDropped increments the dropped event counter for a reason.
func AddEventsDropped(reason string, count int) {
	if count <= 0 {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	if eventsDropped != nil {
		eventsDropped.WithLabelValues(reason).Add(float64(count))
	}
}

// ObserveReport records report latency and result.
func ObserveReport(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportTotal != nil {
		reportTotal.WithLabelValues(kind, result).Inc()
	}
	if reportLatency != nil {
		reportLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// ReconstructionCounts summarizes one reconstruction pass.
type ReconstructionCounts struct {
	Closed       int
	ForcedClosed int
	Incomplete   int
	Inverted     int
	OutOfWindow  int
	Ignored      int
}

// ObserveReconstruction records cycle outcomes of one reconstruction pass.
func ObserveReconstruction(counts ReconstructionCounts) {
	if cyclesTotal != nil {
		addLabel(cyclesTotal, cycleClosed, counts.Closed)
		addLabel(cyclesTotal, cycleForcedClosed, counts.ForcedClosed)
		addLabel(cyclesTotal, cycleIncomplete, counts.Incomplete)
	}
	if cyclesDiscarded != nil {
		addLabel(cyclesDiscarded, discardInverted, counts.Inverted)
		addLabel(cyclesDiscarded, discardOutOfWindow, counts.OutOfWindow)
	}
	if eventsIgnored != nil && counts.Ignored > 0 {
		eventsIgnored.Add(float64(counts.Ignored))
	}
}

func addLabel(vec *prometheus.CounterVec, label string, count int) {
	if count <= 0 {
		return
	}
	vec.WithLabelValues(label).Add(float64(count))
}

// Exported constants for callers.
const (
	IngestResultSuccess = resultSuccess
	IngestResultError   = resultError

	ResultSuccess = resultSuccess
	ResultError   = resultError

	ReportCycles = "cycles"
	ReportCounts = "counts"

	DropInvalidEvent = "invalid_event"
)
