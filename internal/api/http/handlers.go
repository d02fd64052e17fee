package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	analytics "tsp-cloud/internal/analytics/application"
	"tsp-cloud/internal/analytics/domain/statistic"
	priority "tsp-cloud/internal/priority/application"
)

const timeLayout = time.RFC3339

// CycleReporter builds cycle reports.
type CycleReporter interface {
	BuildReport(ctx context.Context, req priority.CycleReportRequest) (*priority.CycleReport, error)
}

// CountReporter builds count reports.
type CountReporter interface {
	BuildReport(ctx context.Context, req analytics.CountReportRequest) (*analytics.CountReport, error)
}

// CyclesHandler serves priority cycle reports.
type CyclesHandler struct {
	reports CycleReporter
	logger  *log.Logger
}

// NewCyclesHandler constructs a CyclesHandler.
func NewCyclesHandler(reports CycleReporter, logger *log.Logger) *CyclesHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &CyclesHandler{reports: reports, logger: logger}
}

// ServeHTTP handles GET /api/v1/priority/cycles.
func (h *CyclesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	report, err := h.reports.BuildReport(r.Context(), priority.CycleReportRequest{Location: location, From: from, To: to})
	if err != nil {
		if errors.Is(err, priority.ErrInvalidReportRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Printf("cycles report: location=%s err=%v", location, err)
		http.Error(w, "build report error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// CountBucketsHandler serves bucketed count reports.
type CountBucketsHandler struct {
	reports CountReporter
	logger  *log.Logger
}

// NewCountBucketsHandler constructs a CountBucketsHandler.
func NewCountBucketsHandler(reports CountReporter, logger *log.Logger) *CountBucketsHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &CountBucketsHandler{reports: reports, logger: logger}
}

// ServeHTTP handles GET /api/v1/counts/buckets.
func (h *CountBucketsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	granularity, err := statistic.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		http.Error(w, "unsupported granularity", http.StatusBadRequest)
		return
	}

	report, err := h.reports.BuildReport(r.Context(), analytics.CountReportRequest{
		Groups:      parseGroups(r),
		From:        from,
		To:          to,
		Granularity: granularity,
	})
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidCountRequest) || errors.Is(err, statistic.ErrInvalidGranularity) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Printf("count report: err=%v", err)
		http.Error(w, "build report error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

// parseGroups accepts repeated or comma-separated location values.
func parseGroups(r *http.Request) []string {
	var groups []string
	for _, value := range r.URL.Query()["location"] {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				groups = append(groups, part)
			}
		}
	}
	return groups
}
