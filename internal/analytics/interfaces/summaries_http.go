package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"tsp-cloud/internal/analytics/application"
	"tsp-cloud/internal/analytics/domain/statistic"
)

// SummaryRecorder stores summaries precomputed for a window.
type SummaryRecorder interface {
	RecordSummaries(ctx context.Context, start, end time.Time, summaries []statistic.StatSummary) error
}

// SummariesHandler accepts precomputed per-group summaries.
type SummariesHandler struct {
	recorder SummaryRecorder
	logger   *log.Logger
}

// NewSummariesHandler constructs the handler.
func NewSummariesHandler(recorder SummaryRecorder, logger *log.Logger) (*SummariesHandler, error) {
	if recorder == nil {
		return nil, errors.New("summaries handler: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SummariesHandler{recorder: recorder, logger: logger}, nil
}

type summariesRequest struct {
	From      time.Time               `json:"from"`
	To        time.Time               `json:"to"`
	Summaries []statistic.StatSummary `json:"summaries"`
}

// ServeHTTP handles POST /api/v1/counts/summaries.
func (h *SummariesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Printf("count summaries: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req summariesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("count summaries: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.recorder.RecordSummaries(r.Context(), req.From, req.To, req.Summaries); err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidSummary):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, application.ErrSummariesDisabled):
			http.Error(w, err.Error(), http.StatusNotImplemented)
		default:
			h.logger.Printf("count summaries: save error: %v", err)
			http.Error(w, "save error", http.StatusInternalServerError)
		}
		return
	}

	resp := map[string]any{"saved": len(req.Summaries)}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
