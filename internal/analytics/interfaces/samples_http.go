package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"tsp-cloud/internal/analytics/application"
	"tsp-cloud/internal/analytics/domain/statistic"
)

const maxBodyBytes = 8 << 20

// SampleRecorder stores raw count samples.
type SampleRecorder interface {
	RecordSamples(ctx context.Context, samples []statistic.Sample) error
}

// SamplesHandler accepts raw count samples.
type SamplesHandler struct {
	recorder SampleRecorder
	logger   *log.Logger
}

// NewSamplesHandler constructs the handler.
func NewSamplesHandler(recorder SampleRecorder, logger *log.Logger) (*SamplesHandler, error) {
	if recorder == nil {
		return nil, errors.New("samples handler: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SamplesHandler{recorder: recorder, logger: logger}, nil
}

type samplesRequest struct {
	Samples []statistic.Sample `json:"samples"`
}

// ServeHTTP handles POST /api/v1/counts/samples.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Printf("count samples: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req samplesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("count samples: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.recorder.RecordSamples(r.Context(), req.Samples); err != nil {
		if errors.Is(err, application.ErrInvalidSample) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Printf("count samples: insert error: %v", err)
		http.Error(w, "insert error", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"inserted": len(req.Samples)}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
