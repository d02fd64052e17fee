package priorityhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"tsp-cloud/internal/priority/application"
	"tsp-cloud/internal/priority/domain/event"
)

const maxBodyBytes = 8 << 20

// EventIngester parses and stores raw controller records.
type EventIngester interface {
	Ingest(ctx context.Context, raws []event.Raw) (application.IngestResult, error)
}

// IngestHandler accepts batches of signal controller event records.
type IngestHandler struct {
	ingester EventIngester
	logger   *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(ingester EventIngester, logger *log.Logger) (*IngestHandler, error) {
	if ingester == nil {
		return nil, errors.New("priority ingest: nil ingester")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{ingester: ingester, logger: logger}, nil
}

type ingestRequest struct {
	Events []event.Raw `json:"events"`
}

// ServeHTTP handles POST /api/v1/priority/events.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Printf("priority ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("priority ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := h.ingester.Ingest(r.Context(), req.Events)
	if err != nil {
		h.logger.Printf("priority ingest: insert error: %v", err)
		http.Error(w, "insert error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
