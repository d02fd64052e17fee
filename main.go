package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	analyticsapp "tsp-cloud/internal/analytics/application"
	analyticsmemory "tsp-cloud/internal/analytics/infrastructure/memory"
	analyticsrepo "tsp-cloud/internal/analytics/infrastructure/postgres"
	analyticsinterfaces "tsp-cloud/internal/analytics/interfaces"
	apihttp "tsp-cloud/internal/api/http"
	"tsp-cloud/internal/config"
	"tsp-cloud/internal/observability/metrics"
	priorityapp "tsp-cloud/internal/priority/application"
	prioritymemory "tsp-cloud/internal/priority/infrastructure/memory"
	priorityrepo "tsp-cloud/internal/priority/infrastructure/postgres"
	priorityhttp "tsp-cloud/internal/priority/interfaces/http"
)

func main() {
	_ = godotenv.Load()

	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	engineCfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	stores := openStores(cfg, logger)
	if stores.db != nil {
		defer stores.db.Close()
	}
	metrics.Init(stores.db, logger)

	ingestService, err := priorityapp.NewIngestService(stores.events, engineCfg, priorityapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("ingest service error: %v", err)
	}
	cycleService, err := priorityapp.NewCycleReportService(
		stores.eventQuery,
		engineCfg.Vocabulary(),
		priorityapp.WithZones(engineCfg),
		priorityapp.WithLookback(engineCfg.Lookback),
		priorityapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("cycle report service error: %v", err)
	}

	countService, err := analyticsapp.NewCountReportService(stores.samples, stores.summaries, engineCfg, nil, logger)
	if err != nil {
		logger.Fatalf("count report service error: %v", err)
	}
	countIngest, err := analyticsapp.NewCountIngestService(stores.sampleRepo, stores.summarySink)
	if err != nil {
		logger.Fatalf("count ingest service error: %v", err)
	}

	ingestHandler, err := priorityhttp.NewIngestHandler(ingestService, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	samplesHandler, err := analyticsinterfaces.NewSamplesHandler(countIngest, logger)
	if err != nil {
		logger.Fatalf("samples handler error: %v", err)
	}
	summariesHandler, err := analyticsinterfaces.NewSummariesHandler(countIngest, logger)
	if err != nil {
		logger.Fatalf("summaries handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/priority/events", ingestHandler)
	mux.Handle("/api/v1/priority/cycles", apihttp.NewCyclesHandler(cycleService, logger))
	mux.Handle("/api/v1/counts/samples", samplesHandler)
	mux.Handle("/api/v1/counts/summaries", summariesHandler)
	mux.Handle("/api/v1/counts/buckets", apihttp.NewCountBucketsHandler(countService, logger))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(mux, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	logger.Printf("http listening on %s (codes=%d locations=%d)", cfg.HTTPAddr, engineCfg.Vocabulary().Codes(), len(engineCfg.LocationIDs()))
	logger.Fatal(server.ListenAndServe())
}

type serverConfig struct {
	DatabaseURL       string
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
}

func loadConfig() serverConfig {
	return serverConfig{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		ReadHeaderTimeout: getenvDuration("HTTP_READ_HEADER_TIMEOUT", 10*time.Second),
	}
}

type storeSet struct {
	db          *sql.DB
	events      priorityapp.EventRepository
	eventQuery  priorityapp.EventQuery
	sampleRepo  analyticsapp.SampleRepository
	samples     analyticsapp.SampleQuery
	summaries   analyticsapp.SummaryQuery
	summarySink analyticsapp.SummaryRepository
}

// openStores uses Postgres when a DSN is configured and in-memory stores otherwise.
func openStores(cfg serverConfig, logger *log.Logger) storeSet {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not set; using in-memory stores")
		events := prioritymemory.NewEventStore()
		counts := analyticsmemory.NewCountStore()
		return storeSet{
			events:      events,
			eventQuery:  events,
			sampleRepo:  counts,
			samples:     counts,
			summaries:   counts,
			summarySink: counts,
		}
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	sampleRepo := analyticsrepo.NewSampleRepository(db)
	summaryRepo := analyticsrepo.NewSummaryRepository(db)
	return storeSet{
		db:          db,
		events:      priorityrepo.NewEventRepository(db),
		eventQuery:  priorityrepo.NewEventQuery(db),
		sampleRepo:  sampleRepo,
		samples:     sampleRepo,
		summaries:   summaryRepo,
		summarySink: summaryRepo,
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s request_id=%s", r.Method, r.URL.Path, resp.status, time.Since(start), requestID)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
