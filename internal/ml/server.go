package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"crop-advisor/internal/common"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// ModelServer provides HTTP API for model predictions
type ModelServer struct {
	predictor *Predictor
	handler   http.Handler
	server    *http.Server
}

// ServerOptions configures the HTTP layer.
type ServerOptions struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	// Gatherer backs /metrics; nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// PredictionResponse is the success payload of POST /predict.
type PredictionResponse struct {
	RecommendedCrop string  `json:"recommended_crop"`
	Confidence      float64 `json:"confidence"`
}

// ErrorResponse is the failure payload of every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// ModelInfo is the payload of GET /model/info.
type ModelInfo struct {
	FeatureNames []string       `json:"feature_names"`
	Classes      []string       `json:"classes"`
	Target       string         `json:"target"`
	TrainingRows int            `json:"training_rows"`
	TrainedAt    time.Time      `json:"trained_at"`
	LoadedAt     time.Time      `json:"loaded_at"`
	Accuracy     float64        `json:"training_accuracy"`
	Seed         int64          `json:"seed"`
	Nodes        int            `json:"nodes"`
	Depth        int            `json:"depth"`
	Importances  []FeatureStats `json:"feature_importances"`
}

// NewModelServer creates a new HTTP server for model serving
func NewModelServer(predictor *Predictor, opts ServerOptions) *ModelServer {
	ms := &ModelServer{
		predictor: predictor,
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter()
	router.HandleFunc("/predict", ms.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/health", ms.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/model/info", ms.handleModelInfo).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
	router.Use(recoverMiddleware, logMiddleware)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	ms.handler = corsHandler.Handler(router)

	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	ms.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           ms.handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return ms
}

// Handler returns the fully wrapped HTTP handler.
func (ms *ModelServer) Handler() http.Handler {
	return ms.handler
}

// Addr returns the configured listen address.
func (ms *ModelServer) Addr() string {
	return ms.server.Addr
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Bool("model_loaded", ms.predictor.Available()).Msg("starting model server")
	if err := ms.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, common.MaxBodyLen)
	res := ms.predictor.PredictJSON(body)

	if res.Outcome != OutcomeSuccess {
		writeJSON(w, res.StatusCode(), ErrorResponse{Error: res.ErrorMessage()})
		return
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		RecommendedCrop: res.Crop,
		Confidence:      res.Confidence,
	})
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := ms.predictor.Available()

	status := http.StatusOK
	health := HealthResponse{Status: "ok", ModelLoaded: loaded}
	if !loaded {
		status = http.StatusServiceUnavailable
		health.Status = "degraded"
	}

	writeJSON(w, status, health)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	model := ms.predictor.Model()
	if model == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: common.ErrMsgModelUnavailable})
		return
	}

	writeJSON(w, http.StatusOK, ModelInfo{
		FeatureNames: model.FeatureNames,
		Classes:      model.Classes(),
		Target:       model.Target,
		TrainingRows: model.TrainingRows,
		TrainedAt:    model.TrainedAt,
		LoadedAt:     ms.predictor.LoadedAt(),
		Accuracy:     model.Accuracy,
		Seed:         model.Tree.Params.Seed,
		Nodes:        len(model.Tree.Nodes),
		Depth:        model.Tree.Depth(),
		Importances:  model.Importances,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// statusRecorder captures the status code for access logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// recoverMiddleware keeps a handler panic from taking the process down.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				log.Error().
					Interface("panic", rv).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("panic recovered")
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error: common.ErrMsgInternalPrefix + fmt.Sprint(rv),
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
