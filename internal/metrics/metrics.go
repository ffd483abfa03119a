// Package metrics provides Prometheus metrics collection for the crop
// prediction service. The predictor records outcomes, latency and confidence
// through the Wrapper; the server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the predictor service.
type Metrics struct {
	MLPredictions      prometheus.Counter     // Successful predictions
	MLFailures         *prometheus.CounterVec // Failed predictions by reason
	MLLatency          prometheus.Histogram   // End-to-end prediction latency in seconds
	MLPredictionScores prometheus.Histogram   // Distribution of returned confidence scores
	MLModelLoaded      prometheus.Gauge       // 1 when a model is loaded, 0 otherwise
	MLModelAge         prometheus.Gauge       // Age of the loaded model in seconds at startup
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of successful crop predictions",
		}),
		MLFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of failed crop predictions by reason",
		}, []string{"reason"}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_loaded",
			Help: "Whether a crop model is loaded (1) or unavailable (0)",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the loaded model in seconds when it was loaded",
		}),
	}
}
