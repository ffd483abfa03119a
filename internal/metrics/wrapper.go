package metrics

// Wrapper adapts Metrics to the method set the predictor consumes
// (ml.MetricsInterface) without importing the ml package.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *Wrapper) MLFailuresInc(reason string) {
	w.m.MLFailures.WithLabelValues(reason).Inc()
}

func (w *Wrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *Wrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *Wrapper) MLModelLoadedSet(loaded bool) {
	if loaded {
		w.m.MLModelLoaded.Set(1)
		return
	}
	w.m.MLModelLoaded.Set(0)
}

func (w *Wrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}
