package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"crop-advisor/internal/common"
	"crop-advisor/internal/features"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc(reason string)
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLModelLoadedSet(bool)
	MLModelAgeSet(float64)
}

// ErrModelUnavailable is reported for every request when no model is loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrMissingFeatures is reported when a request lacks required keys.
var ErrMissingFeatures = errors.New("missing required features")

// Outcome classifies a prediction attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeModelUnavailable
	OutcomeValidation
	OutcomeInference
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeModelUnavailable:
		return "model_unavailable"
	case OutcomeValidation:
		return "validation"
	case OutcomeInference:
		return "inference"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of one prediction. Crop and Confidence are set only
// on success; Err is set otherwise.
type Result struct {
	Outcome    Outcome
	Crop       string
	Confidence float64
	Missing    []string
	Err        error
}

// StatusCode maps the outcome to its HTTP status.
func (r Result) StatusCode() int {
	switch r.Outcome {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage is the client-facing error text. Inference failures carry the
// underlying error detail.
func (r Result) ErrorMessage() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return ""
	case OutcomeModelUnavailable:
		return common.ErrMsgModelUnavailable
	case OutcomeValidation:
		return common.ErrMsgMissingFeatures
	default:
		return common.ErrMsgInternalPrefix + r.Err.Error()
	}
}

// Predictor serves predictions from an immutable model. A Predictor without
// a model stays usable and answers every request with
// OutcomeModelUnavailable.
type Predictor struct {
	model    *Model
	metrics  MetricsInterface
	loadedAt time.Time
}

// NewPredictor wraps model, which may be nil. An invalid model is dropped
// and the predictor starts unavailable.
func NewPredictor(model *Model, metrics MetricsInterface) *Predictor {
	p := &Predictor{metrics: metrics}

	if model != nil {
		if err := model.Validate(); err != nil {
			log.Error().Err(err).Msg("Rejecting invalid model, predictions will fail")
		} else {
			p.model = model
			p.loadedAt = time.Now()
		}
	}

	if p.metrics != nil {
		p.metrics.MLModelLoadedSet(p.model != nil)
		if p.model != nil && !p.model.TrainedAt.IsZero() {
			p.metrics.MLModelAgeSet(time.Since(p.model.TrainedAt).Seconds())
		}
	}

	return p
}

// Available reports whether a model is loaded.
func (p *Predictor) Available() bool {
	return p != nil && p.model != nil
}

// Model returns the loaded model or nil. Callers must not modify it.
func (p *Predictor) Model() *Model {
	if p == nil {
		return nil
	}
	return p.model
}

// LoadedAt returns when the model was bound to the predictor.
func (p *Predictor) LoadedAt() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.loadedAt
}

// Predict classifies a decoded JSON object keyed by feature name.
func (p *Predictor) Predict(payload map[string]any) Result {
	start := time.Now()
	var res Result
	if !p.Available() {
		res = Result{Outcome: OutcomeModelUnavailable, Err: ErrModelUnavailable}
	} else {
		res = p.predict(payload)
	}
	p.observe(start, res)
	return res
}

// PredictJSON reads a request body and classifies it. The model check comes
// first so an unavailable service never reads the body. Invalid JSON and a
// JSON null are inference failures; any other non-object body is treated as
// an object with every feature missing.
func (p *Predictor) PredictJSON(body io.Reader) Result {
	start := time.Now()
	res := p.predictJSON(body)
	p.observe(start, res)
	return res
}

func (p *Predictor) predictJSON(body io.Reader) Result {
	if !p.Available() {
		return Result{Outcome: OutcomeModelUnavailable, Err: ErrModelUnavailable}
	}

	dec := json.NewDecoder(body)
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return inferenceFailure(fmt.Errorf("invalid JSON body: %w", err))
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return inferenceFailure(errors.New("invalid JSON body: unexpected data after top-level value"))
	}

	switch v := decoded.(type) {
	case nil:
		return inferenceFailure(errors.New("request body is null"))
	case map[string]any:
		return p.predict(v)
	default:
		return p.predict(map[string]any{})
	}
}

func (p *Predictor) predict(payload map[string]any) Result {
	names := p.model.FeatureNames

	if missing := features.Missing(payload, names); len(missing) > 0 {
		return Result{
			Outcome: OutcomeValidation,
			Missing: missing,
			Err:     fmt.Errorf("%w: %v", ErrMissingFeatures, missing),
		}
	}

	row, err := features.Assemble(names, payload)
	if err != nil {
		return inferenceFailure(err)
	}

	crop, probability, err := p.model.Tree.Predict(row)
	if err != nil {
		return inferenceFailure(err)
	}

	return Result{Outcome: OutcomeSuccess, Crop: crop, Confidence: roundConfidence(probability)}
}

// roundConfidence rounds to 4 decimals, halves to even.
func roundConfidence(p float64) float64 {
	return math.RoundToEven(p*1e4) / 1e4
}

func inferenceFailure(err error) Result {
	return Result{Outcome: OutcomeInference, Err: err}
}

func (p *Predictor) observe(start time.Time, res Result) {
	switch res.Outcome {
	case OutcomeSuccess:
	case OutcomeValidation:
		log.Debug().Strs("missing", res.Missing).Msg("prediction rejected")
	case OutcomeInference:
		log.Error().Err(res.Err).Msg("Prediction Error")
	}

	if p == nil || p.metrics == nil {
		return
	}
	p.metrics.MLLatencyObserve(time.Since(start).Seconds())
	if res.Outcome == OutcomeSuccess {
		p.metrics.MLPredictionsInc()
		p.metrics.MLPredictionScoresObserve(res.Confidence)
		return
	}
	p.metrics.MLFailuresInc(res.Outcome.String())
}
