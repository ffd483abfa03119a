package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crop-advisor/internal/features"
)

// ErrFeatureMismatch is returned when an artifact was trained on a
// different feature list than the one the service assembles.
var ErrFeatureMismatch = errors.New("model feature names do not match expected features")

// Model is the trained artifact: the fitted tree plus the metadata needed to
// feed it correctly.
type Model struct {
	FeatureNames []string       `json:"feature_names"`
	Target       string         `json:"target"`
	Tree         *DecisionTree  `json:"tree"`
	TrainingRows int            `json:"training_rows"`
	TrainedAt    time.Time      `json:"trained_at"`
	Accuracy     float64        `json:"training_accuracy"`
	Importances  []FeatureStats `json:"feature_importances"`
}

// Classes returns the labels the model can predict.
func (m *Model) Classes() []string {
	if m == nil || m.Tree == nil {
		return nil
	}
	return m.Tree.Classes
}

// Validate checks that the artifact is usable by the predictor: the tree is
// intact and its feature list matches features.Names exactly.
func (m *Model) Validate() error {
	if m == nil || m.Tree == nil {
		return ErrNotFitted
	}
	if !features.Equal(m.FeatureNames, features.Names) {
		return fmt.Errorf("%w: got %v, want %v", ErrFeatureMismatch, m.FeatureNames, features.Names)
	}
	if m.Tree.NumFeatures != features.Count {
		return fmt.Errorf("%w: tree uses %d features, want %d", ErrFeatureMismatch, m.Tree.NumFeatures, features.Count)
	}
	if err := m.Tree.Validate(); err != nil {
		return fmt.Errorf("invalid tree: %w", err)
	}
	return nil
}

// Marshal encodes the artifact.
func (m *Model) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// UnmarshalModel decodes and validates an artifact.
func UnmarshalModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
