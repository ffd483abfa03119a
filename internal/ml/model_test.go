package ml

import (
	"encoding/json"
	"testing"

	"crop-advisor/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedModel(t *testing.T) *Model {
	t.Helper()
	ds, err := dataset.Reference()
	require.NoError(t, err)
	model, err := Train(ds, DefaultTreeParams())
	require.NoError(t, err)
	return model
}

// splitModel is a hand-built model whose left leaf is mixed, so predictions
// there carry a fractional confidence. It splits on N at 50.
func splitModel() *Model {
	return &Model{
		FeatureNames: []string{"N", "P", "K", "pH", "Temp", "Humidity", "Rainfall"},
		Target:       "Crop",
		TrainingRows: 6,
		Tree: &DecisionTree{
			Params:      DefaultTreeParams(),
			Classes:     []string{"Lentil", "Wheat"},
			NumFeatures: 7,
			Nodes: []TreeNode{
				{FeatureIdx: 0, Threshold: 50, LeftChild: 1, RightChild: 2, Counts: []float64{1, 5}, Samples: 6},
				{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Counts: []float64{1, 2}, Samples: 3, IsLeaf: true},
				{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Counts: []float64{0, 3}, Samples: 3, IsLeaf: true},
			},
		},
	}
}

func TestModel_MarshalRoundTrip(t *testing.T) {
	model := trainedModel(t)

	data, err := model.Marshal()
	require.NoError(t, err)

	loaded, err := UnmarshalModel(data)
	require.NoError(t, err)
	assert.Equal(t, model.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, model.Target, loaded.Target)
	assert.Equal(t, model.Tree.Nodes, loaded.Tree.Nodes)
	assert.Equal(t, model.Tree.Params, loaded.Tree.Params)
	assert.Equal(t, model.Importances, loaded.Importances)
	assert.True(t, model.TrainedAt.Equal(loaded.TrainedAt))
}

func TestModel_Validate(t *testing.T) {
	assert.ErrorIs(t, (*Model)(nil).Validate(), ErrNotFitted)
	assert.ErrorIs(t, (&Model{}).Validate(), ErrNotFitted)
	assert.NoError(t, splitModel().Validate())

	reordered := splitModel()
	reordered.FeatureNames = []string{"P", "N", "K", "pH", "Temp", "Humidity", "Rainfall"}
	assert.ErrorIs(t, reordered.Validate(), ErrFeatureMismatch)

	short := splitModel()
	short.FeatureNames = short.FeatureNames[:6]
	assert.ErrorIs(t, short.Validate(), ErrFeatureMismatch)

	width := splitModel()
	width.Tree.NumFeatures = 6
	assert.ErrorIs(t, width.Validate(), ErrFeatureMismatch)

	broken := splitModel()
	broken.Tree.Nodes[0].RightChild = 7
	assert.ErrorContains(t, broken.Validate(), "invalid tree")
}

func TestModel_MarshalRejectsInvalid(t *testing.T) {
	_, err := (&Model{}).Marshal()
	assert.Error(t, err)
}

func TestUnmarshalModel_Errors(t *testing.T) {
	_, err := UnmarshalModel([]byte("{not json"))
	assert.ErrorContains(t, err, "decode model")

	_, err = UnmarshalModel([]byte(`{"feature_names":["N"]}`))
	assert.Error(t, err)

	model := splitModel()
	model.FeatureNames[0] = "Nitrogen"
	data, err := json.Marshal(model)
	require.NoError(t, err)
	_, err = UnmarshalModel(data)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestModel_Classes(t *testing.T) {
	assert.Nil(t, (*Model)(nil).Classes())
	assert.Equal(t, []string{"Lentil", "Wheat"}, splitModel().Classes())
}
