package ml

import (
	"fmt"
	"time"

	"crop-advisor/internal/dataset"
	"crop-advisor/internal/features"

	"github.com/rs/zerolog/log"
)

// Train fits a decision tree on the canonical feature columns of ds and
// returns the artifact. Columns are picked by name, so a dataset whose CSV
// lists the features in another order trains the same model.
func Train(ds *dataset.Dataset, params TreeParams) (*Model, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("training dataset is empty")
	}

	rows, err := ds.Select(features.Names)
	if err != nil {
		return nil, fmt.Errorf("select features: %w", err)
	}

	tree := NewDecisionTree(params)
	if err := tree.Fit(rows, ds.Labels); err != nil {
		return nil, fmt.Errorf("fit tree: %w", err)
	}

	names := append([]string(nil), features.Names...)
	model := &Model{
		FeatureNames: names,
		Target:       ds.Target,
		Tree:         tree,
		TrainingRows: ds.Len(),
		TrainedAt:    time.Now().UTC(),
		Accuracy:     accuracy(tree, rows, ds.Labels),
		Importances:  tree.RankFeatures(names),
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("rows", model.TrainingRows).
		Int("nodes", len(tree.Nodes)).
		Int("depth", tree.Depth()).
		Strs("classes", tree.Classes).
		Msg("decision tree fitted")

	return model, nil
}

func accuracy(tree *DecisionTree, rows [][]float64, labels []string) float64 {
	if len(rows) == 0 {
		return 0
	}
	correct := 0
	for i, row := range rows {
		label, _, err := tree.Predict(row)
		if err != nil {
			continue
		}
		if label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(rows))
}
