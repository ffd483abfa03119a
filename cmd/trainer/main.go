package main

import (
	"flag"
	"fmt"

	"crop-advisor/internal/cfg"
	"crop-advisor/internal/common"
	"crop-advisor/internal/dataset"
	"crop-advisor/internal/ml"
	"crop-advisor/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// Flags default to the loaded configuration
	var (
		outputPath = flag.String("output", config.ModelPath, "Path of the model artifact to write")
		dataPath   = flag.String("data", config.DatasetPath, "CSV dataset to train on (default: built-in reference data)")
		seed       = flag.Int64("seed", config.TrainingSeed, "Random seed for split selection")
		maxDepth   = flag.Int("max-depth", config.MaxDepth, "Maximum tree depth, 0 for unlimited")
	)
	flag.Parse()

	common.SetupLogging(config.LogLevel, config.LogFormat)

	ds, err := loadDataset(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load training data")
	}
	log.Info().
		Int("rows", ds.Len()).
		Strs("classes", ds.Classes()).
		Str("source", sourceName(*dataPath)).
		Msg("Training data loaded")

	summaries, err := ds.Describe()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to summarize training data")
	}
	for _, col := range summaries {
		log.Debug().
			Str("feature", col.Name).
			Float64("min", col.Min).
			Float64("max", col.Max).
			Float64("mean", col.Mean).
			Float64("stddev", col.StdDev).
			Msg("Feature summary")
	}

	params := ml.DefaultTreeParams()
	params.Seed = *seed
	params.MaxDepth = *maxDepth

	model, err := ml.Train(ds, params)
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}

	for _, fs := range model.Importances {
		log.Debug().
			Str("feature", fs.Name).
			Float64("importance", fs.ImportanceScore).
			Int("splits", fs.SplitCount).
			Msg("Feature importance")
	}
	log.Info().
		Float64("training_accuracy", model.Accuracy).
		Int("nodes", len(model.Tree.Nodes)).
		Int("depth", model.Tree.Depth()).
		Int64("seed", params.Seed).
		Msg("Model trained")

	if err := storage.SaveModel(*outputPath, model); err != nil {
		log.Fatal().Err(err).Str("path", *outputPath).Msg("Failed to save model")
	}

	fmt.Printf("Successfully trained and saved model as %s\n", *outputPath)
}

func loadDataset(path string) (*dataset.Dataset, error) {
	if path == "" {
		return dataset.Reference()
	}
	return dataset.Load(path)
}

func sourceName(path string) string {
	if path == "" {
		return "reference"
	}
	return path
}
