package ml

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type TrainConfig struct {
	DatasetPath string
	Encodings   []string
	ModelPath   string
	TestRatio   float64
	Forest      ForestConfig
}

type TrainResult struct {
	Rows      int
	TrainRows int
	TestRows  int
	NumTrees  int
	Seed      int64
	ModelPath string
	Duration  time.Duration
}

// Train loads the dataset, fits the forest on the training partition and writes the model
// to config.ModelPath, overwriting any existing file. The held-out partition is only counted.
func Train(ctx context.Context, config TrainConfig, logger *zap.Logger) (*TrainResult, error) {
	if config.DatasetPath == "" {
		return nil, errors.New("dataset path is required")
	}
	if config.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	samples, err := LoadDataset(config.DatasetPath, config.Encodings)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", zap.String("path", config.DatasetPath), zap.Int("rows", len(samples)))

	features, targets, err := BuildTrainingSet(samples)
	if err != nil {
		return nil, err
	}

	trainX, trainY, testX, _ := SplitDataset(features, targets, config.TestRatio, config.Forest.Seed)
	if len(trainX) == 0 {
		return nil, errors.New("training partition is empty")
	}

	forest := NewRandomForest(config.Forest)
	logger.Info("fitting random forest",
		zap.Int("trees", forest.NumTrees),
		zap.Int64("seed", forest.Seed),
		zap.Int("train_rows", len(trainX)),
		zap.Int("test_rows", len(testX)),
	)
	if err := forest.Fit(ctx, trainX, trainY); err != nil {
		return nil, err
	}

	model := NewPersistedModel(forest, FeatureNames())
	model.TrainRows = len(trainX)
	model.TestRows = len(testX)
	if err := SaveModel(config.ModelPath, model); err != nil {
		return nil, err
	}

	return &TrainResult{
		Rows:      len(samples),
		TrainRows: len(trainX),
		TestRows:  len(testX),
		NumTrees:  forest.NumTrees,
		Seed:      forest.Seed,
		ModelPath: config.ModelPath,
		Duration:  time.Since(start),
	}, nil
}
