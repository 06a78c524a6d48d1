package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"medcost/config"
	"medcost/db"
	"medcost/logger"
	"medcost/ml"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	dataset := flag.String("dataset", "", "training CSV (overrides ml.dataset_path)")
	modelPath := flag.String("model_path", "", "model output path (overrides ml.model_path)")
	numTrees := flag.Int("n_estimators", 0, "number of trees")
	seed := flag.Int64("random_state", -1, "random seed")
	testRatio := flag.Float64("test_ratio", 0, "held-out fraction")
	maxDepth := flag.Int("max_depth", -1, "max tree depth, 0 is unlimited")
	minLeaf := flag.Int("min_samples_leaf", 0, "minimum samples per leaf")
	workers := flag.Int("workers", 0, "concurrent tree builders")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	training := &cfg.ML.Training
	if *dataset != "" {
		cfg.ML.DatasetPath = *dataset
	}
	if *modelPath != "" {
		cfg.ML.ModelPath = *modelPath
	}
	if *numTrees > 0 {
		training.NumTrees = *numTrees
	}
	if *seed >= 0 {
		training.Seed = *seed
	}
	if *testRatio > 0 {
		training.TestRatio = *testRatio
	}
	if *maxDepth >= 0 {
		training.MaxDepth = *maxDepth
	}
	if *minLeaf > 0 {
		training.MinSamplesLeaf = *minLeaf
	}
	if *workers > 0 {
		training.Workers = *workers
	}

	zlog := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := ml.Train(ctx, ml.TrainConfig{
		DatasetPath: cfg.ML.DatasetPath,
		Encodings:   cfg.ML.Encodings,
		ModelPath:   cfg.ML.ModelPath,
		TestRatio:   training.TestRatio,
		Forest: ml.ForestConfig{
			NumTrees:       training.NumTrees,
			Seed:           training.Seed,
			MaxDepth:       training.MaxDepth,
			MinSamplesLeaf: training.MinSamplesLeaf,
			Workers:        training.Workers,
		},
	}, zlog)
	if err != nil {
		zlog.Fatal("training failed", zap.Error(err))
	}

	if cfg.Database.Path != "" {
		if err := recordRun(cfg, result); err != nil {
			zlog.Warn("failed to record training run", zap.Error(err))
		}
	}

	fmt.Printf("model saved to %s\n", result.ModelPath)
}

func recordRun(cfg *config.Config, result *ml.TrainResult) error {
	if err := db.InitDB(cfg.Database.Path); err != nil {
		return err
	}
	defer db.Close()

	return db.RecordTrainingRun(db.TrainingRun{
		ModelPath:    result.ModelPath,
		DatasetPath:  cfg.ML.DatasetPath,
		ModelFormat:  ml.ModelFormat,
		ModelVersion: ml.ModelVersion,
		NumTrees:     result.NumTrees,
		Seed:         result.Seed,
		Rows:         result.Rows,
		TrainRows:    result.TrainRows,
		TestRows:     result.TestRows,
		Duration:     result.Duration,
		TrainedAt:    time.Now().UTC(),
	})
}
