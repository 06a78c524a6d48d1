package ml

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultNumTrees = 100
	DefaultSeed     = 42
)

type ForestConfig struct {
	NumTrees       int
	Seed           int64
	MaxDepth       int
	MinSamplesLeaf int
	// Workers bounds concurrent tree fitting; <= 0 uses GOMAXPROCS.
	Workers int
}

// RandomForest averages bootstrap-trained regression trees.
type RandomForest struct {
	NumTrees       int               `json:"n_estimators"`
	Seed           int64             `json:"random_state"`
	MaxDepth       int               `json:"max_depth,omitempty"`
	MinSamplesLeaf int               `json:"min_samples_leaf"`
	NumFeatures    int               `json:"n_features"`
	Trees          []*RegressionTree `json:"trees"`

	workers int
}

func NewRandomForest(config ForestConfig) *RandomForest {
	if config.NumTrees <= 0 {
		config.NumTrees = DefaultNumTrees
	}
	if config.MinSamplesLeaf <= 0 {
		config.MinSamplesLeaf = 1
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &RandomForest{
		NumTrees:       config.NumTrees,
		Seed:           config.Seed,
		MaxDepth:       config.MaxDepth,
		MinSamplesLeaf: config.MinSamplesLeaf,
		workers:        config.Workers,
	}
}

// Fit trains every tree on its own bootstrap sample. Per-tree seeds are drawn up front
// from the forest seed, so the result does not depend on goroutine scheduling.
func (f *RandomForest) Fit(ctx context.Context, features [][]float64, targets []float64) error {
	if err := checkTrainingSet(features, targets); err != nil {
		return err
	}

	seeds := make([]int64, f.NumTrees)
	master := rand.New(rand.NewSource(f.Seed))
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*RegressionTree, f.NumTrees)
	g, ctx := errgroup.WithContext(ctx)
	workers := f.workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rnd := rand.New(rand.NewSource(seeds[i]))
			sample := make([]int, len(features))
			for j := range sample {
				sample[j] = rnd.Intn(len(features))
			}
			tree := NewRegressionTree(f.MaxDepth, f.MinSamplesLeaf)
			if err := tree.fitIndices(features, targets, sample); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.Trees = trees
	f.NumFeatures = len(features[0])
	return nil
}

func (f *RandomForest) Predict(features []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != f.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", f.NumFeatures, len(features))
	}
	sum := 0.0
	for i, tree := range f.Trees {
		value, err := tree.Predict(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += value
	}
	return sum / float64(len(f.Trees)), nil
}

func (f *RandomForest) PredictBatch(rows [][]float64) ([]float64, error) {
	predictions := make([]float64, len(rows))
	for i, row := range rows {
		value, err := f.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		predictions[i] = value
	}
	return predictions, nil
}
