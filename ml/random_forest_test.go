package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearData(n int) ([][]float64, []float64) {
	features := make([][]float64, n)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		features[i] = []float64{float64(i), float64(i % 3)}
		targets[i] = 2*float64(i) + float64(i%3)
	}
	return features, targets
}

func TestRandomForestDeterministicAcrossWorkers(t *testing.T) {
	features, targets := linearData(60)

	serial := NewRandomForest(ForestConfig{NumTrees: 20, Seed: 42, Workers: 1})
	require.NoError(t, serial.Fit(context.Background(), features, targets))

	parallel := NewRandomForest(ForestConfig{NumTrees: 20, Seed: 42, Workers: 4})
	require.NoError(t, parallel.Fit(context.Background(), features, targets))

	for _, row := range features {
		a, err := serial.Predict(row)
		require.NoError(t, err)
		b, err := parallel.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRandomForestFitsTrainingData(t *testing.T) {
	features, targets := linearData(60)
	forest := NewRandomForest(ForestConfig{NumTrees: 30, Seed: 7})
	require.NoError(t, forest.Fit(context.Background(), features, targets))

	assert.Len(t, forest.Trees, 30)
	assert.Equal(t, 2, forest.NumFeatures)

	predictions, err := forest.PredictBatch(features)
	require.NoError(t, err)
	for i, p := range predictions {
		assert.InDelta(t, targets[i], p, 10, "row %d", i)
	}
}

func TestRandomForestDefaults(t *testing.T) {
	forest := NewRandomForest(ForestConfig{})
	assert.Equal(t, DefaultNumTrees, forest.NumTrees)
	assert.Equal(t, 1, forest.MinSamplesLeaf)
}

func TestRandomForestPredictErrors(t *testing.T) {
	forest := NewRandomForest(ForestConfig{NumTrees: 3, Seed: 1})
	_, err := forest.Predict([]float64{1, 2})
	assert.Error(t, err)

	features, targets := linearData(10)
	require.NoError(t, forest.Fit(context.Background(), features, targets))
	_, err = forest.Predict([]float64{1})
	assert.Error(t, err)
}

func TestRandomForestFitCancelled(t *testing.T) {
	features, targets := linearData(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	forest := NewRandomForest(ForestConfig{NumTrees: 5, Seed: 1})
	err := forest.Fit(ctx, features, targets)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, forest.Trees)
}
