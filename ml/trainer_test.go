package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeDataset(t *testing.T, rows int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insurance-chinese.csv")
	require.NoError(t, os.WriteFile(path, []byte(syntheticCSV(rows)), 0o644))
	return path
}

func TestTrainWritesModel(t *testing.T) {
	dataset := writeDataset(t, 60)
	modelPath := filepath.Join(t.TempDir(), "rfr_model.json")

	result, err := Train(context.Background(), TrainConfig{
		DatasetPath: dataset,
		ModelPath:   modelPath,
		TestRatio:   0.2,
		Forest:      ForestConfig{NumTrees: 10, Seed: DefaultSeed},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 60, result.Rows)
	assert.Equal(t, 48, result.TrainRows)
	assert.Equal(t, 12, result.TestRows)
	assert.Equal(t, 10, result.NumTrees)

	model, err := LoadModel(modelPath)
	require.NoError(t, err)
	assert.Equal(t, 48, model.TrainRows)
	assert.Equal(t, 12, model.TestRows)
	assert.Len(t, model.Forest.Trees, 10)
}

func TestTrainIsReproducible(t *testing.T) {
	dataset := writeDataset(t, 50)
	dir := t.TempDir()
	config := TrainConfig{
		DatasetPath: dataset,
		TestRatio:   0.2,
		Forest:      ForestConfig{NumTrees: 8, Seed: DefaultSeed, Workers: 3},
	}

	config.ModelPath = filepath.Join(dir, "a.json")
	_, err := Train(context.Background(), config, nil)
	require.NoError(t, err)
	config.ModelPath = filepath.Join(dir, "b.json")
	_, err = Train(context.Background(), config, nil)
	require.NoError(t, err)

	a, err := LoadModel(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	b, err := LoadModel(filepath.Join(dir, "b.json"))
	require.NoError(t, err)
	assert.Equal(t, a.Forest.Trees, b.Forest.Trees)
}

func TestTrainErrors(t *testing.T) {
	_, err := Train(context.Background(), TrainConfig{ModelPath: "x.json"}, nil)
	assert.Error(t, err)

	_, err = Train(context.Background(), TrainConfig{DatasetPath: "x.csv"}, nil)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("a,b\n1,2\n"), 0o644))
	_, err = Train(context.Background(), TrainConfig{DatasetPath: bad, ModelPath: filepath.Join(t.TempDir(), "m.json")}, nil)
	assert.ErrorIs(t, err, ErrDatasetEncoding)
}
