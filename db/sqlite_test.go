package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingLog(t *testing.T) {
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { Close() })

	_, err := LatestTrainingRun("rfr_model.json")
	assert.ErrorIs(t, err, ErrNoTrainingRuns)

	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, RecordTrainingRun(TrainingRun{
			ModelPath:    "rfr_model.json",
			DatasetPath:  "insurance-chinese.csv",
			ModelFormat:  "medcost.random_forest",
			ModelVersion: 1,
			NumTrees:     100,
			Seed:         42,
			Rows:         1338,
			TrainRows:    1070,
			TestRows:     268,
			Duration:     time.Duration(i+1) * time.Second,
			TrainedAt:    base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, RecordTrainingRun(TrainingRun{
		ModelPath: "other.json", DatasetPath: "x.csv", ModelFormat: "medcost.random_forest",
		ModelVersion: 1, NumTrees: 10, TrainedAt: base.Add(10 * time.Hour),
	}))

	latest, err := LatestTrainingRun("rfr_model.json")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, latest.Duration)
	assert.True(t, latest.TrainedAt.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, 1070, latest.TrainRows)
	assert.Equal(t, int64(42), latest.Seed)

	all, err := LoadTrainingLog("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "other.json", all[0].ModelPath)
}

func TestTrainingLogUninitialized(t *testing.T) {
	require.NoError(t, Close())
	assert.Error(t, RecordTrainingRun(TrainingRun{}))
	_, err := LoadTrainingLog("", 1)
	assert.Error(t, err)
}
