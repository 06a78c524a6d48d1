package ml

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedTestModel(t *testing.T) *PersistedModel {
	t.Helper()
	features, targets, err := BuildTrainingSet(syntheticSamples(40))
	require.NoError(t, err)
	forest := NewRandomForest(ForestConfig{NumTrees: 5, Seed: DefaultSeed})
	require.NoError(t, forest.Fit(context.Background(), features, targets))
	return NewPersistedModel(forest, FeatureNames())
}

func TestSaveLoadModelRoundTrip(t *testing.T) {
	model := trainedTestModel(t)
	path := filepath.Join(t.TempDir(), "models", "rfr_model.json")
	require.NoError(t, SaveModel(path, model))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, ModelFormat, loaded.Format)
	assert.Equal(t, ModelVersion, loaded.Version)
	assert.Equal(t, FeatureNames(), loaded.FeatureNames)

	vector, err := Encode(InsuredRecord{Age: 30, BMI: 22, Sex: SexMale, Smoker: SmokerNo, Region: RegionSouthwest})
	require.NoError(t, err)
	row, err := loaded.Align(FeatureNames(), vector)
	require.NoError(t, err)

	want, err := model.Predict(vector)
	require.NoError(t, err)
	got, err := loaded.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveModelOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfr_model.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, SaveModel(path, trainedTestModel(t)))
	_, err := LoadModel(path)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveModelRequiresTrees(t *testing.T) {
	err := SaveModel(filepath.Join(t.TempDir(), "m.json"), NewPersistedModel(NewRandomForest(ForestConfig{}), FeatureNames()))
	assert.Error(t, err)
}

func TestLoadModelNotFound(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadModelCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfr_model.json")
	require.NoError(t, os.WriteFile(path, []byte("\x80\x04 not a model"), 0o644))

	_, err := LoadModel(path)
	assert.ErrorIs(t, err, ErrCorruptModel)
	assert.NotErrorIs(t, err, ErrModelNotFound)
}

func TestLoadModelSchemaDrift(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PersistedModel)
	}{
		{name: "version", mutate: func(m *PersistedModel) { m.Version = ModelVersion + 1 }},
		{name: "format", mutate: func(m *PersistedModel) { m.Format = "sklearn.pickle" }},
		{name: "unknown feature", mutate: func(m *PersistedModel) { m.FeatureNames[3] = "gender" }},
		{name: "duplicate feature", mutate: func(m *PersistedModel) { m.FeatureNames[4] = m.FeatureNames[3] }},
		{name: "missing feature", mutate: func(m *PersistedModel) { m.FeatureNames = m.FeatureNames[:10] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := trainedTestModel(t)
			tt.mutate(model)
			path := filepath.Join(t.TempDir(), "rfr_model.json")
			require.NoError(t, SaveModel(path, model))

			_, err := LoadModel(path)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestAlignReordersByName(t *testing.T) {
	names := FeatureNames()
	reversed := make([]string, len(names))
	for i, name := range names {
		reversed[len(names)-1-i] = name
	}
	model := &PersistedModel{FeatureNames: reversed}

	vector := FeatureVector{30, 22, 0, 0, 1, 1, 0, 0, 0, 0, 1}
	row, err := model.Align(names, vector)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 1, 1, 0, 0, 22, 30}, row)

	model.FeatureNames = append(model.FeatureNames, "income")
	_, err = model.Align(names, vector)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}
