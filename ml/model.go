package ml

import (
	"errors"
	"fmt"
	"time"
)

// Regressor predicts one continuous value from a feature row.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

const (
	ModelFormat  = "medcost.random_forest"
	ModelVersion = 1
)

var (
	ErrModelNotFound  = errors.New("model not found")
	ErrCorruptModel   = errors.New("model file is corrupt")
	ErrSchemaMismatch = errors.New("model schema mismatch")
)

// PersistedModel is the on-disk artifact shared by the trainer and the web server.
type PersistedModel struct {
	Format       string        `json:"format"`
	Version      int           `json:"version"`
	FeatureNames []string      `json:"feature_names"`
	TrainedAt    time.Time     `json:"trained_at"`
	TrainRows    int           `json:"train_rows"`
	TestRows     int           `json:"test_rows"`
	Forest       *RandomForest `json:"forest"`
}

func NewPersistedModel(forest *RandomForest, featureNames []string) *PersistedModel {
	return &PersistedModel{
		Format:       ModelFormat,
		Version:      ModelVersion,
		FeatureNames: append([]string(nil), featureNames...),
		TrainedAt:    time.Now().UTC(),
		Forest:       forest,
	}
}

func (m *PersistedModel) Predict(features []float64) (float64, error) {
	if m.Forest == nil {
		return 0, errors.New("model not trained")
	}
	return m.Forest.Predict(features)
}

// Align reorders vector (laid out as names) into the column order the model was fitted on.
// Columns are matched by name so a reordered encoder cannot silently shift features.
func (m *PersistedModel) Align(names []string, vector FeatureVector) ([]float64, error) {
	if len(names) != len(vector) {
		return nil, fmt.Errorf("%w: %d names for %d values", ErrSchemaMismatch, len(names), len(vector))
	}
	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}

	row := make([]float64, len(m.FeatureNames))
	for i, name := range m.FeatureNames {
		idx, ok := position[name]
		if !ok {
			return nil, fmt.Errorf("%w: model expects feature %q", ErrSchemaMismatch, name)
		}
		row[i] = vector[idx]
	}
	return row, nil
}

// CheckSchema verifies the format tag, version and feature list against this build.
func (m *PersistedModel) CheckSchema() error {
	if m.Format != ModelFormat {
		return fmt.Errorf("%w: format %q, want %q", ErrSchemaMismatch, m.Format, ModelFormat)
	}
	if m.Version != ModelVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSchemaMismatch, m.Version, ModelVersion)
	}
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrSchemaMismatch)
	}
	if len(m.FeatureNames) != m.Forest.NumFeatures {
		return fmt.Errorf("%w: %d feature names for %d inputs", ErrSchemaMismatch, len(m.FeatureNames), m.Forest.NumFeatures)
	}

	known := make(map[string]bool, featureCount)
	for _, name := range FeatureNames() {
		known[name] = true
	}
	seen := make(map[string]bool, len(m.FeatureNames))
	for _, name := range m.FeatureNames {
		if !known[name] {
			return fmt.Errorf("%w: unknown feature %q", ErrSchemaMismatch, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate feature %q", ErrSchemaMismatch, name)
		}
		seen[name] = true
	}
	if len(seen) != featureCount {
		return fmt.Errorf("%w: model has %d of %d features", ErrSchemaMismatch, len(seen), featureCount)
	}
	return nil
}
