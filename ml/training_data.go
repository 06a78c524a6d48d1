package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// BuildTrainingSet encodes every sample with Encode, so the matrix columns follow FeatureNames.
func BuildTrainingSet(samples []Sample) (features [][]float64, targets []float64, err error) {
	if len(samples) == 0 {
		return nil, nil, errors.New("samples is empty")
	}
	features = make([][]float64, 0, len(samples))
	targets = make([]float64, 0, len(samples))
	for i, sample := range samples {
		vector, err := Encode(sample.Record)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		features = append(features, vector)
		targets = append(targets, sample.Cost)
	}
	return features, targets, nil
}

// SplitDataset shuffles with a fixed seed and holds out testRatio of the rows.
func SplitDataset(features [][]float64, targets []float64, testRatio float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	testSize := int(math.Ceil(float64(len(features)) * testRatio))
	split := len(features) - testSize
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, targets[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, targets[idx])
		}
	}
	return trainX, trainY, testX, testY
}
