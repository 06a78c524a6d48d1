package ml

import (
	"context"

	"github.com/shopspring/decimal"
)

// Estimate is one prediction. Display always carries exactly two decimals.
type Estimate struct {
	Value   float64 `json:"value"`
	Rounded float64 `json:"rounded"`
	Display string  `json:"display"`
}

func NewEstimate(value float64) Estimate {
	rounded := decimal.NewFromFloat(value).Round(2)
	f, _ := rounded.Float64()
	return Estimate{
		Value:   value,
		Rounded: f,
		Display: rounded.StringFixed(2),
	}
}

// Predictor turns one submitted record into an estimate using the model at a fixed path.
type Predictor struct {
	store     *ModelStore
	modelPath string
}

func NewPredictor(store *ModelStore, modelPath string) *Predictor {
	return &Predictor{store: store, modelPath: modelPath}
}

func (p *Predictor) ModelPath() string {
	return p.modelPath
}

// Model returns the currently persisted model.
func (p *Predictor) Model() (*PersistedModel, error) {
	return p.store.Load(p.modelPath)
}

func (p *Predictor) Predict(ctx context.Context, record InsuredRecord) (Estimate, error) {
	vector, err := Encode(record)
	if err != nil {
		return Estimate{}, err
	}
	if err := ctx.Err(); err != nil {
		return Estimate{}, err
	}
	model, err := p.store.Load(p.modelPath)
	if err != nil {
		return Estimate{}, err
	}
	row, err := model.Align(FeatureNames(), vector)
	if err != nil {
		return Estimate{}, err
	}
	value, err := model.Predict(row)
	if err != nil {
		return Estimate{}, err
	}
	return NewEstimate(value), nil
}
