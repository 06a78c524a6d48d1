package ml

import (
	"fmt"
	"math"
)

// ValidationRule checks one constraint on a record.
type ValidationRule interface {
	Apply(record InsuredRecord) error
	Name() string
}

type rangeRule struct {
	name     string
	min, max float64
	value    func(InsuredRecord) float64
}

func (r rangeRule) Name() string { return r.name }

func (r rangeRule) Apply(record InsuredRecord) error {
	v := r.value(record)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is not a finite number", ErrInvalidRecord, r.name)
	}
	if v < r.min || v > r.max {
		return fmt.Errorf("%w: %s %v out of range [%v, %v]", ErrInvalidRecord, r.name, v, r.min, r.max)
	}
	return nil
}

// NewAgeRule 年龄范围 0-120
func NewAgeRule() ValidationRule {
	return rangeRule{name: "age", min: 0, max: 120, value: func(r InsuredRecord) float64 { return float64(r.Age) }}
}

// NewBMIRule BMI范围 0-100
func NewBMIRule() ValidationRule {
	return rangeRule{name: "bmi", min: 0, max: 100, value: func(r InsuredRecord) float64 { return r.BMI }}
}

// NewChildrenRule 子女数量 0-10
func NewChildrenRule() ValidationRule {
	return rangeRule{name: "children", min: 0, max: 10, value: func(r InsuredRecord) float64 { return float64(r.Children) }}
}

var defaultRules = []ValidationRule{
	NewAgeRule(),
	NewBMIRule(),
	NewChildrenRule(),
}

// Validate applies the default range rules and returns the first violation.
func Validate(record InsuredRecord) error {
	return ValidateWith(record, defaultRules...)
}

func ValidateWith(record InsuredRecord, rules ...ValidationRule) error {
	for _, rule := range rules {
		if err := rule.Apply(record); err != nil {
			return err
		}
	}
	return nil
}
