package ml

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("unknown category value")
	ErrInvalidRecord   = errors.New("invalid insured record")
)

type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

type Smoker string

const (
	SmokerYes Smoker = "yes"
	SmokerNo  Smoker = "no"
)

type Region string

const (
	RegionNortheast Region = "northeast"
	RegionSoutheast Region = "southeast"
	RegionNorthwest Region = "northwest"
	RegionSouthwest Region = "southwest"
)

// InsuredRecord is one person's attributes as submitted on the form or read from a dataset row.
type InsuredRecord struct {
	Age      int     `json:"age"`
	BMI      float64 `json:"bmi"`
	Children int     `json:"children"`
	Sex      Sex     `json:"sex"`
	Smoker   Smoker  `json:"smoker"`
	Region   Region  `json:"region"`
}

// FeatureVector is the encoded record in FeatureNames order.
type FeatureVector []float64

const (
	FeatureAge = iota
	FeatureBMI
	FeatureChildren
	FeatureSexFemale
	FeatureSexMale
	FeatureSmokeNo
	FeatureSmokeYes
	FeatureRegionNortheast
	FeatureRegionSoutheast
	FeatureRegionNorthwest
	FeatureRegionSouthwest
	featureCount
)

func FeatureNames() []string {
	return []string{
		"age",
		"bmi",
		"children",
		"sex_female",
		"sex_male",
		"smoke_no",
		"smoke_yes",
		"region_northeast",
		"region_southeast",
		"region_northwest",
		"region_southwest",
	}
}

// Encode validates the record and one-hot encodes it. Training and prediction both go
// through here so the column layout cannot drift between them.
func Encode(record InsuredRecord) (FeatureVector, error) {
	if err := Validate(record); err != nil {
		return nil, err
	}

	vector := make(FeatureVector, featureCount)
	vector[FeatureAge] = float64(record.Age)
	vector[FeatureBMI] = record.BMI
	vector[FeatureChildren] = float64(record.Children)

	switch record.Sex {
	case SexFemale:
		vector[FeatureSexFemale] = 1
	case SexMale:
		vector[FeatureSexMale] = 1
	default:
		return nil, fmt.Errorf("%w: sex %q", ErrUnknownCategory, record.Sex)
	}

	switch record.Smoker {
	case SmokerNo:
		vector[FeatureSmokeNo] = 1
	case SmokerYes:
		vector[FeatureSmokeYes] = 1
	default:
		return nil, fmt.Errorf("%w: smoker %q", ErrUnknownCategory, record.Smoker)
	}

	switch record.Region {
	case RegionNortheast:
		vector[FeatureRegionNortheast] = 1
	case RegionSoutheast:
		vector[FeatureRegionSoutheast] = 1
	case RegionNorthwest:
		vector[FeatureRegionNorthwest] = 1
	case RegionSouthwest:
		vector[FeatureRegionSouthwest] = 1
	default:
		return nil, fmt.Errorf("%w: region %q", ErrUnknownCategory, record.Region)
	}

	return vector, nil
}

// ParseSex accepts the English value or the dataset's Chinese label.
func ParseSex(value string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "female", "女性", "女":
		return SexFemale, nil
	case "male", "男性", "男":
		return SexMale, nil
	}
	return "", fmt.Errorf("%w: sex %q", ErrUnknownCategory, value)
}

func ParseSmoker(value string) (Smoker, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "是":
		return SmokerYes, nil
	case "no", "否":
		return SmokerNo, nil
	}
	return "", fmt.Errorf("%w: smoker %q", ErrUnknownCategory, value)
}

func ParseRegion(value string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "northeast", "东北部":
		return RegionNortheast, nil
	case "southeast", "东南部":
		return RegionSoutheast, nil
	case "northwest", "西北部":
		return RegionNorthwest, nil
	case "southwest", "西南部":
		return RegionSouthwest, nil
	}
	return "", fmt.Errorf("%w: region %q", ErrUnknownCategory, value)
}

// Label returns the Chinese display label used by the form and the dataset.
func (s Sex) Label() string {
	switch s {
	case SexFemale:
		return "女性"
	case SexMale:
		return "男性"
	}
	return string(s)
}

func (s Smoker) Label() string {
	switch s {
	case SmokerYes:
		return "是"
	case SmokerNo:
		return "否"
	}
	return string(s)
}

func (r Region) Label() string {
	switch r {
	case RegionNortheast:
		return "东北部"
	case RegionSoutheast:
		return "东南部"
	case RegionNorthwest:
		return "西北部"
	case RegionSouthwest:
		return "西南部"
	}
	return string(r)
}
