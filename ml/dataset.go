package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var ErrDatasetEncoding = errors.New("dataset could not be decoded with any encoding")

// DefaultEncodings is the order encodings are tried in when loading a dataset.
// gb2312 resolves to the GBK decoder, which is a superset.
var DefaultEncodings = []string{"gbk", "gb2312", "utf-8"}

// Sample is one labeled dataset row.
type Sample struct {
	Record InsuredRecord
	Cost   float64
}

type column int

const (
	colAge column = iota
	colBMI
	colChildren
	colSex
	colSmoker
	colRegion
	colCost
	columnCount
)

var columnAliases = [columnCount][]string{
	colAge:      {"年龄", "age"},
	colBMI:      {"BMI", "bmi"},
	colChildren: {"子女数量", "children"},
	colSex:      {"性别", "sex"},
	colSmoker:   {"是否吸烟", "smoker"},
	colRegion:   {"区域", "region"},
	colCost:     {"医疗费用", "charges", "cost"},
}

// LoadDataset reads a delimited dataset, trying each encoding in order until one decodes
// cleanly and yields the expected header. Row-level errors after a successful header are
// returned immediately.
func LoadDataset(path string, encodings []string) ([]Sample, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDataset(payload, encodings)
}

func ParseDataset(payload []byte, encodings []string) ([]Sample, error) {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}

	var attempts error
	for _, name := range encodings {
		text, err := decodeText(payload, name)
		if err != nil {
			attempts = multierr.Append(attempts, fmt.Errorf("%s: %w", name, err))
			continue
		}
		reader := csv.NewReader(strings.NewReader(text))
		reader.TrimLeadingSpace = true
		header, err := reader.Read()
		if err != nil {
			attempts = multierr.Append(attempts, fmt.Errorf("%s: read header: %w", name, err))
			continue
		}
		columns, err := mapColumns(header)
		if err != nil {
			attempts = multierr.Append(attempts, fmt.Errorf("%s: %w", name, err))
			continue
		}
		return readSamples(reader, columns)
	}
	return nil, fmt.Errorf("%w: %w", ErrDatasetEncoding, attempts)
}

func decodeText(payload []byte, name string) (string, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", err
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), payload)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(decoded) {
		return "", errors.New("invalid text")
	}
	text := strings.TrimPrefix(string(decoded), "\ufeff")
	if strings.ContainsRune(text, utf8.RuneError) {
		return "", errors.New("undecodable byte sequence")
	}
	return text, nil
}

func mapColumns(header []string) ([columnCount]int, error) {
	var columns [columnCount]int
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.TrimSpace(name)] = i
	}
	for col, aliases := range columnAliases {
		columns[col] = -1
		for _, alias := range aliases {
			if idx, ok := positions[alias]; ok {
				columns[col] = idx
				break
			}
		}
		if columns[col] == -1 {
			return columns, fmt.Errorf("missing column %q", aliases[0])
		}
	}
	return columns, nil
}

func readSamples(reader *csv.Reader, columns [columnCount]int) ([]Sample, error) {
	samples := make([]Sample, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}
		sample, err := parseSample(row, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, sample)
	}
	if len(samples) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return samples, nil
}

func parseSample(row []string, columns [columnCount]int) (Sample, error) {
	field := func(col column) string {
		idx := columns[col]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	age, err := parseWhole(field(colAge))
	if err != nil {
		return Sample{}, fmt.Errorf("age: %w", err)
	}
	bmi, err := strconv.ParseFloat(field(colBMI), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("bmi: %w", err)
	}
	children, err := parseWhole(field(colChildren))
	if err != nil {
		return Sample{}, fmt.Errorf("children: %w", err)
	}
	sex, err := ParseSex(field(colSex))
	if err != nil {
		return Sample{}, err
	}
	smoker, err := ParseSmoker(field(colSmoker))
	if err != nil {
		return Sample{}, err
	}
	region, err := ParseRegion(field(colRegion))
	if err != nil {
		return Sample{}, err
	}
	cost, err := strconv.ParseFloat(field(colCost), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("cost: %w", err)
	}

	return Sample{
		Record: InsuredRecord{
			Age:      age,
			BMI:      bmi,
			Children: children,
			Sex:      sex,
			Smoker:   smoker,
			Region:   region,
		},
		Cost: cost,
	}, nil
}

// parseWhole accepts "30" and "30.0" but rejects "30.5".
func parseWhole(value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", value)
	}
	return int(f), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
