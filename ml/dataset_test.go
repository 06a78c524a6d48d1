package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const chineseDataset = "年龄,性别,BMI,子女数量,是否吸烟,区域,医疗费用\n" +
	"19,女性,27.9,0,是,西南部,16884.924\n" +
	"18,男性,33.77,1,否,东南部,1725.5523\n"

func TestLoadDatasetGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(chineseDataset)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "insurance-chinese.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

	samples, err := LoadDataset(path, nil)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, InsuredRecord{Age: 19, BMI: 27.9, Children: 0, Sex: SexFemale, Smoker: SmokerYes, Region: RegionSouthwest}, samples[0].Record)
	assert.Equal(t, 16884.924, samples[0].Cost)
	assert.Equal(t, InsuredRecord{Age: 18, BMI: 33.77, Children: 1, Sex: SexMale, Smoker: SmokerNo, Region: RegionSoutheast}, samples[1].Record)
}

func TestLoadDatasetFallsBackToUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insurance-chinese.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbf"+chineseDataset), 0o644))

	samples, err := LoadDataset(path, nil)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, RegionSouthwest, samples[0].Record.Region)
}

func TestParseDatasetEnglishHeader(t *testing.T) {
	payload := "age,sex,bmi,children,smoker,region,charges\n" +
		"30,male,22.0,0,no,southwest,4000.5\n" +
		"\n" +
		"45.0,female,30.1,2,yes,northeast,23000\n"

	samples, err := ParseDataset([]byte(payload), []string{"utf-8"})
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 45, samples[1].Record.Age)
}

func TestParseDatasetNoEncodingMatches(t *testing.T) {
	_, err := ParseDataset([]byte("foo,bar\n1,2\n"), nil)
	assert.ErrorIs(t, err, ErrDatasetEncoding)
	assert.Contains(t, err.Error(), "gbk")
	assert.Contains(t, err.Error(), "utf-8")
}

func TestParseDatasetUnknownEncodingName(t *testing.T) {
	_, err := ParseDataset([]byte(chineseDataset), []string{"klingon"})
	assert.ErrorIs(t, err, ErrDatasetEncoding)
}

func TestParseDatasetRowErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		is   error
	}{
		{name: "unknown sex", row: "30,other,22.0,0,no,southwest,100\n", is: ErrUnknownCategory},
		{name: "unknown region", row: "30,male,22.0,0,no,central,100\n", is: ErrUnknownCategory},
		{name: "fractional age", row: "30.5,male,22.0,0,no,southwest,100\n"},
		{name: "bad cost", row: "30,male,22.0,0,no,southwest,n/a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := "age,sex,bmi,children,smoker,region,charges\n" + tt.row
			_, err := ParseDataset([]byte(payload), []string{"utf-8"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.csv"), nil)
	assert.Error(t, err)
}
