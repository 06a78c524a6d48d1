package ml

import (
	"fmt"
	"strings"
)

var (
	testSexLabels    = []string{"女性", "男性"}
	testSmokerLabels = []string{"是", "否", "否"}
	testRegionLabels = []string{"东北部", "东南部", "西北部", "西南部"}
)

// syntheticCost is a simple deterministic target that smoking dominates.
func syntheticCost(age int, bmi float64, children int, smoker bool) float64 {
	cost := 1000 + float64(age)*250 + bmi*10 + float64(children)*400
	if smoker {
		cost += 20000
	}
	return cost
}

// syntheticCSV renders n rows with the Chinese header used by the real dataset.
func syntheticCSV(n int) string {
	var b strings.Builder
	b.WriteString("年龄,性别,BMI,子女数量,是否吸烟,区域,医疗费用\n")
	for i := 0; i < n; i++ {
		age := 18 + (i*7)%47
		bmi := 18.5 + float64((i*13)%300)/10
		children := i % 4
		smoker := testSmokerLabels[i%len(testSmokerLabels)]
		cost := syntheticCost(age, bmi, children, smoker == "是")
		fmt.Fprintf(&b, "%d,%s,%.1f,%d,%s,%s,%.4f\n",
			age,
			testSexLabels[i%len(testSexLabels)],
			bmi,
			children,
			smoker,
			testRegionLabels[i%len(testRegionLabels)],
			cost,
		)
	}
	return b.String()
}

func syntheticSamples(n int) []Sample {
	samples, err := ParseDataset([]byte(syntheticCSV(n)), []string{"utf-8"})
	if err != nil {
		panic(err)
	}
	return samples
}
