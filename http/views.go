package http

import (
	"embed"
	"html/template"
	"io"
	"time"

	"medcost/db"
	"medcost/ml"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// Page 页面
type Page string

const (
	PageIntro   Page = "intro"
	PagePredict Page = "predict"
)

// ParsePage maps the sidebar selection to a page. Anything unknown shows the introduction.
func ParsePage(value string) Page {
	switch value {
	case string(PagePredict), "预测医疗费用":
		return PagePredict
	default:
		return PageIntro
	}
}

// FormValues 表单输入，保留用户原始输入以便回显
type FormValues struct {
	Age      string
	BMI      string
	Children string
	Sex      ml.Sex
	Smoker   ml.Smoker
	Region   ml.Region
}

// DefaultForm 默认表单值
func DefaultForm() FormValues {
	return FormValues{
		Age:      "30",
		BMI:      "22.0",
		Children: "0",
		Sex:      ml.SexMale,
		Smoker:   ml.SmokerYes,
		Region:   ml.RegionSoutheast,
	}
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

func (f FormValues) SexOptions() []Option {
	return options(string(f.Sex), ml.SexMale, ml.SexFemale)
}

func (f FormValues) SmokerOptions() []Option {
	return options(string(f.Smoker), ml.SmokerYes, ml.SmokerNo)
}

func (f FormValues) RegionOptions() []Option {
	return options(string(f.Region), ml.RegionSoutheast, ml.RegionSouthwest, ml.RegionNortheast, ml.RegionNorthwest)
}

type labeled interface {
	~string
	Label() string
}

func options[T labeled](selected string, values ...T) []Option {
	result := make([]Option, len(values))
	for i, v := range values {
		result[i] = Option{Value: string(v), Label: v.Label(), Selected: string(v) == selected}
	}
	return result
}

// ModelInfo 模型元数据
type ModelInfo struct {
	Path         string          `json:"path"`
	Format       string          `json:"format"`
	Version      int             `json:"version"`
	FeatureNames []string        `json:"feature_names"`
	NumTrees     int             `json:"n_estimators"`
	TrainedAt    time.Time       `json:"trained_at"`
	TrainRows    int             `json:"train_rows"`
	TestRows     int             `json:"test_rows"`
	LastRun      *db.TrainingRun `json:"last_run,omitempty"`
}

// View is everything a page render depends on.
type View struct {
	Page      Page
	Form      FormValues
	Submitted bool
	Estimate  *ml.Estimate
	Error     string
	Model     *ModelInfo
}

func (v View) IsPredict() bool { return v.Page == PagePredict }

// Render writes the page for view. It has no inputs besides view.
func Render(w io.Writer, view View) error {
	if view.Page == "" {
		view.Page = PageIntro
	}
	return pageTemplate.Execute(w, view)
}
