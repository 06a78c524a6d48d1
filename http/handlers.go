package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medcost/db"
	"medcost/ml"
	"medcost/monitoring"
)

const (
	channelForm = "form"
	channelAPI  = "api"
	channelWS   = "ws"
)

// Handler 预测服务处理器
type Handler struct {
	predictor *ml.Predictor
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	lastRun   func(modelPath string) (*db.TrainingRun, error)
	upgrader  websocket.Upgrader
}

type HandlerConfig struct {
	Predictor *ml.Predictor
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
	// LastRun looks up the latest training run; nil when no database is configured.
	LastRun func(modelPath string) (*db.TrainingRun, error)
}

func NewHandler(config HandlerConfig) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		predictor: config.Predictor,
		metrics:   config.Metrics,
		logger:    logger,
		lastRun:   config.LastRun,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func RegisterHandlers(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /predict", h.handlePredictPage)
	mux.HandleFunc("POST /predict", h.handlePredictForm)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("POST /api/predict", h.handlePredictAPI)
	mux.HandleFunc("GET /api/ws/predict", h.handleWSPredict)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := View{Page: ParsePage(r.URL.Query().Get("page")), Form: DefaultForm()}
	if view.Page == PageIntro {
		if info, err := h.modelInfo(); err == nil {
			view.Model = info
		}
	}
	h.render(w, http.StatusOK, view)
}

func (h *Handler) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, View{Page: PagePredict, Form: DefaultForm()})
}

func (h *Handler) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	view := View{Page: PagePredict, Submitted: true}

	form, record, err := parseForm(r)
	view.Form = form
	if err == nil {
		var estimate ml.Estimate
		estimate, err = h.predict(r.Context(), channelForm, record)
		if err == nil {
			view.Estimate = &estimate
			h.render(w, http.StatusOK, view)
			return
		}
	} else {
		h.metrics.ObservePrediction(channelForm, monitoring.OutcomeInvalidInput, 0, 0)
	}

	status, _, message := h.describe(err)
	view.Error = message
	h.render(w, status, view)
}

// predictRequest is the JSON body for the API and websocket channels.
type predictRequest struct {
	Age      *int     `json:"age"`
	BMI      *float64 `json:"bmi"`
	Children *int     `json:"children"`
	Sex      string   `json:"sex"`
	Smoker   string   `json:"smoker"`
	Region   string   `json:"region"`
}

type predictResponse struct {
	Estimate *ml.Estimate `json:"estimate,omitempty"`
	Message  string       `json:"message"`
	Code     string       `json:"code"`
	Error    string       `json:"error,omitempty"`
}

func (req predictRequest) record() (ml.InsuredRecord, error) {
	var missing []string
	if req.Age == nil {
		missing = append(missing, "age")
	}
	if req.BMI == nil {
		missing = append(missing, "bmi")
	}
	if req.Children == nil {
		missing = append(missing, "children")
	}
	if len(missing) > 0 {
		return ml.InsuredRecord{}, fmt.Errorf("%w: missing %s", ml.ErrInvalidRecord, strings.Join(missing, ", "))
	}
	sex, err := ml.ParseSex(req.Sex)
	if err != nil {
		return ml.InsuredRecord{}, err
	}
	smoker, err := ml.ParseSmoker(req.Smoker)
	if err != nil {
		return ml.InsuredRecord{}, err
	}
	region, err := ml.ParseRegion(req.Region)
	if err != nil {
		return ml.InsuredRecord{}, err
	}
	return ml.InsuredRecord{
		Age:      *req.Age,
		BMI:      *req.BMI,
		Children: *req.Children,
		Sex:      sex,
		Smoker:   smoker,
		Region:   region,
	}, nil
}

func (h *Handler) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.ObservePrediction(channelAPI, monitoring.OutcomeInvalidInput, 0, 0)
		writeJSON(w, http.StatusBadRequest, predictResponse{
			Code:    monitoring.OutcomeInvalidInput,
			Message: "请求体不是有效的JSON",
			Error:   err.Error(),
		})
		return
	}
	status, resp := h.respond(r.Context(), channelAPI, req)
	writeJSON(w, status, resp)
}

func (h *Handler) respond(ctx context.Context, channel string, req predictRequest) (int, predictResponse) {
	record, err := req.record()
	if err != nil {
		h.metrics.ObservePrediction(channel, monitoring.OutcomeInvalidInput, 0, 0)
		status, code, message := h.describe(err)
		return status, predictResponse{Code: code, Message: message, Error: err.Error()}
	}
	estimate, err := h.predict(ctx, channel, record)
	if err != nil {
		status, code, message := h.describe(err)
		return status, predictResponse{Code: code, Message: message, Error: err.Error()}
	}
	return http.StatusOK, predictResponse{
		Estimate: &estimate,
		Code:     monitoring.OutcomeOK,
		Message:  fmt.Sprintf("根据您输入的数据，该客户的医疗费用预测为：%s 元", estimate.Display),
	}
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	info, err := h.modelInfo()
	if err != nil {
		status, code, message := h.describe(err)
		writeJSON(w, status, predictResponse{Code: code, Message: message, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) modelInfo() (*ModelInfo, error) {
	model, err := h.predictor.Model()
	if err != nil {
		return nil, err
	}
	info := &ModelInfo{
		Path:         h.predictor.ModelPath(),
		Format:       model.Format,
		Version:      model.Version,
		FeatureNames: model.FeatureNames,
		NumTrees:     len(model.Forest.Trees),
		TrainedAt:    model.TrainedAt,
		TrainRows:    model.TrainRows,
		TestRows:     model.TestRows,
	}
	if h.lastRun != nil {
		if run, err := h.lastRun(h.predictor.ModelPath()); err == nil {
			info.LastRun = run
		} else if !errors.Is(err, db.ErrNoTrainingRuns) {
			h.logger.Warn("training log lookup failed", zap.Error(err))
		}
	}
	return info, nil
}

// predict runs one submission through the predictor and records the outcome.
func (h *Handler) predict(ctx context.Context, channel string, record ml.InsuredRecord) (ml.Estimate, error) {
	start := time.Now()
	estimate, err := h.predictor.Predict(ctx, record)
	elapsed := time.Since(start)

	_, outcome, _ := h.describe(err)
	h.metrics.ObservePrediction(channel, outcome, elapsed, estimate.Value)
	if err != nil {
		h.logger.Warn("prediction failed",
			zap.String("channel", channel),
			zap.String("outcome", outcome),
			zap.String("request_id", GetRequestID(ctx)),
			zap.Error(err),
		)
		return ml.Estimate{}, err
	}
	h.logger.Info("prediction",
		zap.String("channel", channel),
		zap.String("request_id", GetRequestID(ctx)),
		zap.String("estimate", estimate.Display),
		zap.Duration("elapsed", elapsed),
	)
	return estimate, nil
}

// describe maps an error to a status code, outcome label and user-facing message.
func (h *Handler) describe(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusOK, monitoring.OutcomeOK, ""
	case errors.Is(err, ml.ErrInvalidRecord), errors.Is(err, ml.ErrUnknownCategory):
		return http.StatusUnprocessableEntity, monitoring.OutcomeInvalidInput, "输入有误：" + err.Error()
	case errors.Is(err, ml.ErrModelNotFound):
		return http.StatusServiceUnavailable, monitoring.OutcomeModelNotFound,
			fmt.Sprintf("错误：未找到模型文件 '%s'，请先运行训练程序生成模型文件", h.predictor.ModelPath())
	default:
		return http.StatusInternalServerError, monitoring.OutcomeError, "预测过程出错：" + err.Error()
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, view View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := Render(w, view); err != nil {
		h.logger.Error("render failed", zap.Error(err))
	}
}

func parseForm(r *http.Request) (FormValues, ml.InsuredRecord, error) {
	if err := r.ParseForm(); err != nil {
		return DefaultForm(), ml.InsuredRecord{}, fmt.Errorf("%w: %v", ml.ErrInvalidRecord, err)
	}
	form := FormValues{
		Age:      strings.TrimSpace(r.PostForm.Get("age")),
		BMI:      strings.TrimSpace(r.PostForm.Get("bmi")),
		Children: strings.TrimSpace(r.PostForm.Get("children")),
		Sex:      ml.Sex(r.PostForm.Get("sex")),
		Smoker:   ml.Smoker(r.PostForm.Get("smoker")),
		Region:   ml.Region(r.PostForm.Get("region")),
	}

	age, err := strconv.Atoi(form.Age)
	if err != nil {
		return form, ml.InsuredRecord{}, fmt.Errorf("%w: 年龄 %q 不是整数", ml.ErrInvalidRecord, form.Age)
	}
	bmi, err := strconv.ParseFloat(form.BMI, 64)
	if err != nil {
		return form, ml.InsuredRecord{}, fmt.Errorf("%w: BMI %q 不是数字", ml.ErrInvalidRecord, form.BMI)
	}
	children, err := strconv.Atoi(form.Children)
	if err != nil {
		return form, ml.InsuredRecord{}, fmt.Errorf("%w: 子女数量 %q 不是整数", ml.ErrInvalidRecord, form.Children)
	}
	sex, err := ml.ParseSex(string(form.Sex))
	if err != nil {
		return form, ml.InsuredRecord{}, err
	}
	smoker, err := ml.ParseSmoker(string(form.Smoker))
	if err != nil {
		return form, ml.InsuredRecord{}, err
	}
	region, err := ml.ParseRegion(string(form.Region))
	if err != nil {
		return form, ml.InsuredRecord{}, err
	}
	form.Sex, form.Smoker, form.Region = sex, smoker, region

	return form, ml.InsuredRecord{
		Age:      age,
		BMI:      bmi,
		Children: children,
		Sex:      sex,
		Smoker:   smoker,
		Region:   region,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
