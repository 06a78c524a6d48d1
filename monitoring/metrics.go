package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction outcomes used as the "outcome" label.
const (
	OutcomeOK            = "ok"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeModelNotFound = "model_not_found"
	OutcomeError         = "error"
)

// Metrics 预测服务指标
type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	estimates   prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcost",
			Name:      "predictions_total",
			Help:      "Prediction requests by channel and outcome.",
		}, []string{"channel", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medcost",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent loading the model and predicting.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		estimates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medcost",
			Name:      "estimate_value",
			Help:      "Distribution of predicted medical costs.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 8),
		}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.latency,
		m.estimates,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePrediction records one prediction attempt. value is ignored unless outcome is ok.
func (m *Metrics) ObservePrediction(channel, outcome string, elapsed time.Duration, value float64) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(channel, outcome).Inc()
	m.latency.WithLabelValues(channel).Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		m.estimates.Observe(value)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
