package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePrediction(t *testing.T) {
	m := NewMetrics()
	m.ObservePrediction("form", OutcomeOK, 15*time.Millisecond, 4321.5)
	m.ObservePrediction("form", OutcomeModelNotFound, time.Millisecond, 0)
	m.ObservePrediction("api", OutcomeOK, time.Millisecond, 1000)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("form", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("form", OutcomeModelNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("api", OutcomeOK)))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `medcost_predictions_total{channel="form",outcome="ok"} 1`), body)
	assert.Contains(t, body, "medcost_estimate_value_count 2")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePrediction("form", OutcomeOK, time.Millisecond, 1)
}
