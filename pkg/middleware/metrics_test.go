package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func getCounterValue(counter prometheus.Counter) float64 {
	var m io_prometheus_client.Metric
	if err := counter.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func newMetricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /djangoapp/dealer/{dealer_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /djangoapp/get_cars", func(w http.ResponseWriter, r *http.Request) {})
	return mux
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	mux := newMetricsMux()
	handler := Metrics(mux)(mux)

	counter := httpRequestsTotal.WithLabelValues("GET /djangoapp/dealer/{dealer_id}", http.MethodGet, "404")
	before := getCounterValue(counter)

	for _, id := range []string{"1", "2", "3"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/djangoapp/dealer/"+id, nil))
	}

	assert.Equal(t, before+3, getCounterValue(counter))
}

func TestMetrics_ImplicitOK(t *testing.T) {
	mux := newMetricsMux()
	handler := Metrics(mux)(mux)

	counter := httpRequestsTotal.WithLabelValues("GET /djangoapp/get_cars", http.MethodGet, "200")
	before := getCounterValue(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/djangoapp/get_cars", nil))

	assert.Equal(t, before+1, getCounterValue(counter))
}

func TestMetrics_UnmatchedPathsShareALabel(t *testing.T) {
	mux := newMetricsMux()
	handler := Metrics(mux)(mux)

	counter := httpRequestsTotal.WithLabelValues(unmatchedRoute, http.MethodGet, "404")
	before := getCounterValue(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/path", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/another/one", nil))

	assert.Equal(t, before+2, getCounterValue(counter))
}

func TestRouteLabel_NilMatcher(t *testing.T) {
	assert.Equal(t, unmatchedRoute, routeLabel(nil, httptest.NewRequest(http.MethodGet, "/", nil)))
}
