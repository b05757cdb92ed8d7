package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/picpipe/json"
)

func TestCounterAndGauge(t *testing.T) {
	c := NewCollector()
	labels := map[string]string{"format": "jpeg"}

	c.IncCounter("jobs_total", labels)
	c.AddCounter("jobs_total", 2, labels)
	c.IncCounter("jobs_total", map[string]string{"format": "png"})
	c.SetGauge("queue_depth", 4, nil)
	c.SetGauge("queue_depth", 1, nil)

	assert.Equal(t, float64(3), c.GetMetric("jobs_total", labels).Value)
	assert.Equal(t, float64(4), c.Total("jobs_total"))
	assert.Equal(t, float64(1), c.GetMetric("queue_depth", nil).Value)
	assert.Nil(t, c.GetMetric("missing", nil))
}

func TestHistogramKeepsBoundedHistory(t *testing.T) {
	c := NewCollector()
	for i := 0; i < historyLimit+20; i++ {
		c.ObserveHistogram("took", float64(i), nil)
	}
	m := c.GetMetrics()["took"]
	assert.Len(t, m.History, historyLimit)
	assert.Equal(t, float64(historyLimit+19), m.Value)
	assert.Equal(t, float64(20), m.History[0])
	assert.InDelta(t, 69.5, m.Mean(), 0.001)
}

func TestBuildKeyIsOrderIndependent(t *testing.T) {
	a := BuildKey("m", map[string]string{"a": "1", "b": "2"})
	b := BuildKey("m", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
	assert.Equal(t, "m:a=1:b=2", a)
	assert.Equal(t, "m", BuildKey("m", nil))
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.IncCounter("x", nil)
	c.Reset()
	assert.Empty(t, c.GetMetrics())
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	c := NewCollector()
	h := Middleware(c, func(*http.Request) string { return "/v1/images/{op}" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/images/resize", nil))

	m := c.GetMetric("http_requests_total", map[string]string{
		"method": http.MethodPost, "route": "/v1/images/{op}", "status": "418",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(1), m.Value)
	assert.NotNil(t, c.GetMetric("http_request_duration_seconds", map[string]string{"route": "/v1/images/{op}"}))
}

func TestMiddlewareFallsBackToPath(t *testing.T) {
	c := NewCollector()
	h := Middleware(c, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotNil(t, c.GetMetric("http_requests_total", map[string]string{
		"method": http.MethodGet, "route": "/healthz", "status": "200",
	}))
}

func TestHandlerServesJSON(t *testing.T) {
	c := NewCollector()
	c.IncCounter("uploads_total", map[string]string{"provider": "local"})

	rec := httptest.NewRecorder()
	Handler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]Metric
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(1), got["uploads_total:provider=local"].Value)
}
