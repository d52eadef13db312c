package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nasermirzaei89/gazette/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	handler := metrics.Middleware(mux)

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /items/{id}", "202"))
	unmatchedBefore := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.InDelta(t, before+1, testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /items/{id}", "202")), 0)
	assert.InDelta(t, unmatchedBefore+1, testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.HTTPRequestsInFlight), 0)
}

func TestResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t, metrics.ResultOK, metrics.Result(nil))
	assert.Equal(t, metrics.ResultError, metrics.Result(errors.New("boom")))
}
