package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequestLabels(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("probe", "error"))
	ObserveRequest("probe", 0, time.Millisecond)
	ObserveRequest("probe", 404, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(requestsTotal.WithLabelValues("probe", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(requestsTotal.WithLabelValues("probe", "404")))
}

func TestUploadCounters(t *testing.T) {
	ObserveUpload("malformed")
	ObserveBatch("partial")
	assert.GreaterOrEqual(t, testutil.ToFloat64(uploadOutcomes.WithLabelValues("malformed")), float64(1))
	assert.GreaterOrEqual(t, testutil.ToFloat64(batchesTotal.WithLabelValues("partial")), float64(1))
}

func TestHandlerExposesInstruments(t *testing.T) {
	ObserveUpload("success")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vaultctl_upload_outcomes_total")
}
