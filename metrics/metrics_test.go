package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/taskhub-server/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordLogin(t *testing.T) {
	before := testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues(metrics.LoginSuccess))
	metrics.RecordLogin(metrics.LoginSuccess)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues(metrics.LoginSuccess)))
}

func TestRecordEvictionsIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(metrics.SessionsEvictedTotal)
	metrics.RecordEvictions(0)
	metrics.RecordEvictions(2)
	require.Equal(t, before+2, testutil.ToFloat64(metrics.SessionsEvictedTotal))
}

func TestHandlerExposesMetrics(t *testing.T) {
	metrics.RecordAuthFailure("NO_SESSION")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `taskhub_auth_failures_total{code="NO_SESSION"}`)
}
