package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionGauge(t *testing.T) {
	SessionStarted("SRT")
	if got := testutil.ToFloat64(sessionActive); got != 1 {
		t.Errorf("active = %v after start, want 1", got)
	}

	SessionStopped("stop")
	if got := testutil.ToFloat64(sessionActive); got != 0 {
		t.Errorf("active = %v after stop, want 0", got)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(startFailures.WithLabelValues(FailureValidation))
	StartFailed(FailureValidation)
	if got := testutil.ToFloat64(startFailures.WithLabelValues(FailureValidation)); got != before+1 {
		t.Errorf("validation failures = %v, want %v", got, before+1)
	}

	beforeOK := testutil.ToFloat64(viewerLaunches.WithLabelValues("ok"))
	ViewerLaunched(true)
	if got := testutil.ToFloat64(viewerLaunches.WithLabelValues("ok")); got != beforeOK+1 {
		t.Errorf("viewer ok launches = %v, want %v", got, beforeOK+1)
	}
}

func TestHandlerExposesSessionMetrics(t *testing.T) {
	SessionStarted("RTMP")
	TerminationFailed()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{
		`filecast_session_started_total{protocol="RTMP"}`,
		"filecast_session_termination_errors_total",
		"filecast_session_active",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
