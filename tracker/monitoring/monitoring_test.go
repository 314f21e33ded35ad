package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSensorMetrics_Exposition(t *testing.T) {
	t.Parallel()

	m := NewSensorMetrics()
	m.Evaluations.Inc()
	m.Emissions.Add(2)
	m.Renders.Inc()
	m.RenderFailures.Inc()
	m.LastEvaluation.SetToCurrentTime()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"sensor_evaluations_total 1",
		"sensor_emissions_total 2",
		"sensor_renders_total 1",
		"sensor_render_failures_total 1",
		"sensor_last_evaluation_timestamp_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestSensorMetrics_IndependentRegistries(t *testing.T) {
	t.Parallel()

	// Two instances must not collide on registration.
	_ = NewSensorMetrics()
	_ = NewSensorMetrics()
}

func TestHealthChecker_Transitions(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(time.Hour)

	get := func() (int, string) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		return rec.Code, rec.Body.String()
	}

	// No evaluation yet: healthy (the loop just started).
	if code, _ := get(); code != http.StatusOK {
		t.Fatalf("startup status=%d", code)
	}

	h.ObserveEvaluation(nil)
	if code, body := get(); code != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("healthy status=%d body=%s", code, body)
	}

	h.ObserveEvaluation(errors.New("scan failed"))
	if code, body := get(); code != http.StatusServiceUnavailable || !strings.Contains(body, "scan failed") {
		t.Fatalf("failing status=%d body=%s", code, body)
	}

	h.ObserveEvaluation(nil)
	if code, _ := get(); code != http.StatusOK {
		t.Fatalf("recovered status=%d", code)
	}
}

func TestHealthChecker_Staleness(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(time.Millisecond)
	h.ObserveEvaluation(nil)
	time.Sleep(5 * time.Millisecond)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("stale status=%d", rec.Code)
	}
}
