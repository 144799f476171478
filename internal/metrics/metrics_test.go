package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	r := New()
	r.SearchRequestsTotal.WithLabelValues("newsapi", "success").Inc()
	r.MonitorTicksTotal.WithLabelValues("completed").Inc()
	r.TasksRunningGauge.Set(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"newsmonitor_search_requests_total",
		"newsmonitor_monitor_ticks_total",
		"newsmonitor_tasks_running",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
