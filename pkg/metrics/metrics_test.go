package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectors_Record(t *testing.T) {
	c := New()

	c.ObserveLoad("overview", "ok")
	c.ObserveLoad("overview", "ok")
	c.ObserveLoad("overview", "error")
	c.SetVisibleNodes("overview", 12)
	c.ObserveCounts("overview", "partial", 30*time.Millisecond)

	if got := testutil.ToFloat64(c.loads.WithLabelValues("overview", "ok")); got != 2 {
		t.Errorf("Expected 2 ok loads, got %g", got)
	}
	if got := testutil.ToFloat64(c.visibleNodes.WithLabelValues("overview")); got != 12 {
		t.Errorf("Expected 12 visible nodes, got %g", got)
	}
	if got := testutil.ToFloat64(c.countsFetch.WithLabelValues("overview", "partial")); got != 1 {
		t.Errorf("Expected 1 partial fetch, got %g", got)
	}
}

func TestCollectors_Handler(t *testing.T) {
	c := New()
	c.ObserveTick("reference", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `vertex_graph_engine_tick_duration_seconds_count{view="reference"} 1`) {
		t.Errorf("Expected tick histogram in exposition, got:\n%s", body)
	}
}
