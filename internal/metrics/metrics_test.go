package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/casesync/internal/core"
)

func TestObserver(t *testing.T) {
	m := New()
	var _ core.Observer = m

	m.RowProcessed(true, 10*time.Millisecond)
	m.RowProcessed(true, 10*time.Millisecond)
	m.RowProcessed(false, 10*time.Millisecond)
	m.RowsDropped(4)
	m.RunFinished(core.RunCompleted, time.Second)

	if got := testutil.ToFloat64(m.rowsProcessed.WithLabelValues("success")); got != 2 {
		t.Errorf("success rows = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rowsProcessed.WithLabelValues("error")); got != 1 {
		t.Errorf("error rows = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rowsDropped); got != 4 {
		t.Errorf("dropped rows = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed runs = %v, want 1", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Post("/api/files/{fileID}/process", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/api/files/"+id+"/process", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/files/{fileID}/process", "202"))
	if got != 2 {
		t.Errorf("requests for route = %v, want 2", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.TrackLimiter(core.NewProcessLimiter(4, time.Second))
	m.RowsDropped(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"casesync_rows_dropped_total 1", "casesync_runs_max_concurrent 4", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
