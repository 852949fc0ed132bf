package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// recordingCollector はMetricsCollectorのモック。
type recordingCollector struct {
	statuses  []int
	latencies []time.Duration
}

func (r *recordingCollector) RecordLogin()        {}
func (r *recordingCollector) RecordStoryCreated() {}
func (r *recordingCollector) RecordStoryUpdated() {}
func (r *recordingCollector) RecordStoryDeleted() {}
func (r *recordingCollector) RecordHTTPStatus(statusCode int) {
	r.statuses = append(r.statuses, statusCode)
}
func (r *recordingCollector) RecordRequestLatency(duration time.Duration) {
	r.latencies = append(r.latencies, duration)
}

var _ MetricsCollector = (*recordingCollector)(nil)

func TestNewHTTPMiddleware_RecordsStatusAndLatency(t *testing.T) {
	collector := &recordingCollector{}
	mw := NewHTTPMiddleware(collector)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/stories", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(collector.statuses) != 1 || collector.statuses[0] != http.StatusCreated {
		t.Errorf("statuses = %v, want [201]", collector.statuses)
	}
	if len(collector.latencies) != 1 {
		t.Errorf("latencies recorded = %d, want 1", len(collector.latencies))
	}
}

func TestNewHTTPMiddleware_DefaultsTo200WhenBodyWrittenFirst(t *testing.T) {
	collector := &recordingCollector{}
	mw := NewHTTPMiddleware(collector)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WriteHeaderを呼ばずにボディを書き込む
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(collector.statuses) != 1 || collector.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", collector.statuses)
	}
}

func TestStatusWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	sw.WriteHeader(http.StatusInternalServerError)

	if sw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", sw.statusCode)
	}
}
