package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsExposition(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncRequest(http.MethodPost, "/positions/{positionID}/close", http.StatusOK)
	m.ObserveClose("closed", 120*time.Millisecond)
	m.ObserveClose("already_closed", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`election_http_requests_total{method="POST",path="/positions/{positionID}/close",status="200"} 1`,
		`election_position_close_total{outcome="closed"} 1`,
		`election_position_close_total{outcome="already_closed"} 1`,
		`election_position_close_duration_seconds_count 2`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, text)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncRequest(http.MethodGet, "/", http.StatusOK)
	m.ObserveClose("closed", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	New(nil)
	New(nil)
}
