package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/browse", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	r.Handle("/metrics", m.Handler())

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/browse?media_content_id=x", nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/browse", "502")); got != 2 {
		t.Fatalf("requests_total{/browse,502} = %v, want 2", got)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "mediapire_gateway_requests_total") {
		t.Fatalf("metrics output missing request counter:\n%s", rr.Body.String())
	}
	if testutil.CollectAndCount(m.RequestsTotal) != 1 {
		t.Fatal("/metrics scrapes must not be counted")
	}
}

func TestObserve_NilSafe(t *testing.T) {
	var m *Metrics

	m.ObserveBackendCall("browse", "ok")
	m.ObserveProxyStream("complete", 10)
	m.ObserveRequest("/ui", 200, 0)
}

func TestObserveProxyStream(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveProxyStream("complete", 100)
	m.ObserveProxyStream("caller_gone", 20)

	if got := testutil.ToFloat64(m.ProxiedBytes); got != 120 {
		t.Fatalf("proxied bytes = %v, want 120", got)
	}
	if got := testutil.ToFloat64(m.ProxyStreams.WithLabelValues("caller_gone")); got != 1 {
		t.Fatalf("caller_gone streams = %v, want 1", got)
	}
}
