// Package metrics holds the Prometheus collectors of the gateway.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mediapire_gateway"

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BackendCalls    *prometheus.CounterVec
	ProxiedBytes    prometheus.Counter
	ProxyStreams    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all collectors with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"route", "code"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time until the handler returned, including streamed bodies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		BackendCalls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_calls_total",
				Help:      "Calls made to the media source backend",
			},
			[]string{"call", "outcome"},
		),
		ProxiedBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxied_bytes_total",
				Help:      "Bytes relayed from media origins to callers",
			},
		),
		ProxyStreams: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxy_streams_total",
				Help:      "Proxy streams by how they ended",
			},
			[]string{"result"},
		),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveBackendCall(call, outcome string) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(call, outcome).Inc()
}

func (m *Metrics) ObserveProxyStream(result string, bytes int64) {
	if m == nil {
		return
	}
	m.ProxyStreams.WithLabelValues(result).Inc()
	m.ProxiedBytes.Add(float64(bytes))
}

func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler exposes the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
