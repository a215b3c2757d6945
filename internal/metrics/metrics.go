// metrics — prometheus-метрики HTTP-слоя и событий аутентификации.
// Все методы безопасны для nil-получателя, чтобы метрики можно было не подключать.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты событий аутентификации.
const (
	ResultOK        = "ok"
	ResultRejected  = "rejected"
	ResultForbidden = "forbidden"
	ResultError     = "error"
)

type Metrics struct {
	requests   *prometheus.HistogramVec
	authEvents *prometheus.CounterVec
}

// New создаёт и регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "music_catalog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "music_catalog",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication events by operation and result.",
		}, []string{"op", "result"}),
	}

	reg.MustRegister(m.requests, m.authEvents)

	return m
}

// ObserveRequest фиксирует длительность обработки запроса.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// AuthEvent увеличивает счётчик события op (login, register, refresh, authorize) с результатом result.
func (m *Metrics) AuthEvent(op, result string) {
	if m == nil {
		return
	}

	m.authEvents.WithLabelValues(op, result).Inc()
}
