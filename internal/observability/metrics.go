package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meco"

var (
	registerOnce sync.Once

	tokenOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_ops_total",
			Help:      "Token calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	lockEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lock_entries",
			Help:      "Lock entries held across all holders at the last block.",
		},
	)
	blockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_height",
			Help:      "Height of the last produced block.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(tokenOps, lockEntries, blockHeight, httpRequests, httpDuration)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

// RecordTokenOp counts one call. code is the error taxonomy name of err, if
// any; errors without one count as "error".
func RecordTokenOp(op, code string, err error) {
	RegisterMetrics()
	outcome := "success"
	if err != nil {
		outcome = code
		if outcome == "" {
			outcome = "error"
		}
	}
	tokenOps.WithLabelValues(op, outcome).Inc()
}

func SetLockEntries(n int) {
	RegisterMetrics()
	lockEntries.Set(float64(n))
}

func SetBlockHeight(h uint64) {
	RegisterMetrics()
	blockHeight.Set(float64(h))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
