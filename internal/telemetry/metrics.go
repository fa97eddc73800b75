package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ecoquest"

var (
	// GameMutations counts state mutations of live games by operation and result.
	GameMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "mutations_total",
		Help:      "Number of game state mutations.",
	}, []string{"op", "result"})

	// ExpiredGames counts games removed by the expiry sweep.
	ExpiredGames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "expired_total",
		Help:      "Number of games deleted because their date is too old.",
	})

	GameLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for the per game lock.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "subscribers",
		Help:      "Number of open live game websocket connections.",
	})
)

// Result labels an operation outcome for the counters above.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
