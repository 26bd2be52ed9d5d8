package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "custody",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "REST requests by route and status code.",
	}, []string{"route", "code"})

	submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "custody",
		Name:      "submissions_total",
		Help:      "Transaction submissions accepted by the node, by kind.",
	}, []string{"kind"})

	confirmationWaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "custody",
		Name:      "confirmation_wait_seconds",
		Help:      "Time spent waiting for transaction confirmation.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, submissionsTotal, confirmationWaitSeconds)
}

func observeRequest(route string, status int) {
	requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func countSubmission(kind string) {
	submissionsTotal.WithLabelValues(kind).Inc()
}

func observeConfirmationWait(d time.Duration) {
	confirmationWaitSeconds.Observe(d.Seconds())
}
