package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		genItemsTotal,
		genRetriesTotal,
		genCallLatencyMs,
		genJobsTotal,
	)
}

var (
	genItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_items_total",
			Help: "Generated items per model, labeled by outcome.",
		},
		[]string{"model", "outcome"}, // 'ok', 'failed'
	)

	genRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_retries_total",
			Help: "Rate-limit retries performed per model.",
		},
		[]string{"model"},
	)

	genCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_call_latency_ms",
			Help:    "Single generation call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		},
		[]string{"model", "success"},
	)

	genJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_total",
			Help: "Batch generation jobs, labeled by status.",
		},
		[]string{"status"}, // 'finished', 'rejected'
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncGeneratedItem(model string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	genItemsTotal.WithLabelValues(norm(model), outcome).Inc()
}

func IncRetry(model string) {
	genRetriesTotal.WithLabelValues(norm(model)).Inc()
}

func ObserveGenerationCall(model string, latencyMs int, success bool) {
	genCallLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncGenerationJob(status string) {
	genJobsTotal.WithLabelValues(norm(status)).Inc()
}
