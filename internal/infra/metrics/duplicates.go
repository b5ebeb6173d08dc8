package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(dupMarkedTotal, dupResolvedTotal, dupGroupsDetected)
}

var (
	dupMarkedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicates_marked_total",
			Help: "Items flagged as duplicates by the reconciliation routine.",
		},
	)

	dupResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicates_resolved_total",
			Help: "Duplicate members resolved, labeled by action.",
		},
		[]string{"action"}, // 'rewrite', 'delete'
	)

	dupGroupsDetected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "duplicate_groups_detected",
			Help: "Duplicate groups found by the most recent scan.",
		},
	)
)

func AddDuplicatesMarked(n int) {
	if n > 0 {
		dupMarkedTotal.Add(float64(n))
	}
}

func IncDuplicateResolved(action string) {
	dupResolvedTotal.WithLabelValues(norm(action)).Inc()
}

func SetDuplicateGroups(n int) {
	dupGroupsDetected.Set(float64(n))
}
