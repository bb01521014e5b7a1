// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GradesSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_grades_submitted_total",
			Help: "Total number of project grades submitted or replaced",
		},
		[]string{"final_grade"},
	)

	GradePercentageHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "project_grade_percentage",
			Help:    "Distribution of project grade percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"final_grade"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
