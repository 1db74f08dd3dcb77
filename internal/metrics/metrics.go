package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loggedin_events_processed_total",
			Help: "Total number of authentication events analyzed",
		},
	)

	MalformedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loggedin_malformed_records_total",
			Help: "Total number of input lines rejected as malformed",
		},
	)

	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loggedin_alerts_generated_total",
			Help: "Total number of alerts emitted by the classifier",
		},
		[]string{"kind"}, // brute_force, suspicious_account, unusual_hours, multi_host_login
	)

	ReportsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loggedin_reports_generated_total",
			Help: "Total number of reports assembled",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loggedin_notifications_sent_total",
			Help: "Alert deliveries per sink and outcome",
		},
		[]string{"sink", "status"}, // status: ok, error
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loggedin_analysis_duration_seconds",
			Help:    "Time spent aggregating and classifying one batch",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordAlerts counts alerts by kind.
func RecordAlerts[K ~string](kinds ...K) {
	for _, k := range kinds {
		AlertsGenerated.WithLabelValues(string(k)).Inc()
	}
}
