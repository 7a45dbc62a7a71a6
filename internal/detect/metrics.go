package detect

import "github.com/prometheus/client_golang/prometheus"

// Prometheus detection metrics.
var (
	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxor_anomalies_total",
			Help: "Total anomalies detected by domain and severity.",
		},
		[]string{"domain", "severity"},
	)
	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxor_detection_sweep_duration_seconds",
			Help:    "Time spent on a full anomaly detection sweep.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(anomaliesTotal)
	prometheus.MustRegister(sweepDuration)
}
