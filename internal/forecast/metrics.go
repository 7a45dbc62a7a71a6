package forecast

import "github.com/prometheus/client_golang/prometheus"

// Prometheus forecast metrics.
var (
	forecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxor_forecasts_total",
			Help: "Total number of forecast requests by outcome.",
		},
		[]string{"outcome"}, // generated, cached, error
	)
	forecastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxor_forecast_duration_seconds",
			Help:    "Time spent generating a forecast.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(forecastsTotal)
	prometheus.MustRegister(forecastDuration)
}
