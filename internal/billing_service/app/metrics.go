package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	projectionsComputedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "projections_computed_total",
			Help:      "Total billing projections computed.",
		},
		[]string{"plan", "status"}, // status: "success", "error"
	)

	usageMeasurementDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "usage_measurement_duration_seconds",
			Help:      "Duration of the concurrent usage sub-queries.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	paymentCallbacksCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payment_callbacks_total",
			Help:      "Total payment provider callbacks handled.",
		},
		[]string{"provider", "status"}, // status: callback status, "ignored" or "error"
	)
)
