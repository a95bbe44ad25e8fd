package paymentgateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentInitiationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payment_initiations_total",
			Help:      "Total payment initiations by provider and outcome.",
		},
		[]string{"provider", "outcome"}, // outcome: "success", "rejected", "upstream_error", "not_configured", "replayed", "in_flight", "error"
	)

	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of HTTP requests to payment providers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)
