// Package metrics exposes Prometheus collectors for the estimator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "estimator"

var (
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "estimates_total",
			Help:      "Total number of estimates by the path that produced them",
		},
		[]string{"path"}, // model, heuristic, cache, similar
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fallbacks_total",
			Help:      "Heuristic fallbacks by reason",
		},
		[]string{"reason"}, // incapable, inactive, inference_error, unexpected_output
	)

	ClassifierLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "loads_total",
			Help:      "Classifier load attempts",
		},
		[]string{"status"},
	)

	ClassifierRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "retries_total",
			Help:      "Classifier calls retried or handed to the fallback model",
		},
		[]string{"outcome"}, // retry, fallback
	)

	EstimatedHours = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "estimated_duration_hours",
			Help:      "Distribution of estimated durations",
			Buckets:   []float64{1, 2, 4, 8, 16, 24, 40, 80, 160},
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of estimate requests by status",
		},
		[]string{"status"},
	)
)
