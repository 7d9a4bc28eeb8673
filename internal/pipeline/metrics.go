package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "editalscan",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 12),
	}, []string{"stage"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "editalscan",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Stage failures, fatal and non-fatal.",
	}, []string{"stage"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "editalscan",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Completed pipeline runs by outcome.",
	}, []string{"outcome"})
)
