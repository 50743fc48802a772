package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sagasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_executions_total",
		Help: "Total number of saga executions by outcome.",
	}, []string{"outcome"})

	sagaDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "saga_execution_duration_seconds",
		Help:    "End-to-end saga execution duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	stepFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_step_failures_total",
		Help: "Total number of failed saga steps by step name.",
	}, []string{"step"})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_compensations_total",
		Help: "Total number of compensating actions by step name and result.",
	}, []string{"step", "result"})
)
