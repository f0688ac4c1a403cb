package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "gridsolph_"

	ResultSuccess    = "success"
	ResultError      = "error"
	ResultInfeasible = "infeasible"
	ResultUnbounded  = "unbounded"
)

var (
	registerOnce sync.Once

	solveTotal   *prometheus.CounterVec
	solveLatency *prometheus.HistogramVec

	buildVariables   prometheus.Histogram
	buildConstraints prometheus.Histogram

	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
)

// Init registers the metrics with the default registry. Observations made
// before Init are dropped.
func Init() {
	registerOnce.Do(func() {
		solveTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "solve_total",
				Help: "Total solves by solver and result",
			},
			[]string{"solver", "result"},
		)
		solveLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "solve_latency_seconds",
				Help:    "Solve latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"solver", "result"},
		)

		buildVariables = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "build_variables",
				Help:    "Number of variables per built problem",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
		)
		buildConstraints = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "build_constraints",
				Help:    "Number of constraints per built problem",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
		)

		requestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		)
		requestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)

		prometheus.MustRegister(
			solveTotal,
			solveLatency,
			buildVariables,
			buildConstraints,
			requestTotal,
			requestLatency,
		)
	})
}

// ObserveSolve records a solve duration and result.
func ObserveSolve(solver, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if solveTotal != nil {
		solveTotal.WithLabelValues(solver, result).Inc()
	}
	if solveLatency != nil {
		solveLatency.WithLabelValues(solver, result).Observe(duration.Seconds())
	}
}

// ObserveBuild records the size of a built problem.
func ObserveBuild(variables, constraints int) {
	if buildVariables != nil {
		buildVariables.Observe(float64(variables))
	}
	if buildConstraints != nil {
		buildConstraints.Observe(float64(constraints))
	}
}

// ObserveRequest records an HTTP request.
func ObserveRequest(route, code string, duration time.Duration) {
	if requestTotal != nil {
		requestTotal.WithLabelValues(route, code).Inc()
	}
	if requestLatency != nil {
		requestLatency.WithLabelValues(route).Observe(duration.Seconds())
	}
}
