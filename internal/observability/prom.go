package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Jobs (worker)

	JobDuration      *prometheus.HistogramVec
	JobResults       *prometheus.CounterVec
	JobsInFlight     prometheus.Gauge
	JobsDeadLettered prometheus.Counter
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "regworker",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "regworker",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),

		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "regworker",
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Registration job duration by result",
				// pipeline spends most of its time on external APIs
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"result"}, // result=done|failed|malformed
		),
		JobResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "regworker",
				Subsystem: "jobs",
				Name:      "results_total",
				Help:      "Job outcomes by result.",
			},
			[]string{"result"},
		),
		JobsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "regworker",
				Subsystem: "jobs",
				Name:      "in_flight",
				Help:      "Current number of executing jobs (0 or 1 under the single-consumer model)",
			},
		),
		JobsDeadLettered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "regworker",
				Subsystem: "jobs",
				Name:      "dead_lettered_total",
				Help:      "Jobs moved to the failed queue.",
			},
		),
	}
	reg.MustRegister(p.DbQueryDuration, p.DbErrorsTotal, p.JobDuration, p.JobResults, p.JobsInFlight, p.JobsDeadLettered)

	return p
}
