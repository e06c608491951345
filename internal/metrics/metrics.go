package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksEnqueued tracks tasks accepted into the retry queue per type
	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_tasks_enqueued_total",
			Help: "Total number of tasks enqueued",
		},
		[]string{"task_type"},
	)

	// TasksProcessed tracks handler invocations per type and outcome
	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_tasks_processed_total",
			Help: "Total number of task executions by result",
		},
		[]string{"task_type", "result"},
	)

	// TasksUnroutable tracks claimed tasks with no registered handler
	TasksUnroutable = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_tasks_unroutable_total",
			Help: "Total number of tasks claimed without a registered handler",
		},
		[]string{"task_type"},
	)

	// QueueDepth tracks the size of each task population
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_queue_depth",
			Help: "Number of tasks per queue set",
		},
		[]string{"set"},
	)

	// HandlerDuration tracks handler execution latency
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_handler_duration_seconds",
			Help:    "Handler execution time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	// CircuitState tracks breaker state (0=closed, 1=open, 2=half_open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_circuit_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
		},
		[]string{"circuit"},
	)

	// CircuitTransitions tracks breaker state changes
	CircuitTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_circuit_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"circuit", "to"},
	)

	// CircuitRejected tracks fail-fast rejections while open
	CircuitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_circuit_rejected_total",
			Help: "Total number of calls rejected by an open circuit",
		},
		[]string{"circuit"},
	)
)
