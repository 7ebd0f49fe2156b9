// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// AIGatewayAttempts counts every (provider, outcome) attempt the gateway
	// makes, including the failed ones before a fallback succeeds.
	AIGatewayAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gateway_attempts_total",
			Help: "AI provider invocation attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	AssessmentsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_completed_total",
			Help: "Registration assessments by final status",
		},
		[]string{"status"},
	)

	ChatIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_turn_iterations",
			Help:    "Tool-loop iterations consumed per chat turn",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"tier"},
	)

	// HallucinatedCitations counts stripped source references that pointed at
	// documents never returned by a tool in the turn.
	HallucinatedCitations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_hallucinated_citations_total",
			Help: "Citations removed from replies because no tool result backed them",
		},
	)

	// SuspectedHallucinations counts replies whose factual-claim shape did not
	// match any tool output. Observability only, the reply is not modified.
	SuspectedHallucinations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_suspected_hallucinations_total",
			Help: "Replies flagged by the unsupported-claim heuristic",
		},
	)
)
