// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SkillInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_invocations_total",
			Help: "Total number of skill function invocations",
		},
		[]string{"function"},
	)

	SkillInvocationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_invocation_failures_total",
			Help: "Total number of skill function invocations marked failed",
		},
		[]string{"function", "error_code"},
	)

	SkillInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "skill_invocation_duration_seconds",
			Help: "Duration of skill function invocations in seconds",
		},
		[]string{"function"},
	)

	SkillInvocationsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skill_invocations_active",
			Help: "Number of in-flight invocations per function",
		},
		[]string{"function"},
	)

	MemorySeedAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_memory_seed_attempts_total",
			Help: "Seed record writes attempted against the memory store",
		},
		[]string{"outcome"},
	)
)
