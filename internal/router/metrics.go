package router

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/platform/telemetry"
)

var tracer = otel.Tracer(telemetry.TracerName + "/router")

var (
	// turnsTotal counts turns by outcome
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_turns_total",
		Help: "Total turns handled, by outcome",
	}, []string{"outcome"})

	// turnDuration tracks end-to-end turn latency
	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tutor_turn_duration_seconds",
		Help:    "Turn handling duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
	})

	// dispatchFailures counts collaborator failures by collaborator and reason
	dispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_dispatch_failures_total",
		Help: "Collaborator dispatch failures, by collaborator and reason",
	}, []string{"collaborator", "reason"})

	// questCompletions counts committed completions by trigger
	questCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_quest_completions_total",
		Help: "Quest completions committed, by trigger",
	}, []string{"trigger"})

	// revisionCandidates tracks how many revisions a concept entry surfaces
	revisionCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tutor_revision_candidates",
		Help:    "Revision candidates returned when entering a concept",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})
)

// failureReason buckets an error for the dispatch failure metric.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrCollaboratorTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
