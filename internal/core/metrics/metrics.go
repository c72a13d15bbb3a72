package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the reverse-logistics workflows
var (
	NDREventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndr_events_total",
			Help: "NDR lifecycle events by stage (detected, attempt, classified, resolved, escalated)",
		},
		[]string{"stage"},
	)

	RTOTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rto_triggered_total",
			Help: "RTO events created by trigger type",
		},
		[]string{"trigger"},
	)

	RTORateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rto_rate_limited_total",
			Help: "RTO triggers rejected by the rate limiter",
		},
	)

	DispositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rto_dispositions_total",
			Help: "Executed dispositions by action",
		},
		[]string{"action"},
	)

	ReturnTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "return_order_transitions_total",
			Help: "Return order status transitions by target status",
		},
		[]string{"status"},
	)

	RefundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "return_refunds_total",
			Help: "Refund attempts by outcome (completed, failed, replayed)",
		},
		[]string{"outcome"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Duration of a deadline monitor sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_sweep_actions_total",
			Help: "Deadline monitor actions by kind and result",
		},
		[]string{"action", "result"},
	)

	CollaboratorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_request_duration_seconds",
			Help:    "Duration of outbound collaborator calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host", "outcome"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(NDREventsTotal)
		prometheus.MustRegister(RTOTriggeredTotal)
		prometheus.MustRegister(RTORateLimitedTotal)
		prometheus.MustRegister(DispositionsTotal)
		prometheus.MustRegister(ReturnTransitionsTotal)
		prometheus.MustRegister(RefundsTotal)
		prometheus.MustRegister(SweepDuration)
		prometheus.MustRegister(SweepActionsTotal)
		prometheus.MustRegister(CollaboratorRequestDuration)
	})
}
