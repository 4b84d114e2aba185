// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

// Package metrics defines the engine's Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// InterventionsCreated counts interventions created by the scheduler,
	// labeled by tenant.
	InterventionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_interventions_created_total",
			Help: "Total number of interventions created",
		},
		[]string{"tenant_id"},
	)

	// InterventionsSent counts interventions successfully dispatched,
	// labeled by tenant and channel.
	InterventionsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_interventions_sent_total",
			Help: "Total number of interventions dispatched to a provider",
		},
		[]string{"tenant_id", "channel"},
	)

	// DispatchFailures counts failed dispatch attempts by channel.
	DispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_dispatch_failures_total",
			Help: "Total number of failed dispatch attempts",
		},
		[]string{"channel"},
	)

	// WebhookEvents counts provider delivery callbacks by provider and
	// normalized event type.
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_webhook_events_total",
			Help: "Total number of provider webhook events received",
		},
		[]string{"provider", "type"},
	)

	// SchedulerRuns counts scheduler passes per tenant.
	SchedulerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_scheduler_runs_total",
			Help: "Total number of scheduler passes",
		},
		[]string{"tenant_id"},
	)
)

// Register adds all engine collectors to the registry.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		InterventionsCreated,
		InterventionsSent,
		DispatchFailures,
		WebhookEvents,
		SchedulerRuns,
	)
}
