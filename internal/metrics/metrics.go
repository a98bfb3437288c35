// Package metrics exposes Prometheus instrumentation for a supervised run.
//
// Everything is registered on the default registry and served by
// internal/server when a metrics address is configured. Counters are
// cheap enough to update even when nothing scrapes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WatcherPolls counts output watcher poll iterations.
	WatcherPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrunner_watcher_polls_total",
		Help: "Number of output artifact poll iterations.",
	})

	// WatcherModifications counts detected output artifact modifications.
	WatcherModifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrunner_watcher_modifications_total",
		Help: "Number of detected output artifact modifications.",
	})

	// StatusUpdates counts status posts by status value and delivery result.
	StatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrunner_status_updates_total",
		Help: "Status updates attempted, labelled by status and delivery result.",
	}, []string{"status", "result"})

	// AnalysisTasks counts analysis task executions by task name and result.
	AnalysisTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrunner_analysis_tasks_total",
		Help: "Analysis task executions, labelled by task and result.",
	}, []string{"task", "result"})

	// JobOutcomes counts supervised jobs by final classification.
	JobOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrunner_job_outcomes_total",
		Help: "Supervised job runs, labelled by outcome.",
	}, []string{"outcome"})

	// SolverRunning is 1 while the solver process is running.
	SolverRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scrunner_solver_running",
		Help: "Whether the solver process is currently running.",
	})
)

// Delivery result label values for StatusUpdates.
const (
	ResultOK    = "ok"
	ResultError = "error"
)
