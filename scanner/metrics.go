package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var scansStarted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_scans_started",
	Help: "Number of scan passes started",
})

var triggersCoalesced = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_scan_triggers_coalesced",
	Help: "Number of scan triggers dropped because a pass was pending or running",
})

var handlesScored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_handles_scored",
	Help: "Number of handles scored and presented",
})

var cohortAnalyses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_cohort_analyses",
	Help: "Number of cohort analyses completed",
})

var cohortSkips = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_cohort_skips",
	Help: "Number of cohort analyses skipped by the re-analysis interval",
})
