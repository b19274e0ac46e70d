package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_scan_outcomes_total",
		Help: "Decoded identifiers processed, labelled by outcome.",
	}, []string{"outcome"})

	sessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_session_transitions_total",
		Help: "Scan session state transitions.",
	}, []string{"transition"})
)
