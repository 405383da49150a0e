package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_sessions_opened_total",
		Help: "Number of support sessions opened",
	})

	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_turns_total",
		Help: "Number of conversation turns processed, by resulting session status",
	}, []string{"status"})

	escalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_escalations_total",
		Help: "Number of turns that ended in an escalation hand-off",
	})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "caseflow_turn_duration_seconds",
		Help:    "End-to-end latency of a conversation turn",
		Buckets: prometheus.DefBuckets,
	})
)
