package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// catalogLookupsTotal counts knowledge-base lookups by target and result.
	// Labels: target (model, manufacturer), result (hit, miss, unavailable, error)
	catalogLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "incidentdesk",
		Subsystem: "catalog",
		Name:      "lookups_total",
		Help:      "Knowledge-base lookups by target and result",
	}, []string{"target", "result"})

	catalogRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "incidentdesk",
		Subsystem: "catalog",
		Name:      "timeouts_total",
		Help:      "Knowledge-base search attempts that timed out",
	}, []string{"target"})

	confirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "incidentdesk",
		Subsystem: "slots",
		Name:      "confirmations_total",
		Help:      "Fields routed to the confirmation queue",
	}, []string{"field"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "incidentdesk",
		Subsystem: "slots",
		Name:      "rejections_total",
		Help:      "Extracted values rejected by a validator",
	}, []string{"field"})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "incidentdesk",
		Subsystem: "report",
		Name:      "submissions_total",
		Help:      "Closed conversations by outcome (submitted, failed, declined)",
	}, []string{"outcome"})

	ticketLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "incidentdesk",
		Subsystem: "ticket",
		Name:      "latency_seconds",
		Help:      "Ticketing endpoint round-trip latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

func RecordLookup(target, result string) {
	catalogLookupsTotal.WithLabelValues(target, result).Inc()
}

func RecordLookupTimeout(target string) {
	catalogRetriesTotal.WithLabelValues(target).Inc()
}

func RecordConfirmation(field string) {
	confirmationsTotal.WithLabelValues(field).Inc()
}

func RecordRejection(field string) {
	rejectionsTotal.WithLabelValues(field).Inc()
}

func RecordSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTicketLatency records the duration of one ticketing request in seconds.
func ObserveTicketLatency(seconds float64) {
	ticketLatencySeconds.Observe(seconds)
}
