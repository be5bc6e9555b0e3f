package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Unlock attempts by outcome: granted, already_granted, suppressed, insufficient_balance, error
	UnlockTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talent_unlock_total",
		Help: "Unlock requests by outcome",
	}, []string{"outcome"})

	LedgerEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talent_ledger_entries_total",
		Help: "Ledger entries written by entry type and reason",
	}, []string{"entry_type", "reason"})

	TopKGenerateSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "talent_topk_generate_seconds",
		Help:    "Latency of top-K generation runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"direction"})

	SuppressionChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talent_suppression_checks_total",
		Help: "Suppression point lookups by result",
	}, []string{"result"})

	PipelineTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talent_pipeline_transitions_total",
		Help: "Pipeline stage changes by target stage",
	}, []string{"to_stage"})

	TxRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "talent_tx_retries_total",
		Help: "Transactions retried after serialization failures",
	})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "talent_http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		UnlockTotal,
		LedgerEntriesTotal,
		TopKGenerateSeconds,
		SuppressionChecksTotal,
		PipelineTransitionsTotal,
		TxRetriesTotal,
		HTTPRequestDuration,
	)
}
