package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksTotal counts webhook deliveries by disposition
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tipbot_webhooks_total",
			Help: "Total number of webhook deliveries received",
		},
		[]string{"disposition"},
	)

	// TipsTotal counts terminal tip outcomes by status
	TipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tipbot_tips_total",
			Help: "Total number of tips by terminal status",
		},
		[]string{"status"},
	)

	// TipFailures counts failed tips by failure kind
	TipFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tipbot_tip_failures_total",
			Help: "Total number of failed tips by failure kind",
		},
		[]string{"kind"},
	)

	// TipAmount tracks tipped amounts in whole tokens
	TipAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tipbot_tip_amount",
			Help:    "Tipped amount in whole tokens",
			Buckets: []float64{0.01, 0.1, 1, 10, 100, 1000, 10000},
		},
		[]string{"token"},
	)

	// DispatchDuration tracks end-to-end dispatch time from claim to terminal state
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tipbot_dispatch_duration_seconds",
			Help:    "Dispatch duration from claim to terminal state in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SubmissionRetries counts transaction broadcast retries
	SubmissionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tipbot_submission_retries_total",
			Help: "Total number of transaction broadcast retries",
		},
	)

	// InFlightDispatches tracks dispatches currently holding a concurrency slot
	InFlightDispatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tipbot_inflight_dispatches",
			Help: "Number of dispatches currently executing",
		},
	)

	// QueuedDispatches tracks dispatches waiting for a concurrency slot
	QueuedDispatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tipbot_queued_dispatches",
			Help: "Number of dispatches waiting in the admission queue",
		},
	)

	// GasUsed tracks gas used by confirmed tip transactions
	GasUsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tipbot_gas_used",
			Help:    "Gas used by confirmed tip transactions",
			Buckets: []float64{21000, 50000, 100000, 200000, 300000, 500000},
		},
	)

	// AuditDropped counts audit records dropped due to a full buffer
	AuditDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tipbot_audit_dropped_total",
			Help: "Total number of audit records dropped",
		},
	)

	// NotifyFailures counts reply casts that could not be published
	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tipbot_notify_failures_total",
			Help: "Total number of failed reply notifications",
		},
	)
)
