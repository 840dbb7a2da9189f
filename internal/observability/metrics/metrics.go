package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides application metrics.
var Module = fx.Module("metrics", fx.Provide(New))

// Metrics exposes application-level instruments.
type Metrics struct {
	webhookDeliveries *prometheus.CounterVec
	ordersProcessed   *prometheus.CounterVec
	ledgerInserts     *prometheus.CounterVec
	notifyFailures    prometheus.Counter
	billingRuns       *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	jobErrors         *prometheus.CounterVec
}

func New() (*Metrics, error) {
	m := &Metrics{
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editorbridge_webhook_deliveries_total",
			Help: "Inbound webhook deliveries by topic and outcome.",
		}, []string{"topic", "outcome"}),
		ordersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editorbridge_orders_processed_total",
			Help: "Paid orders processed by outcome.",
		}, []string{"outcome"}),
		ledgerInserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editorbridge_ledger_inserts_total",
			Help: "Ledger item inserts by result (created, duplicate).",
		}, []string{"result"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editorbridge_fasteditor_notify_failures_total",
			Help: "Failed FastEditor sale notifications.",
		}),
		billingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editorbridge_billing_runs_total",
			Help: "Usage billing reconciliation runs by outcome.",
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "editorbridge_job_duration_seconds",
			Help:    "Scheduled job latency by job name.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editorbridge_job_errors_total",
			Help: "Scheduled job errors by job name.",
		}, []string{"job"}),
	}

	for _, collector := range []prometheus.Collector{
		m.webhookDeliveries,
		m.ordersProcessed,
		m.ledgerInserts,
		m.notifyFailures,
		m.billingRuns,
		m.jobDuration,
		m.jobErrors,
	} {
		if err := prometheus.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) IncWebhook(topic, outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(topic, outcome).Inc()
}

func (m *Metrics) IncOrderProcessed(outcome string) {
	if m == nil {
		return
	}
	m.ordersProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncLedgerInsert(result string) {
	if m == nil {
		return
	}
	m.ledgerInserts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *Metrics) IncBillingRun(outcome string) {
	if m == nil {
		return
	}
	m.billingRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}
