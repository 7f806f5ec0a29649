package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики движка. Регистрируются в default registry,
// экспортируются через promhttp на /metrics каждого сервиса.
var (
	// JobsProcessed — количество обработанных jobs по кампании и результату.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "worker",
		Name:      "jobs_processed_total",
		Help:      "Campaign jobs processed, by result (completed/failed/retried).",
	}, []string{"result"})

	// LeadsProcessed — количество leads, достигших терминального статуса.
	LeadsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "worker",
		Name:      "leads_processed_total",
		Help:      "Leads driven to a terminal status, by status.",
	}, []string{"status"})

	// NodeExecutions — количество выполненных узлов по типу и статусу.
	NodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "engine",
		Name:      "node_executions_total",
		Help:      "Workflow nodes executed, by action kind and status.",
	}, []string{"kind", "status"})

	// TraversalDuration — длительность traversal одного lead.
	TraversalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cadence",
		Subsystem: "engine",
		Name:      "traversal_duration_seconds",
		Help:      "Duration of a single-lead workflow traversal.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// ActiveQueues — количество живых очередей кампаний в этом процессе.
	ActiveQueues = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cadence",
		Subsystem: "queue",
		Name:      "active_queues",
		Help:      "Campaign queues currently managed by this process.",
	})

	// JobsInFlight — jobs, выполняющиеся прямо сейчас, по кампании.
	JobsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cadence",
		Subsystem: "worker",
		Name:      "jobs_in_flight",
		Help:      "Jobs currently being processed, by campaign.",
	}, []string{"campaign_id"})
)

// ObserveTraversal записывает длительность traversal.
func ObserveTraversal(started time.Time) {
	TraversalDuration.Observe(time.Since(started).Seconds())
}
