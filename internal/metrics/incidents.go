package metrics

import "github.com/prometheus/client_golang/prometheus"

// Write results.
const (
	ResultOK         = "ok"
	ResultInvalid    = "invalid"
	ResultNotFound   = "not_found"
	ResultDependency = "dependency"
	ResultInternal   = "internal"
)

var (
	incidentWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incident_writes_total",
			Help:      "Coordinated incident writes by operation and result",
		},
		[]string{"op", "result"},
	)

	incidentRollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incident_rollbacks_total",
			Help:      "Primary store rollbacks caused by a failed index write",
		},
		[]string{"op"},
	)

	reindexDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_documents_total",
			Help:      "Documents processed by the reindexer",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(incidentWritesTotal)
	prometheus.MustRegister(incidentRollbacksTotal)
	prometheus.MustRegister(reindexDocumentsTotal)
}

// Incidents exposes the coordinator and reindexer counters. The zero value is
// ready to use.
type Incidents struct{}

func NewIncidents() *Incidents { return &Incidents{} }

func (*Incidents) ObserveWrite(op, result string) {
	incidentWritesTotal.WithLabelValues(op, result).Inc()
}

func (*Incidents) ObserveRollback(op string) {
	incidentRollbacksTotal.WithLabelValues(op).Inc()
}

func (*Incidents) ObserveReindexed(indexed, failed, skipped int) {
	reindexDocumentsTotal.WithLabelValues(ResultOK).Add(float64(indexed))
	reindexDocumentsTotal.WithLabelValues("failed").Add(float64(failed))
	reindexDocumentsTotal.WithLabelValues("skipped").Add(float64(skipped))
}
