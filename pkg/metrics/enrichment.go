package metrics

import "github.com/prometheus/client_golang/prometheus"

// EnrichmentMetrics records side-car artifact lookups.
type EnrichmentMetrics struct {
	fetches *prometheus.CounterVec
	records *prometheus.CounterVec
}

// NewEnrichmentMetrics registers the enrichment metrics on the provided registerer.
func NewEnrichmentMetrics(reg prometheus.Registerer) *EnrichmentMetrics {
	if reg == nil {
		return &EnrichmentMetrics{}
	}
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_artifact_fetches_total",
		Help: "Side-car artifact fetches by artifact kind and result.",
	}, []string{"artifact", "result"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_records_total",
		Help: "Records passed through enrichment by resolution source.",
	}, []string{"source"})
	reg.MustRegister(fetches, records)
	return &EnrichmentMetrics{fetches: fetches, records: records}
}

// ObserveFetch counts one artifact lookup. result is "hit", "miss" or "error".
func (e *EnrichmentMetrics) ObserveFetch(artifact, result string) {
	if e == nil || e.fetches == nil {
		return
	}
	e.fetches.WithLabelValues(normalizeLabel(artifact), normalizeLabel(result)).Inc()
}

// ObserveRecord counts how a record's enrichment was resolved.
func (e *EnrichmentMetrics) ObserveRecord(source string) {
	if e == nil || e.records == nil {
		return
	}
	e.records.WithLabelValues(normalizeLabel(source)).Inc()
}
